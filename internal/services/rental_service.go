package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookrental/internal/domain"
	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

// MaxRentalDays bounds the length of a single rental.
const MaxRentalDays = 365

// CreateRentalInput is the caller's request to rent one copy of a book.
// Days ≤ 0 selects the default rental length.
type CreateRentalInput struct {
	BookID uuid.UUID
	Days   int
	Notes  string
}

// RentalQuery filters a rental listing. UserID is honoured for administrators
// only; everyone else always sees their own rentals.
type RentalQuery struct {
	UserID uuid.UUID
	Status models.RentalStatus
}

// RentalService drives the rental lifecycle. Every state change runs in one
// store transaction together with the matching inventory ledger operation.
type RentalService interface {
	Create(ctx context.Context, actor domain.Actor, in CreateRentalInput) (*models.Rental, error)
	Return(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error)
	Cancel(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error)

	Get(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, actor domain.Actor, q RentalQuery) ([]models.Rental, error)
	Stats(ctx context.Context) (*models.RentalStats, error)

	// SweepOverdue persists the overdue status of every active rental past
	// its due date and returns how many rentals changed.
	SweepOverdue(ctx context.Context) (int64, error)
}

type rentalService struct {
	store  repositories.Store
	policy domain.Policy
	log    *slog.Logger
	clock  func() time.Time
	retry  retryPolicy
}

// NewRentalService wires up the rental lifecycle on top of store.
func NewRentalService(store repositories.Store, policy domain.Policy, log *slog.Logger) RentalService {
	return &rentalService{
		store:  store,
		policy: policy,
		log:    log.With("component", "rental_service"),
		clock:  time.Now,
		retry:  defaultRetryPolicy(),
	}
}

func (s *rentalService) now() time.Time {
	return s.clock().UTC()
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// Create rents one copy of the book to the actor.
//
// Steps (one transaction, rerun on a lost stock write):
//  1. Lock the book row.
//  2. Reserve one copy (fails with ErrOutOfStock).
//  3. Insert the rental with its due date and total price.
//  4. Write the new stock counters, guarded by the values read in step 1.
func (s *rentalService) Create(ctx context.Context, actor domain.Actor, in CreateRentalInput) (*models.Rental, error) {
	if in.BookID == uuid.Nil {
		return nil, fmt.Errorf("%w: bookId is required", domain.ErrValidation)
	}
	if in.Days > MaxRentalDays {
		return nil, fmt.Errorf("%w: days must not exceed %d", domain.ErrValidation, MaxRentalDays)
	}
	days := s.policy.RentalDays(in.Days)

	var created *models.Rental
	err := s.retry.run(ctx, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
			book, err := repos.Books().GetForUpdate(ctx, in.BookID)
			if err != nil {
				return orNotFound(err, domain.ErrBookNotFound)
			}

			prev := book.StockLevel()
			if err := domain.Reserve(book); err != nil {
				return err
			}

			rental := domain.NewRental(actor.UserID, book, days, in.Notes, s.now())
			if err := repos.Rentals().Create(ctx, rental); err != nil {
				if errors.Is(err, repositories.ErrReferenced) {
					return domain.ErrUserNotFound
				}
				return err
			}
			if err := repos.Books().UpdateStock(ctx, book, prev); err != nil {
				return err
			}

			created, err = repos.Rentals().GetByID(ctx, rental.ID)
			return err
		})
	})
	if err != nil {
		return nil, failure(s.log, "create rental", err, "book_id", in.BookID, "user_id", actor.UserID)
	}

	s.log.Info("rental created",
		"rental_id", created.ID,
		"book_id", created.BookID,
		"user_id", created.UserID,
		"due", created.DueDate.Format(time.RFC3339),
		"total_price", created.TotalPrice.String(),
	)
	return created, nil
}

// Return closes an active or overdue rental, fixes its late fee and puts the
// copy back into available stock.
func (s *rentalService) Return(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error) {
	updated, err := s.close(ctx, actor, rentalID, func(rental *models.Rental, now time.Time) error {
		return domain.Return(rental, now, s.policy.LateFeePerDay)
	})
	if err != nil {
		return nil, failure(s.log, "return rental", err, "rental_id", rentalID, "actor_id", actor.UserID)
	}

	s.log.Info("rental returned",
		"rental_id", updated.ID,
		"book_id", updated.BookID,
		"late_fee", updated.LateFee.String(),
	)
	return updated, nil
}

// Cancel closes an active rental without a fee and puts the copy back into
// available stock.
func (s *rentalService) Cancel(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error) {
	updated, err := s.close(ctx, actor, rentalID, domain.Cancel)
	if err != nil {
		return nil, failure(s.log, "cancel rental", err, "rental_id", rentalID, "actor_id", actor.UserID)
	}

	s.log.Info("rental cancelled", "rental_id", updated.ID, "book_id", updated.BookID)
	return updated, nil
}

// close applies a terminal transition to a rental and releases its copy, in
// one transaction.
func (s *rentalService) close(
	ctx context.Context,
	actor domain.Actor,
	rentalID uuid.UUID,
	transition func(rental *models.Rental, now time.Time) error,
) (*models.Rental, error) {
	var updated *models.Rental
	err := s.retry.run(ctx, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
			rental, err := repos.Rentals().GetForUpdate(ctx, rentalID)
			if err != nil {
				return orNotFound(err, domain.ErrRentalNotFound)
			}
			if err := domain.Authorize(actor, rental); err != nil {
				return err
			}

			stored := rental.Status
			if err := transition(rental, s.now()); err != nil {
				return err
			}
			if err := s.releaseCopy(ctx, repos, rental.BookID); err != nil {
				return err
			}
			if err := repos.Rentals().Transition(ctx, rental, stored); err != nil {
				return err
			}

			updated, err = repos.Rentals().GetByID(ctx, rentalID)
			return err
		})
	})
	return updated, err
}

func (s *rentalService) releaseCopy(ctx context.Context, repos repositories.Repositories, bookID uuid.UUID) error {
	book, err := repos.Books().GetForUpdate(ctx, bookID)
	if err != nil {
		return orNotFound(err, domain.ErrBookNotFound)
	}
	prev := book.StockLevel()
	if err := domain.Release(book); err != nil {
		return err
	}
	return repos.Books().UpdateStock(ctx, book, prev)
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// Get returns a single rental visible to the actor, with its lazy overdue
// status applied.
func (s *rentalService) Get(ctx context.Context, actor domain.Actor, rentalID uuid.UUID) (*models.Rental, error) {
	rental, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return nil, failure(s.log, "get rental", orNotFound(err, domain.ErrRentalNotFound), "rental_id", rentalID)
	}
	if err := domain.Authorize(actor, rental); err != nil {
		return nil, failure(s.log, "get rental", err, "rental_id", rentalID, "actor_id", actor.UserID)
	}
	domain.RefreshStatus(rental, s.now())
	return rental, nil
}

// List returns rentals newest first. Non-administrators only ever see their
// own rentals.
func (s *rentalService) List(ctx context.Context, actor domain.Actor, q RentalQuery) ([]models.Rental, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown rental status %q", domain.ErrValidation, q.Status)
	}

	now := s.now()
	filter := repositories.RentalFilter{Status: q.Status, Now: now}
	if actor.IsAdmin() {
		filter.UserID = q.UserID
	} else {
		filter.UserID = actor.UserID
	}

	rentals, err := s.store.Rentals().List(ctx, filter)
	if err != nil {
		return nil, failure(s.log, "list rentals", err, "actor_id", actor.UserID)
	}
	for i := range rentals {
		domain.RefreshStatus(&rentals[i], now)
	}
	return rentals, nil
}

func (s *rentalService) Stats(ctx context.Context) (*models.RentalStats, error) {
	stats, err := s.store.Rentals().Stats(ctx, s.now())
	if err != nil {
		return nil, failure(s.log, "rental stats", err)
	}
	return stats, nil
}

func (s *rentalService) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.Rentals().MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, failure(s.log, "sweep overdue rentals", err)
	}
	if n > 0 {
		s.log.Info("overdue rentals marked", "count", n)
	}
	return n, nil
}
