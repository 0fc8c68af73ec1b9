package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookrental/internal/models"
)

// Policy holds the configurable parameters of the rental lifecycle.
type Policy struct {
	DefaultDays   int
	LateFeePerDay decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultDays:   DefaultRentalDays,
		LateFeePerDay: decimal.NewFromInt(DefaultLateFeePerDay),
	}
}

// RentalDays resolves the requested rental length, falling back to the policy
// default for zero or negative values.
func (p Policy) RentalDays(requested int) int {
	if requested > 0 {
		return requested
	}
	if p.DefaultDays > 0 {
		return p.DefaultDays
	}
	return DefaultRentalDays
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.UserRoleAdmin
}

// Authorize allows owners of the rental and administrators.
func Authorize(actor Actor, rental *models.Rental) error {
	if actor.IsAdmin() || rental.UserID == actor.UserID {
		return nil
	}
	return ErrForbidden
}

// NewRental builds an active rental of book for userID starting at now. The
// caller is responsible for reserving the copy in the same transaction.
func NewRental(userID uuid.UUID, book *models.Book, days int, notes string, now time.Time) *models.Rental {
	return &models.Rental{
		UserID:     userID,
		BookID:     book.ID,
		RentalDate: now,
		DueDate:    now.Add(time.Duration(days) * day),
		Status:     models.RentalStatusActive,
		TotalPrice: TotalPrice(book.RentalPrice, days),
		LateFee:    decimal.Zero,
		Notes:      notes,
	}
}

// IsOverdue reports whether an active rental has passed its due date at now.
func IsOverdue(rental *models.Rental, now time.Time) bool {
	return rental.Status == models.RentalStatusActive && now.After(rental.DueDate)
}

// RefreshStatus applies the lazy active → overdue transition. It reports
// whether the status changed.
func RefreshStatus(rental *models.Rental, now time.Time) bool {
	if IsOverdue(rental, now) {
		rental.Status = models.RentalStatusOverdue
		return true
	}
	return false
}

// Return closes an active or overdue rental at now and fixes its late fee.
// The caller must release the copy in the same transaction.
func Return(rental *models.Rental, now time.Time, perDay decimal.Decimal) error {
	RefreshStatus(rental, now)
	if !rental.Status.Outstanding() {
		if rental.Status == models.RentalStatusReturned {
			return ErrAlreadyReturned
		}
		return ErrRentalClosed
	}
	returned := now
	rental.ReturnDate = &returned
	rental.LateFee = CalculateLateFee(rental.DueDate, returned, perDay)
	rental.Status = models.RentalStatusReturned
	return nil
}

// Cancel closes an active rental. Overdue rentals must be returned instead.
// The caller must release the copy in the same transaction.
func Cancel(rental *models.Rental, now time.Time) error {
	RefreshStatus(rental, now)
	if rental.Status.Terminal() {
		return ErrRentalClosed
	}
	if rental.Status != models.RentalStatusActive {
		return ErrNotCancellable
	}
	rental.Status = models.RentalStatusCancelled
	return nil
}
