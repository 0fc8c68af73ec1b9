package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bookrental/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a write violates a unique constraint
	// (book ISBN, user email).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrReferenced is returned when a write violates a foreign key, either by
	// pointing at a missing record or by deleting a referenced one.
	ErrReferenced = errors.New("foreign key violation")

	// ErrConflict is returned when a compare-and-swap write matched no record
	// because a concurrent transaction changed it first. Callers rerun the
	// whole transaction.
	ErrConflict = errors.New("concurrent modification")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// UpdateProfile writes the name, phone and address of user. Returns
	// ErrNotFound when no such user exists.
	UpdateProfile(ctx context.Context, user *models.User) error
}

// BookFilter narrows a catalogue listing. Zero values disable a criterion.
type BookFilter struct {
	Category      string
	Search        string
	AvailableOnly bool
}

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	// GetForUpdate loads the book and, where the store supports it, locks the
	// row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context, filter BookFilter) ([]models.Book, error)
	// Update writes every mutable column of book, provided its stock counters
	// still equal expected. Returns ErrConflict otherwise.
	Update(ctx context.Context, book *models.Book, expected models.StockLevel) error
	// UpdateStock writes only the stock counters, with the same guard as Update.
	UpdateStock(ctx context.Context, book *models.Book, expected models.StockLevel) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.BookStats, error)
}

// RentalFilter narrows a rental listing. Status matching follows the lazy
// overdue rule evaluated at Now.
type RentalFilter struct {
	UserID uuid.UUID
	BookID uuid.UUID
	Status models.RentalStatus
	Now    time.Time
}

type RentalRepository interface {
	Create(ctx context.Context, rental *models.Rental) error
	// GetByID loads the rental together with its book and user.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, filter RentalFilter) ([]models.Rental, error)
	// Transition persists status, return date and late fee of rental provided
	// the stored status still equals from. Returns ErrConflict otherwise.
	Transition(ctx context.Context, rental *models.Rental, from models.RentalStatus) error
	CountByBook(ctx context.Context, bookID uuid.UUID) (int64, error)
	// MarkOverdue persists the active → overdue transition for every rental
	// due before now and returns how many were changed.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (*models.RentalStats, error)
}

// Repositories groups the per-entity repositories bound to one store handle,
// which is either the root handle or a running transaction.
type Repositories interface {
	Users() UserRepository
	Books() BookRepository
	Rentals() RentalRepository
}

// Store is the storage capability the services depend on: repositories plus
// atomic multi-record transactions.
type Store interface {
	Repositories
	// Transaction runs fn inside one transaction. Every write made through the
	// repositories handed to fn commits together, or none does when fn returns
	// an error. fn must use the context it receives.
	Transaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
