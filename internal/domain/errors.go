package domain

import (
	"errors"
	"fmt"
)

// ─── Error Categories ─────────────────────────────────────────────────────────
//
// Every error returned by the services wraps exactly one of these categories so
// callers can branch with errors.Is without knowing the specific sentinel.

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("book is out of stock")
	ErrInvalidStock      = errors.New("invalid stock")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid rental transition")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrStoreFailure      = errors.New("store failure")
)

// ─── Specific Sentinels ───────────────────────────────────────────────────────

var (
	ErrBookNotFound   = fmt.Errorf("book %w", ErrNotFound)
	ErrRentalNotFound = fmt.Errorf("rental %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)

	// ErrStockExceeded is returned when a release would push available stock
	// above the total stock of the book.
	ErrStockExceeded = fmt.Errorf("%w: available stock would exceed total stock", ErrInvalidStock)

	// ErrNegativeStock is returned when a stock edit would leave a negative
	// total or available count.
	ErrNegativeStock = fmt.Errorf("%w: stock would become negative", ErrInvalidStock)

	ErrAlreadyReturned = fmt.Errorf("%w: rental already returned", ErrInvalidTransition)
	ErrNotCancellable  = fmt.Errorf("%w: only active rentals can be cancelled", ErrInvalidTransition)
	ErrRentalClosed    = fmt.Errorf("%w: rental is already closed", ErrInvalidTransition)

	ErrDuplicateISBN  = fmt.Errorf("%w: isbn already registered", ErrConflict)
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrBookInUse      = fmt.Errorf("%w: book is referenced by rentals", ErrConflict)
)

// StoreFailure wraps an unexpected persistence error so it matches ErrStoreFailure
// while keeping the underlying cause inspectable.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// IsDomainError reports whether err already carries one of the error categories.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrOutOfStock,
		ErrInvalidStock,
		ErrForbidden,
		ErrInvalidTransition,
		ErrValidation,
		ErrConflict,
		ErrStoreFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
