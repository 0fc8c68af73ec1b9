package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrental/internal/models"
)

var perDay = decimal.NewFromInt(DefaultLateFeePerDay)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func activeRental(due time.Time) *models.Rental {
	return &models.Rental{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		BookID:  uuid.New(),
		DueDate: due,
		Status:  models.RentalStatusActive,
	}
}

func TestNewRentalPricing(t *testing.T) {
	now := date(2024, time.January, 3)
	book := &models.Book{ID: uuid.New(), RentalPrice: decimal.NewFromInt(1000)}
	userID := uuid.New()

	rental := NewRental(userID, book, 7, "weekend reading", now)

	assert.Equal(t, models.RentalStatusActive, rental.Status)
	assert.Equal(t, book.ID, rental.BookID)
	assert.Equal(t, userID, rental.UserID)
	assert.True(t, rental.RentalDate.Equal(now))
	assert.True(t, rental.DueDate.Equal(date(2024, time.January, 10)))
	assert.True(t, rental.TotalPrice.Equal(decimal.NewFromInt(7000)), "got %s", rental.TotalPrice)
	assert.True(t, rental.LateFee.IsZero())
	assert.Nil(t, rental.ReturnDate)
	assert.Equal(t, "weekend reading", rental.Notes)
}

func TestPolicyRentalDays(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 7, p.RentalDays(0))
	assert.Equal(t, 7, p.RentalDays(-3))
	assert.Equal(t, 3, p.RentalDays(3))
	assert.Equal(t, 7, Policy{}.RentalDays(0))
}

func TestAuthorize(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))

	assert.NoError(t, Authorize(Actor{UserID: rental.UserID, Role: models.UserRoleUser}, rental))
	assert.NoError(t, Authorize(Actor{UserID: uuid.New(), Role: models.UserRoleAdmin}, rental))
	assert.ErrorIs(t, Authorize(Actor{UserID: uuid.New(), Role: models.UserRoleUser}, rental), ErrForbidden)
}

func TestRefreshStatusIsLazy(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))

	assert.False(t, RefreshStatus(rental, date(2024, time.January, 10)))
	assert.Equal(t, models.RentalStatusActive, rental.Status)

	assert.True(t, RefreshStatus(rental, date(2024, time.January, 10).Add(time.Second)))
	assert.Equal(t, models.RentalStatusOverdue, rental.Status)

	assert.False(t, RefreshStatus(rental, date(2024, time.February, 1)))
	assert.Equal(t, models.RentalStatusOverdue, rental.Status)
}

func TestReturnLate(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))

	require.NoError(t, Return(rental, date(2024, time.January, 13), perDay))

	assert.Equal(t, models.RentalStatusReturned, rental.Status)
	require.NotNil(t, rental.ReturnDate)
	assert.True(t, rental.LateFee.Equal(decimal.NewFromInt(15000)), "got %s", rental.LateFee)
}

func TestReturnOnDueInstant(t *testing.T) {
	due := date(2024, time.January, 10)
	rental := activeRental(due)

	require.NoError(t, Return(rental, due, perDay))

	assert.Equal(t, models.RentalStatusReturned, rental.Status)
	assert.True(t, rental.LateFee.IsZero())
}

func TestReturnOverdueRental(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))
	rental.Status = models.RentalStatusOverdue

	require.NoError(t, Return(rental, date(2024, time.January, 11), perDay))
	assert.True(t, rental.LateFee.Equal(perDay))
}

func TestReturnTerminalRentals(t *testing.T) {
	returned := activeRental(date(2024, time.January, 10))
	require.NoError(t, Return(returned, date(2024, time.January, 9), perDay))
	assert.ErrorIs(t, Return(returned, date(2024, time.January, 20), perDay), ErrInvalidTransition)
	assert.True(t, returned.LateFee.IsZero(), "fee must not be recomputed")

	cancelled := activeRental(date(2024, time.January, 10))
	require.NoError(t, Cancel(cancelled, date(2024, time.January, 5)))
	assert.ErrorIs(t, Return(cancelled, date(2024, time.January, 6), perDay), ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))

	require.NoError(t, Cancel(rental, date(2024, time.January, 5)))
	assert.Equal(t, models.RentalStatusCancelled, rental.Status)

	assert.ErrorIs(t, Cancel(rental, date(2024, time.January, 5)), ErrInvalidTransition)
}

func TestCancelOverdueIsRejected(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))

	err := Cancel(rental, date(2024, time.January, 11))
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, models.RentalStatusOverdue, rental.Status)
}

func TestLateFeeIsFixedAtReturn(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))
	RefreshStatus(rental, date(2024, time.January, 20))
	assert.True(t, rental.LateFee.IsZero(), "no fee before return")

	require.NoError(t, Return(rental, date(2024, time.January, 12), perDay))
	assert.True(t, rental.LateFee.Equal(decimal.NewFromInt(10000)))

	RefreshStatus(rental, date(2024, time.February, 1))
	assert.ErrorIs(t, Return(rental, date(2024, time.February, 1), perDay), ErrAlreadyReturned)
	assert.True(t, rental.LateFee.Equal(decimal.NewFromInt(10000)))
}

func TestCancelClosedRental(t *testing.T) {
	rental := activeRental(date(2024, time.January, 10))
	require.NoError(t, Return(rental, date(2024, time.January, 9), perDay))

	assert.ErrorIs(t, Cancel(rental, date(2024, time.January, 9)), ErrRentalClosed)
	assert.Equal(t, models.RentalStatusReturned, rental.Status)
}

func TestLateFeeImpliesLateReturn(t *testing.T) {
	due := date(2024, time.January, 10)
	for offset := -48 * time.Hour; offset <= 96*time.Hour; offset += 7 * time.Hour {
		rental := activeRental(due)
		require.NoError(t, Return(rental, due.Add(offset), perDay))
		if rental.LateFee.IsPositive() {
			assert.Equal(t, models.RentalStatusReturned, rental.Status)
			assert.True(t, rental.ReturnDate.After(rental.DueDate))
		}
	}
}
