package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultRentalDays is used when a rental is created without a positive day count.
	DefaultRentalDays = 7

	// DefaultLateFeePerDay is the penalty charged per started day past the due date.
	DefaultLateFeePerDay = 5000
)

const day = 24 * time.Hour

// DaysLate returns the number of started 24h periods between dueDate and
// returnedAt. Returns 0 when the book came back on or before the due date.
func DaysLate(dueDate, returnedAt time.Time) int64 {
	if !returnedAt.After(dueDate) {
		return 0
	}
	late := returnedAt.Sub(dueDate)
	days := int64(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

// CalculateLateFee computes the fee for a book returned at returnedAt.
func CalculateLateFee(dueDate, returnedAt time.Time, perDay decimal.Decimal) decimal.Decimal {
	days := DaysLate(dueDate, returnedAt)
	if days == 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(days))
}

// TotalPrice is the rental price for the whole rental period, fixed at creation.
func TotalPrice(pricePerDay decimal.Decimal, days int) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(days)))
}
