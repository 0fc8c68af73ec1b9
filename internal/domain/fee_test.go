package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		returned time.Time
		want     int64
	}{
		{name: "early", returned: due.Add(-36 * time.Hour), want: 0},
		{name: "same instant", returned: due, want: 0},
		{name: "one second late", returned: due.Add(time.Second), want: 1},
		{name: "exactly one day", returned: due.Add(24 * time.Hour), want: 1},
		{name: "one day and a minute", returned: due.Add(24*time.Hour + time.Minute), want: 2},
		{name: "three days", returned: time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC), want: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysLate(due, tc.returned))
		})
	}
}

func TestCalculateLateFee(t *testing.T) {
	due := time.Date(2024, time.January, 10, 9, 30, 0, 0, time.UTC)

	fee := CalculateLateFee(due, due.Add(72*time.Hour), perDay)
	assert.True(t, fee.Equal(decimal.NewFromInt(15000)), "got %s", fee)

	assert.True(t, CalculateLateFee(due, due, perDay).IsZero())
	assert.True(t, CalculateLateFee(due, due.Add(-time.Hour), perDay).IsZero())
}

func TestCalculateLateFeeIsMonotonic(t *testing.T) {
	due := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	prev := decimal.Zero
	for step := -24; step <= 24*10; step++ {
		fee := CalculateLateFee(due, due.Add(time.Duration(step)*time.Hour), perDay)
		assert.False(t, fee.LessThan(prev), "fee decreased at step %d", step)
		assert.False(t, fee.IsNegative())
		prev = fee
	}
}

func TestTotalPrice(t *testing.T) {
	assert.True(t, TotalPrice(decimal.NewFromInt(1000), 7).Equal(decimal.NewFromInt(7000)))
	assert.True(t, TotalPrice(decimal.RequireFromString("2500.50"), 2).Equal(decimal.RequireFromString("5001")))
	assert.True(t, TotalPrice(decimal.Zero, 7).IsZero())
}
