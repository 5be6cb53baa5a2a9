package calculator

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CountedAmount returns the value a contribution counts for.
// A contribution recorded more than graceDays after dueDate is reduced by
// ratePercent: counted = amount * (1 - rate/100), rounded to the cent.
func CountedAmount(amount decimal.Decimal, recordedAt, dueDate time.Time, graceDays int, ratePercent decimal.Decimal) decimal.Decimal {
	if !IsLate(recordedAt, dueDate, graceDays) || !ratePercent.IsPositive() {
		return amount.Round(2)
	}
	factor := decimal.NewFromInt(1).Sub(ratePercent.Div(hundred))
	return amount.Mul(factor).Round(2)
}

// IsLate reports whether recordedAt is more than graceDays whole days after
// dueDate. Both are compared as UTC calendar days.
func IsLate(recordedAt, dueDate time.Time, graceDays int) bool {
	if graceDays < 0 {
		graceDays = 0
	}
	return DaysLate(recordedAt, dueDate) > graceDays
}

// DaysLate is the number of calendar days from dueDate to recordedAt.
// It is negative for early payments.
func DaysLate(recordedAt, dueDate time.Time) int {
	r := recordedAt.UTC().Truncate(24 * time.Hour)
	d := dueDate.UTC().Truncate(24 * time.Hour)
	return int(r.Sub(d).Hours() / 24)
}
