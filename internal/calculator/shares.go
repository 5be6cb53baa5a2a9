package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// SplitEqually divides total among n recipients to the cent.
// Each share is total/n rounded down to two places; the leftover cents are
// handed out one each to the first recipients, so shares always sum to the
// (two-place) total.
func SplitEqually(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one recipient")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cannot be negative")
	}

	total = total.RoundDown(2)
	share := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}

	// Leftover is always fewer than n cents.
	leftover := total.Sub(share.Mul(decimal.NewFromInt(int64(n))))
	for i := 0; leftover.IsPositive() && i < n; i++ {
		shares[i] = shares[i].Add(cent)
		leftover = leftover.Sub(cent)
	}

	return shares, nil
}
