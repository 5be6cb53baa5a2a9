package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MemberPosition is one member's totals for a cycle.
type MemberPosition struct {
	MemberID    string
	Received    decimal.Decimal // Value received from payouts
	Contributed decimal.Decimal // Verified (counted) contributions
}

// MemberAdjustment is the settlement result for one member.
type MemberAdjustment struct {
	MemberID    string
	NetPosition decimal.Decimal // Positive = received more than contributed
	Adjustment  decimal.Decimal // Positive = refund owed to member, negative = member owes pool
}

// CalculateSettlement equalizes net cost across the members of a cycle.
//
// Algorithm:
// - net(m) = received(m) - contributed(m), at two places
// - average = mean(net), at two places
// - adjustment(m) = average - net(m)
// - any residual cent from rounding goes to the member with the largest
//   absolute adjustment (first in input order on ties), so the adjustments
//   sum to exactly zero
//
// Results are returned in input order. Callers pass positions sorted by
// rotation order so the tie-break is deterministic.
func CalculateSettlement(positions []MemberPosition) ([]MemberAdjustment, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("must have at least one member")
	}

	seen := make(map[string]bool, len(positions))
	sum := decimal.Zero
	results := make([]MemberAdjustment, len(positions))
	for i, p := range positions {
		if seen[p.MemberID] {
			return nil, fmt.Errorf("duplicate member %s", p.MemberID)
		}
		seen[p.MemberID] = true

		net := p.Received.Sub(p.Contributed).Round(2)
		results[i] = MemberAdjustment{MemberID: p.MemberID, NetPosition: net}
		sum = sum.Add(net)
	}

	average := sum.Div(decimal.NewFromInt(int64(len(positions)))).Round(2)

	total := decimal.Zero
	largest := 0
	for i := range results {
		results[i].Adjustment = average.Sub(results[i].NetPosition)
		total = total.Add(results[i].Adjustment)
		if results[i].Adjustment.Abs().GreaterThan(results[largest].Adjustment.Abs()) {
			largest = i
		}
	}

	if !total.IsZero() {
		results[largest].Adjustment = results[largest].Adjustment.Sub(total)
	}

	return results, nil
}

// SumAdjustments totals the adjustment amounts.
func SumAdjustments(adjustments []MemberAdjustment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range adjustments {
		total = total.Add(a.Adjustment)
	}
	return total
}
