package engine

import "github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"

// NextEligible returns the member due to receive the next RotationSingle
// payout in cycle: the eligible active member with the lowest rotation order
// who has no processed payout in that cycle. It returns nil when every
// eligible member has received, which completes the cycle.
//
// A member with a payout in the cycle counts as received even if they were
// deactivated afterwards. Emergency withdrawals do not use up a turn.
func NextEligible(members []*models.Member, payouts []*models.Payout, cycle int) *models.Member {
	received := receivedIn(payouts, cycle)

	var next *models.Member
	for _, m := range members {
		if !m.EligibleIn(cycle) || received[m.ID] {
			continue
		}
		if next == nil || m.RotationOrder < next.RotationOrder {
			next = m
		}
	}
	return next
}

// receivedIn returns the members with a processed distribution payout in cycle.
func receivedIn(payouts []*models.Payout, cycle int) map[string]bool {
	received := make(map[string]bool)
	for _, p := range payouts {
		if p.CycleNumber == cycle && p.Status == models.PayoutProcessed && p.IsDistribution() {
			received[p.MemberID] = true
		}
	}
	return received
}

// withdrewIn returns the members with a processed emergency withdrawal in cycle.
func withdrewIn(payouts []*models.Payout, cycle int) map[string]bool {
	withdrew := make(map[string]bool)
	for _, p := range payouts {
		if p.CycleNumber == cycle && p.Status == models.PayoutProcessed && !p.IsDistribution() {
			withdrew[p.MemberID] = true
		}
	}
	return withdrew
}

// nextRotationOrder is one past the highest rotation order ever assigned.
// Inactive members keep their slot, so orders are never reused.
func nextRotationOrder(members []*models.Member) int {
	highest := 0
	for _, m := range members {
		if m.RotationOrder > highest {
			highest = m.RotationOrder
		}
	}
	return highest + 1
}
