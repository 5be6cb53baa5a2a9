package engine

import (
	"fmt"
	"time"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/calculator"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// PlanSettlement computes the fairness adjustments of a completed
// RotationSingle cycle. The cycle's members are everyone who received a
// payout in it or has a verified contribution tagged with it, in rotation
// order. Emergency withdrawals count as value received in the cycle they
// were drawn in.
func PlanSettlement(snap *Snapshot, cycle int, now time.Time) ([]*models.Adjustment, error) {
	if cycle < 1 {
		return nil, fmt.Errorf("%w: cycle must be >= 1", models.ErrValidation)
	}
	if snap.Policy.Shape != models.ShapeRotationSingle {
		return nil, fmt.Errorf("%w: only rotation cycles are settled", models.ErrValidation)
	}
	if snap.Cycle != nil && snap.Cycle.Settled {
		return nil, fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}

	if len(snap.DistributionPayouts(cycle)) == 0 {
		return nil, fmt.Errorf("%w: cycle %d has no payouts", models.ErrNotReady, cycle)
	}
	payouts := snap.CyclePayouts(cycle)
	if next := NextEligible(snap.Members, snap.Payouts, cycle); next != nil {
		return nil, fmt.Errorf("%w: member %s has not received in cycle %d", models.ErrNotReady, next.ID, cycle)
	}

	basis := snap.Stokvel.EffectiveValueBasis()
	received := make(map[string]bool)
	for _, p := range payouts {
		received[p.MemberID] = true
	}

	var positions []calculator.MemberPosition
	for _, m := range snap.Members {
		contributed := snap.Ledger.ContributedInCycle(m.ID, cycle)
		if !received[m.ID] && contributed.IsZero() {
			continue
		}
		pos := calculator.MemberPosition{MemberID: m.ID, Contributed: contributed}
		for _, p := range payouts {
			if p.MemberID == m.ID {
				pos.Received = pos.Received.Add(p.ValueReceived(basis))
			}
		}
		positions = append(positions, pos)
	}

	results, err := calculator.CalculateSettlement(positions)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate settlement: %w", err)
	}

	createdAt := now.UTC()
	adjustments := make([]*models.Adjustment, 0, len(results))
	for _, r := range results {
		adjustments = append(adjustments, &models.Adjustment{
			StokvelID:        snap.Stokvel.ID,
			MemberID:         r.MemberID,
			CycleNumber:      cycle,
			NetPosition:      r.NetPosition,
			AdjustmentAmount: r.Adjustment,
			CreatedAt:        createdAt,
		})
	}
	return adjustments, nil
}
