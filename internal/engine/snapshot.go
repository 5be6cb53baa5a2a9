package engine

import (
	"context"
	"fmt"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

// Snapshot is the in-memory state every engine decision is computed from.
type Snapshot struct {
	Stokvel *models.Stokvel
	Policy  Policy

	// Members are ordered by rotation order.
	Members []*models.Member

	// Contributions are ordered by RecordedAt.
	Contributions []*models.Contribution

	// Payouts covers every cycle.
	Payouts []*models.Payout

	// Cycle is the row of the cycle the snapshot was loaded for. Nil when
	// loaded without a cycle.
	Cycle *models.Cycle

	Ledger *Ledger
}

// loadSnapshot reads a stokvel's full state. cycle 0 skips the cycle row.
func loadSnapshot(ctx context.Context, store storage.Store, stokvelID string, cycle int) (*Snapshot, error) {
	stokvel, err := store.GetStokvel(ctx, stokvelID)
	if err != nil {
		return nil, err
	}
	policy, err := PolicyFor(stokvel.Type, stokvel.ManualShape)
	if err != nil {
		return nil, err
	}

	// The stokvel, and with it the payout version, is read before the
	// payouts so that any payout committed after this point fails our
	// compare-and-swap.
	snap := &Snapshot{Stokvel: stokvel, Policy: policy}

	if cycle > 0 {
		if snap.Cycle, err = store.GetCycle(ctx, stokvelID, cycle); err != nil {
			return nil, fmt.Errorf("failed to load cycle %d: %w", cycle, err)
		}
	}
	if snap.Members, err = store.ListMembers(ctx, stokvelID); err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if snap.Contributions, err = store.ListContributions(ctx, stokvelID, storage.ContributionFilter{}); err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}
	if snap.Payouts, err = store.ListPayouts(ctx, stokvelID, 0); err != nil {
		return nil, fmt.Errorf("failed to load payouts: %w", err)
	}
	snap.Ledger = NewLedger(snap.Contributions, snap.Payouts)
	return snap, nil
}

// Member finds a member by ID.
func (s *Snapshot) Member(memberID string) (*models.Member, bool) {
	for _, m := range s.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return nil, false
}

// CyclePayouts returns the processed payouts of one cycle.
func (s *Snapshot) CyclePayouts(cycle int) []*models.Payout {
	var out []*models.Payout
	for _, p := range s.Payouts {
		if p.CycleNumber == cycle && p.Status == models.PayoutProcessed {
			out = append(out, p)
		}
	}
	return out
}

// DistributionPayouts returns the processed rotation and equal-share
// payouts of one cycle, leaving out emergency withdrawals.
func (s *Snapshot) DistributionPayouts(cycle int) []*models.Payout {
	var out []*models.Payout
	for _, p := range s.CyclePayouts(cycle) {
		if p.IsDistribution() {
			out = append(out, p)
		}
	}
	return out
}

// CycleDistributed reports whether a cycle's distribution is finished: an
// equal-share cycle once it has been paid out, a rotation cycle once every
// eligible member has received.
func (s *Snapshot) CycleDistributed(cycle int) bool {
	if len(s.DistributionPayouts(cycle)) == 0 {
		return false
	}
	if s.Policy.Shape == models.ShapeEqualShare {
		return true
	}
	return NextEligible(s.Members, s.Payouts, cycle) == nil
}

// hasTriggerRef reports whether any payout was produced by ref.
func (s *Snapshot) hasTriggerRef(ref string) bool {
	for _, p := range s.Payouts {
		if p.TriggerRef == ref {
			return true
		}
	}
	return false
}
