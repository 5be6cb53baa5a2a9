// Package storetest holds the behavioural tests every storage.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

// Run exercises store against the storage.Store contract. The store must be
// empty and is not closed by Run.
func Run(t *testing.T, store storage.Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	stokvel := &models.Stokvel{
		Name:               "Soweto Taxi Club",
		Type:               models.TypeVehicle,
		Currency:           "ZAR",
		ContributionAmount: decimal.RequireFromString("3500"),
		TargetAmount:       decimal.RequireFromString("100000"),
		ValueBasis:         models.ValueBasisNominal,
		Rules:              models.DefaultRuleSettings(),
		CreatedAt:          base,
	}
	stokvel.Rules.LatePaymentPenaltyRate = decimal.RequireFromString("12.5")
	stokvel.Rules.GracePeriodDays = 5

	t.Run("CreateStokvel assigns ID and round-trips", func(t *testing.T) {
		if err := store.CreateStokvel(ctx, stokvel); err != nil {
			t.Fatalf("CreateStokvel failed: %v", err)
		}
		if stokvel.ID == "" {
			t.Fatal("Expected stokvel ID to be generated")
		}

		got, err := store.GetStokvel(ctx, stokvel.ID)
		if err != nil {
			t.Fatalf("GetStokvel failed: %v", err)
		}
		if got.Name != stokvel.Name || got.Type != stokvel.Type || got.ValueBasis != models.ValueBasisNominal {
			t.Errorf("GetStokvel = %+v", got)
		}
		if !got.TargetAmount.Equal(stokvel.TargetAmount) || !got.Rules.LatePaymentPenaltyRate.Equal(decimal.RequireFromString("12.5")) {
			t.Errorf("amounts did not round-trip: target=%s rate=%s", got.TargetAmount, got.Rules.LatePaymentPenaltyRate)
		}
		if got.Rules.GracePeriodDays != 5 || !got.Rules.RequirePaymentVerification || got.Rules.DueDay() != 1 {
			t.Errorf("rules did not round-trip: %+v", got.Rules)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}

		all, err := store.ListStokvels(ctx)
		if err != nil {
			t.Fatalf("ListStokvels failed: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("ListStokvels returned %d stokvels, want 1", len(all))
		}
	})

	t.Run("GetStokvel returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetStokvel(ctx, "nonexistent-id")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	members := make([]*models.Member, 3)
	t.Run("members keep rotation order unique", func(t *testing.T) {
		// Inserted out of order to check ListMembers sorting.
		for _, order := range []int{2, 1, 3} {
			m := &models.Member{
				StokvelID:         stokvel.ID,
				UserID:            "user-" + string(rune('0'+order)),
				RotationOrder:     order,
				Status:            models.MemberActive,
				EligibleFromCycle: 1,
				JoinedAt:          base,
			}
			if err := store.CreateMember(ctx, m); err != nil {
				t.Fatalf("CreateMember failed: %v", err)
			}
			members[order-1] = m
		}

		dup := &models.Member{StokvelID: stokvel.ID, UserID: "user-x", RotationOrder: 2, Status: models.MemberActive, JoinedAt: base}
		if err := store.CreateMember(ctx, dup); !errors.Is(err, models.ErrConflict) {
			t.Errorf("duplicate rotation order error = %v, want ErrConflict", err)
		}

		orphan := &models.Member{StokvelID: "missing", UserID: "user-y", RotationOrder: 1, Status: models.MemberActive, JoinedAt: base}
		if err := store.CreateMember(ctx, orphan); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("member of missing stokvel error = %v, want ErrNotFound", err)
		}

		list, err := store.ListMembers(ctx, stokvel.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("ListMembers returned %d members, want 3", len(list))
		}
		for i, m := range list {
			if m.RotationOrder != i+1 {
				t.Errorf("member %d has rotation order %d", i, m.RotationOrder)
			}
		}
	})

	t.Run("UpdateMember saves status and eligibility", func(t *testing.T) {
		m := *members[2]
		m.Status = models.MemberInactive
		m.EligibleFromCycle = 4
		if err := store.UpdateMember(ctx, &m); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		got, err := store.GetMember(ctx, stokvel.ID, m.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if got.Status != models.MemberInactive || got.EligibleFromCycle != 4 || got.RotationOrder != 3 {
			t.Errorf("GetMember = %+v", got)
		}

		missing := models.Member{ID: "missing", StokvelID: stokvel.ID, Status: models.MemberActive}
		if err := store.UpdateMember(ctx, &missing); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("UpdateMember on missing member error = %v, want ErrNotFound", err)
		}
		if _, err := store.GetMember(ctx, "other-stokvel", m.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetMember across stokvels error = %v, want ErrNotFound", err)
		}
	})

	var first *models.Contribution
	t.Run("contributions are decided exactly once", func(t *testing.T) {
		for i, m := range []*models.Member{members[1], members[0], members[1]} {
			c := &models.Contribution{
				StokvelID:   stokvel.ID,
				MemberID:    m.ID,
				CycleNumber: 1,
				Period:      "2025-03",
				Amount:      decimal.RequireFromString("3500.50"),
				Status:      models.ContributionUnverified,
				ProofRef:    "proof/" + m.ID,
				RecordedAt:  base.Add(time.Duration(3-i) * time.Hour),
			}
			if err := store.CreateContribution(ctx, c); err != nil {
				t.Fatalf("CreateContribution failed: %v", err)
			}
			if c.ID == "" {
				t.Fatal("Expected contribution ID to be generated")
			}
		}

		all, err := store.ListContributions(ctx, stokvel.ID, storage.ContributionFilter{})
		if err != nil {
			t.Fatalf("ListContributions failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("ListContributions returned %d, want 3", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].RecordedAt.Before(all[i-1].RecordedAt) {
				t.Errorf("contributions not ordered by recorded_at")
			}
		}
		first = all[0]

		decidedAt := base.Add(24 * time.Hour)
		decided := *first
		decided.Status = models.ContributionVerified
		decided.CountedAmount = decimal.RequireFromString("3063.94")
		decided.DecidedAt = &decidedAt
		if err := store.DecideContribution(ctx, &decided); err != nil {
			t.Fatalf("DecideContribution failed: %v", err)
		}
		if err := store.DecideContribution(ctx, &decided); !errors.Is(err, models.ErrAlreadyDecided) {
			t.Errorf("second DecideContribution error = %v, want ErrAlreadyDecided", err)
		}

		got, err := store.GetContribution(ctx, stokvel.ID, first.ID)
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		if got.Status != models.ContributionVerified || !got.CountedAmount.Equal(decimal.RequireFromString("3063.94")) ||
			!got.Amount.Equal(decimal.RequireFromString("3500.50")) || got.DecidedAt == nil || !got.DecidedAt.Equal(decidedAt) {
			t.Errorf("GetContribution = %+v", got)
		}

		unverified, err := store.ListContributions(ctx, stokvel.ID, storage.ContributionFilter{Status: models.ContributionUnverified})
		if err != nil {
			t.Fatalf("ListContributions failed: %v", err)
		}
		if len(unverified) != 2 {
			t.Errorf("unverified = %d, want 2", len(unverified))
		}
		byMember, err := store.ListContributions(ctx, stokvel.ID, storage.ContributionFilter{MemberID: members[1].ID, CycleNumber: 1})
		if err != nil {
			t.Fatalf("ListContributions failed: %v", err)
		}
		if len(byMember) != 2 {
			t.Errorf("member contributions = %d, want 2", len(byMember))
		}

		if _, err := store.GetContribution(ctx, stokvel.ID, "missing"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetContribution error = %v, want ErrNotFound", err)
		}
	})

	payout := func(m *models.Member, ref string) *models.Payout {
		at := base.Add(48 * time.Hour)
		return &models.Payout{
			StokvelID:    stokvel.ID,
			MemberID:     m.ID,
			CycleNumber:  1,
			Amount:       decimal.RequireFromString("100000"),
			NominalValue: decimal.RequireFromString("104999.99"),
			Kind:         models.PayoutRotation,
			TriggerRef:   ref,
			Status:       models.PayoutProcessed,
			ProcessedAt:  &at,
		}
	}

	payoutVersion := func(t *testing.T) int {
		t.Helper()
		got, err := store.GetStokvel(ctx, stokvel.ID)
		if err != nil {
			t.Fatalf("GetStokvel failed: %v", err)
		}
		return got.PayoutVersion
	}

	t.Run("SavePayouts compares and swaps the stokvel payout version", func(t *testing.T) {
		c, err := store.GetCycle(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("GetCycle failed: %v", err)
		}
		if c.Version != 0 || c.Settled {
			t.Fatalf("fresh cycle = %+v, want version 0", c)
		}
		if v := payoutVersion(t); v != 0 {
			t.Fatalf("fresh payout version = %d, want 0", v)
		}

		if err := store.SavePayouts(ctx, stokvel.ID, 1, 0, []*models.Payout{payout(members[0], "cycle:1/firing:1")}); err != nil {
			t.Fatalf("SavePayouts failed: %v", err)
		}
		if err := store.SavePayouts(ctx, stokvel.ID, 1, 0, []*models.Payout{payout(members[1], "cycle:1/firing:2")}); !errors.Is(err, models.ErrConflict) {
			t.Errorf("stale SavePayouts error = %v, want ErrConflict", err)
		}

		// A firing planned from the same balance for another cycle must
		// lose too, or both could draw the pool below its floor.
		other := payout(members[1], "cycle:2/firing:1")
		other.CycleNumber = 2
		if err := store.SavePayouts(ctx, stokvel.ID, 2, 0, []*models.Payout{other}); !errors.Is(err, models.ErrConflict) {
			t.Errorf("stale SavePayouts on another cycle error = %v, want ErrConflict", err)
		}

		if err := store.SavePayouts(ctx, stokvel.ID, 1, 1, []*models.Payout{payout(members[0], "cycle:1/firing:2")}); !errors.Is(err, models.ErrConflict) {
			t.Errorf("second payout to same member error = %v, want ErrConflict", err)
		}
		if v := payoutVersion(t); v != 1 {
			t.Errorf("payout version after rejected writes = %d, want 1", v)
		}
		if err := store.SavePayouts(ctx, stokvel.ID, 1, 1, []*models.Payout{payout(members[1], "cycle:1/firing:2")}); err != nil {
			t.Fatalf("SavePayouts at version 1 failed: %v", err)
		}

		c, err = store.GetCycle(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("GetCycle failed: %v", err)
		}
		if c.Version != 2 {
			t.Errorf("cycle version = %d, want 2", c.Version)
		}
		if v := payoutVersion(t); v != 2 {
			t.Errorf("payout version = %d, want 2", v)
		}

		payouts, err := store.ListPayouts(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("ListPayouts failed: %v", err)
		}
		if len(payouts) != 2 {
			t.Fatalf("ListPayouts returned %d, want 2", len(payouts))
		}
		p := payouts[0]
		if p.ID == "" || !p.NominalValue.Equal(decimal.RequireFromString("104999.99")) || p.Status != models.PayoutProcessed || p.ProcessedAt == nil {
			t.Errorf("payout = %+v", p)
		}
		if other, err := store.ListPayouts(ctx, stokvel.ID, 2); err != nil || len(other) != 0 {
			t.Errorf("cycle 2 payouts = %v, %v", other, err)
		}
	})

	t.Run("emergency withdrawals sit beside distribution payouts", func(t *testing.T) {
		emergency := func() *models.Payout {
			p := payout(members[0], "emergency:e1")
			p.Amount = decimal.RequireFromString("500")
			p.NominalValue = p.Amount
			p.Kind = models.PayoutEmergency
			return p
		}
		version := payoutVersion(t)
		if err := store.SavePayouts(ctx, stokvel.ID, 1, version, []*models.Payout{emergency()}); err != nil {
			t.Fatalf("emergency payout beside a rotation payout failed: %v", err)
		}
		if err := store.SavePayouts(ctx, stokvel.ID, 1, version+1, []*models.Payout{emergency()}); !errors.Is(err, models.ErrConflict) {
			t.Errorf("second emergency payout error = %v, want ErrConflict", err)
		}

		payouts, err := store.ListPayouts(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("ListPayouts failed: %v", err)
		}
		if len(payouts) != 3 {
			t.Errorf("ListPayouts returned %d, want 3", len(payouts))
		}
	})

	var adjustments []*models.Adjustment
	t.Run("SaveAdjustments settles a cycle once", func(t *testing.T) {
		for i, amount := range []string{"-1000.01", "1000.01"} {
			adjustments = append(adjustments, &models.Adjustment{
				StokvelID:        stokvel.ID,
				MemberID:         members[1-i].ID,
				CycleNumber:      1,
				NetPosition:      decimal.RequireFromString(amount).Neg(),
				AdjustmentAmount: decimal.RequireFromString(amount),
				CreatedAt:        base,
			})
		}
		if err := store.SaveAdjustments(ctx, stokvel.ID, 1, adjustments); err != nil {
			t.Fatalf("SaveAdjustments failed: %v", err)
		}
		if err := store.SaveAdjustments(ctx, stokvel.ID, 1, adjustments); !errors.Is(err, models.ErrAlreadySettled) {
			t.Errorf("second SaveAdjustments error = %v, want ErrAlreadySettled", err)
		}

		c, err := store.GetCycle(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("GetCycle failed: %v", err)
		}
		if !c.Settled || c.SettledAt == nil {
			t.Errorf("cycle = %+v, want settled", c)
		}
		if err := store.SavePayouts(ctx, stokvel.ID, 1, payoutVersion(t), []*models.Payout{payout(members[2], "late")}); !errors.Is(err, models.ErrAlreadySettled) {
			t.Errorf("SavePayouts on settled cycle error = %v, want ErrAlreadySettled", err)
		}

		stored, err := store.ListAdjustments(ctx, stokvel.ID, 1)
		if err != nil {
			t.Fatalf("ListAdjustments failed: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("ListAdjustments returned %d, want 2", len(stored))
		}
		// Ordered by rotation order: member #1 first.
		if stored[0].MemberID != members[0].ID || !stored[0].AdjustmentAmount.Equal(decimal.RequireFromString("1000.01")) {
			t.Errorf("first adjustment = %+v", stored[0])
		}
	})

	t.Run("SettleAdjustment flips settled once", func(t *testing.T) {
		at := base.Add(72 * time.Hour)
		a, err := store.SettleAdjustment(ctx, stokvel.ID, adjustments[0].ID, at)
		if err != nil {
			t.Fatalf("SettleAdjustment failed: %v", err)
		}
		if !a.Settled || a.SettledAt == nil || !a.SettledAt.Equal(at) {
			t.Errorf("adjustment = %+v", a)
		}
		if _, err := store.SettleAdjustment(ctx, stokvel.ID, adjustments[0].ID, at); !errors.Is(err, models.ErrAlreadyDecided) {
			t.Errorf("second SettleAdjustment error = %v, want ErrAlreadyDecided", err)
		}
		if _, err := store.SettleAdjustment(ctx, stokvel.ID, "missing", at); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("SettleAdjustment on missing error = %v, want ErrNotFound", err)
		}
	})
}
