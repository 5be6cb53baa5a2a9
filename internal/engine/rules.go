package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// Policy is the fixed (trigger family, distribution shape) pair of a stokvel type.
type Policy struct {
	Family models.TriggerFamily
	Shape  models.DistributionShape
}

// PolicyFor returns the policy of a stokvel type. manualShape only applies
// to the manual-trigger types and defaults to RotationSingle.
func PolicyFor(t models.StokvelType, manualShape models.DistributionShape) (Policy, error) {
	switch t {
	case models.TypeVehicle, models.TypeEducation, models.TypeHomeImprovement, models.TypeFarming:
		return Policy{Family: models.FamilyThreshold, Shape: models.ShapeRotationSingle}, nil
	case models.TypeGrocery, models.TypeChristmas:
		return Policy{Family: models.FamilyCompleteness, Shape: models.ShapeRotationSingle}, nil
	case models.TypeBurial, models.TypeInvestment:
		shape := manualShape
		if shape == "" {
			shape = models.ShapeRotationSingle
		}
		if !shape.Valid() {
			return Policy{}, fmt.Errorf("%w: unknown distribution shape %q", models.ErrValidation, manualShape)
		}
		return Policy{Family: models.FamilyManual, Shape: shape}, nil
	default:
		return Policy{}, fmt.Errorf("%w: unknown stokvel type %q", models.ErrValidation, t)
	}
}

// TriggerInput carries the caller-supplied context a trigger may need.
type TriggerInput struct {
	// Period is the contribution period checked by completeness triggers.
	Period string

	// SignalID identifies the admin action behind a manual trigger.
	SignalID string
}

// Evaluation is the result of checking a stokvel's trigger.
type Evaluation struct {
	Policy
	Fired  bool
	Reason string

	// Available is the verified total less processed payouts.
	Available decimal.Decimal

	// Threshold is the balance a threshold trigger needs.
	Threshold decimal.Decimal

	// MissingMembers lists active members without a verified contribution
	// for the period (completeness triggers only).
	MissingMembers []string
}

// Evaluate decides whether the stokvel's payout trigger has fired.
// Only verified contributions count.
func Evaluate(snap *Snapshot, in TriggerInput) Evaluation {
	ev := Evaluation{
		Policy:    snap.Policy,
		Available: snap.Ledger.Available(),
	}

	switch snap.Policy.Family {
	case models.FamilyThreshold:
		if !snap.Stokvel.HasTarget() {
			ev.Reason = "no target amount configured"
			return ev
		}
		ev.Threshold = snap.Stokvel.TargetAmount.Sub(snap.Stokvel.Rules.MinimumRolloverBalance)
		if ev.Available.GreaterThanOrEqual(ev.Threshold) {
			ev.Fired = true
			ev.Reason = fmt.Sprintf("available %s reached threshold %s", ev.Available.StringFixed(2), ev.Threshold.StringFixed(2))
		} else {
			ev.Reason = fmt.Sprintf("available %s below threshold %s", ev.Available.StringFixed(2), ev.Threshold.StringFixed(2))
		}

	case models.FamilyCompleteness:
		if strings.TrimSpace(in.Period) == "" {
			ev.Reason = "no period given"
			return ev
		}
		paid := snap.Ledger.VerifiedMembersForPeriod(in.Period)
		active := 0
		for _, m := range snap.Members {
			if m.Status != models.MemberActive {
				continue
			}
			active++
			if !paid[m.ID] {
				ev.MissingMembers = append(ev.MissingMembers, m.ID)
			}
		}
		switch {
		case active == 0:
			ev.Reason = "no active members"
		case len(ev.MissingMembers) > 0:
			ev.Reason = fmt.Sprintf("%d of %d active members have no verified contribution for %s", len(ev.MissingMembers), active, in.Period)
		default:
			ev.Fired = true
			ev.Reason = fmt.Sprintf("all %d active members contributed for %s", active, in.Period)
		}

	case models.FamilyManual:
		if strings.TrimSpace(in.SignalID) == "" {
			ev.Reason = "manual trigger requires an admin signal"
			return ev
		}
		ev.Fired = true
		ev.Reason = "signalled by " + in.SignalID
	}

	return ev
}
