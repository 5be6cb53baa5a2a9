package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/calculator"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// ProcessRequest asks for one trigger firing to be paid out.
type ProcessRequest struct {
	StokvelID string

	// Cycle is the rotation cycle the payout belongs to (>= 1).
	Cycle int

	// Period is required by completeness triggers.
	Period string

	// SignalID is required by manual triggers.
	SignalID string

	// RequestKey, when set, replaces the derived trigger reference so a
	// caller can retry safely.
	RequestKey string

	// NominalValue overrides the value credited to a RotationSingle recipient.
	NominalValue decimal.Decimal

	// Emergency requests an emergency withdrawal instead of a normal firing.
	Emergency *EmergencyRequest
}

// EmergencyRequest names the member and amount of an emergency withdrawal.
type EmergencyRequest struct {
	MemberID string
	Amount   decimal.Decimal
}

// Plan is a validated firing ready to be committed.
type Plan struct {
	TriggerRef string
	Shape      models.DistributionShape
	Evaluation Evaluation
	Payouts    []*models.Payout

	// CycleComplete is true when, after these payouts, no member is left to
	// receive in a RotationSingle cycle.
	CycleComplete bool
}

// Total is the cash disbursed by the plan.
func (p *Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, payout := range p.Payouts {
		total = total.Add(payout.Amount)
	}
	return total
}

// PlanPayout turns a trigger firing into processed payouts without writing
// anything. Checks run in this order: cycle state, trigger reference reuse,
// rotation completeness, trigger condition, balance. Cycles are paid in
// order: nothing is paid in cycle N until cycle N-1 is fully distributed.
func PlanPayout(snap *Snapshot, req ProcessRequest, now time.Time) (*Plan, error) {
	if req.Cycle < 1 {
		return nil, fmt.Errorf("%w: cycle must be >= 1", models.ErrValidation)
	}
	if snap.Cycle != nil && snap.Cycle.Settled {
		return nil, fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, req.Cycle)
	}
	if prev := req.Cycle - 1; prev >= 1 && !snap.CycleDistributed(prev) {
		return nil, fmt.Errorf("%w: cycle %d is not fully distributed yet", models.ErrNotReady, prev)
	}
	if snap.Policy.Family == models.FamilyManual && strings.TrimSpace(req.SignalID) == "" {
		return nil, fmt.Errorf("%w: manual trigger requires a signal id", models.ErrValidation)
	}
	if snap.Policy.Family == models.FamilyCompleteness && req.Emergency == nil {
		if _, err := models.ParsePeriod(req.Period); err != nil {
			return nil, err
		}
	}

	ref := triggerRef(snap, req)
	if snap.hasTriggerRef(ref) {
		return nil, fmt.Errorf("%w: trigger %s already paid out", models.ErrAlreadyProcessed, ref)
	}

	if req.Emergency != nil {
		return planEmergency(snap, req, ref, now)
	}

	plan := &Plan{TriggerRef: ref, Shape: snap.Policy.Shape}
	switch snap.Policy.Shape {
	case models.ShapeRotationSingle:
		if err := planRotation(snap, req, plan, now); err != nil {
			return nil, err
		}
	case models.ShapeEqualShare:
		if err := planEqualShare(snap, req, plan, now); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown distribution shape %q", models.ErrValidation, snap.Policy.Shape)
	}
	return plan, nil
}

func planRotation(snap *Snapshot, req ProcessRequest, plan *Plan, now time.Time) error {
	recipient := NextEligible(snap.Members, snap.Payouts, req.Cycle)
	if recipient == nil {
		if len(snap.DistributionPayouts(req.Cycle)) > 0 {
			return fmt.Errorf("%w: every eligible member has received in cycle %d", models.ErrAlreadyProcessed, req.Cycle)
		}
		return fmt.Errorf("%w: no eligible members in cycle %d", models.ErrNotReady, req.Cycle)
	}

	ev, err := fire(snap, req)
	if err != nil {
		return err
	}
	plan.Evaluation = ev

	rollover := snap.Stokvel.Rules.MinimumRolloverBalance
	amount := ev.Available.Sub(rollover)
	if snap.Stokvel.HasTarget() {
		amount = snap.Stokvel.TargetAmount
	}
	amount = amount.RoundDown(2)
	if !amount.IsPositive() {
		return fmt.Errorf("%w: nothing above the rollover floor of %s", models.ErrInsufficientBalance, rollover.StringFixed(2))
	}
	if err := checkFloor(ev.Available, amount, rollover); err != nil {
		return err
	}

	nominal := amount
	if req.NominalValue.IsPositive() {
		nominal = req.NominalValue.Round(2)
	} else if snap.Stokvel.HasTarget() {
		nominal = snap.Stokvel.TargetAmount
	}

	payout, err := newPayout(snap, req.Cycle, recipient.ID, amount, nominal, models.PayoutRotation, plan.TriggerRef, now)
	if err != nil {
		return err
	}
	plan.Payouts = []*models.Payout{payout}
	plan.CycleComplete = NextEligible(snap.Members, append(snap.DistributionPayouts(req.Cycle), payout), req.Cycle) == nil
	return nil
}

func planEqualShare(snap *Snapshot, req ProcessRequest, plan *Plan, now time.Time) error {
	if len(snap.DistributionPayouts(req.Cycle)) > 0 {
		return fmt.Errorf("%w: cycle %d has already been distributed", models.ErrAlreadyProcessed, req.Cycle)
	}

	var recipients []*models.Member
	for _, m := range snap.Members {
		if m.EligibleIn(req.Cycle) {
			recipients = append(recipients, m)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("%w: no eligible members in cycle %d", models.ErrNotReady, req.Cycle)
	}

	ev, err := fire(snap, req)
	if err != nil {
		return err
	}
	plan.Evaluation = ev

	pool := ev.Available.Sub(snap.Stokvel.Rules.MinimumRolloverBalance)
	minimum := decimal.New(int64(len(recipients)), -2)
	if pool.LessThan(minimum) {
		return fmt.Errorf("%w: %s above the rollover floor cannot be shared by %d members",
			models.ErrInsufficientBalance, pool.StringFixed(2), len(recipients))
	}
	shares, err := calculator.SplitEqually(pool, len(recipients))
	if err != nil {
		return fmt.Errorf("failed to split pool: %w", err)
	}

	for i, m := range recipients {
		payout, err := newPayout(snap, req.Cycle, m.ID, shares[i], shares[i], models.PayoutEqualShare, plan.TriggerRef, now)
		if err != nil {
			return err
		}
		plan.Payouts = append(plan.Payouts, payout)
	}
	if err := checkFloor(ev.Available, plan.Total(), snap.Stokvel.Rules.MinimumRolloverBalance); err != nil {
		return err
	}
	return nil
}

func planEmergency(snap *Snapshot, req ProcessRequest, ref string, now time.Time) (*Plan, error) {
	rules := snap.Stokvel.Rules
	if snap.Policy.Family != models.FamilyManual {
		return nil, fmt.Errorf("%w: emergency withdrawals only apply to manual-trigger stokvels", models.ErrValidation)
	}
	if !rules.AllowEmergencyWithdrawals {
		return nil, fmt.Errorf("%w: emergency withdrawals are disabled", models.ErrValidation)
	}
	amount := req.Emergency.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: emergency amount must be positive", models.ErrValidation)
	}
	if amount.GreaterThan(rules.EmergencyWithdrawalLimit) {
		return nil, fmt.Errorf("%w: emergency amount %s exceeds limit %s",
			models.ErrValidation, amount.StringFixed(2), rules.EmergencyWithdrawalLimit.StringFixed(2))
	}

	member, ok := snap.Member(req.Emergency.MemberID)
	if !ok {
		return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, req.Emergency.MemberID)
	}
	if member.Status != models.MemberActive {
		return nil, fmt.Errorf("%w: member %s is %s", models.ErrValidation, member.ID, member.Status)
	}
	if withdrewIn(snap.Payouts, req.Cycle)[member.ID] {
		return nil, fmt.Errorf("%w: member %s already made an emergency withdrawal in cycle %d", models.ErrAlreadyProcessed, member.ID, req.Cycle)
	}

	ev, err := fire(snap, req)
	if err != nil {
		return nil, err
	}
	if err := checkFloor(ev.Available, amount, rules.MinimumRolloverBalance); err != nil {
		return nil, err
	}

	payout, err := newPayout(snap, req.Cycle, member.ID, amount, amount, models.PayoutEmergency, ref, now)
	if err != nil {
		return nil, err
	}
	// A withdrawal never takes a rotation turn, so it cannot complete a cycle.
	return &Plan{
		TriggerRef: ref,
		Shape:      snap.Policy.Shape,
		Evaluation: ev,
		Payouts:    []*models.Payout{payout},
	}, nil
}

// fire evaluates the trigger and fails with ErrNotReady if it has not fired.
func fire(snap *Snapshot, req ProcessRequest) (Evaluation, error) {
	ev := Evaluate(snap, TriggerInput{Period: req.Period, SignalID: req.SignalID})
	if !ev.Fired {
		return ev, fmt.Errorf("%w: %s", models.ErrNotReady, ev.Reason)
	}
	return ev, nil
}

// checkFloor fails when paying amount would leave less than the rollover floor.
func checkFloor(available, amount, rollover decimal.Decimal) error {
	if available.Sub(amount).LessThan(rollover) {
		return fmt.Errorf("%w: paying %s from %s would breach the rollover floor of %s",
			models.ErrInsufficientBalance, amount.StringFixed(2), available.StringFixed(2), rollover.StringFixed(2))
	}
	return nil
}

func newPayout(snap *Snapshot, cycle int, memberID string, amount, nominal decimal.Decimal, kind models.PayoutKind, ref string, now time.Time) (*models.Payout, error) {
	p := &models.Payout{
		StokvelID:    snap.Stokvel.ID,
		MemberID:     memberID,
		CycleNumber:  cycle,
		Amount:       amount,
		NominalValue: nominal,
		Kind:         kind,
		TriggerRef:   ref,
		Status:       models.PayoutPending,
	}
	if err := p.Process(now); err != nil {
		return nil, err
	}
	return p, nil
}

// triggerRef names the firing a request belongs to. Two requests with the
// same reference can never both pay out.
func triggerRef(snap *Snapshot, req ProcessRequest) string {
	if key := strings.TrimSpace(req.RequestKey); key != "" {
		return key
	}
	if req.Emergency != nil {
		return "emergency:" + strings.TrimSpace(req.SignalID)
	}
	switch snap.Policy.Family {
	case models.FamilyCompleteness:
		return "period:" + req.Period
	case models.FamilyManual:
		return "signal:" + strings.TrimSpace(req.SignalID)
	default:
		firings := make(map[string]bool)
		for _, p := range snap.Payouts {
			if p.CycleNumber == req.Cycle {
				firings[p.TriggerRef] = true
			}
		}
		return fmt.Sprintf("cycle:%d/firing:%d", req.Cycle, len(firings)+1)
	}
}
