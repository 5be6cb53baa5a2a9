// Package engine implements the rotation and fairness settlement engine.
//
// Decisions (trigger evaluation, recipient selection, payout amounts,
// fairness adjustments) are pure functions over a Snapshot. Engine loads
// snapshots from a storage.Store, runs those functions and commits the
// result, relying on the store's compare-and-swap per (stokvel, cycle) to
// reject concurrent firings.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/lease"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

// DefaultLeaseTTL bounds how long a settlement lease is held.
const DefaultLeaseTTL = 30 * time.Second

// Observer receives engine events, typically to update metrics.
type Observer interface {
	ContributionDecided(stokvelType models.StokvelType, status models.ContributionStatus)
	PayoutsProcessed(stokvelType models.StokvelType, shape models.DistributionShape, payouts []*models.Payout)
	CycleSettled(stokvelType models.StokvelType, adjustments []*models.Adjustment)
}

type nopObserver struct{}

func (nopObserver) ContributionDecided(models.StokvelType, models.ContributionStatus) {}
func (nopObserver) PayoutsProcessed(models.StokvelType, models.DistributionShape, []*models.Payout) {}
func (nopObserver) CycleSettled(models.StokvelType, []*models.Adjustment) {}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Locker   lease.Locker
	Logger   *slog.Logger
	Observer Observer
	Clock    func() time.Time
	LeaseTTL time.Duration
}

// Engine runs every stokvel operation against a Store.
type Engine struct {
	store    storage.Store
	locker   lease.Locker
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	leaseTTL time.Duration
}

// New creates an Engine.
func New(store storage.Store, opts Options) *Engine {
	e := &Engine{
		store:    store,
		locker:   opts.Locker,
		logger:   opts.Logger,
		observer: opts.Observer,
		now:      opts.Clock,
		leaseTTL: opts.LeaseTTL,
	}
	if e.locker == nil {
		e.locker = lease.NewLocal()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.leaseTTL <= 0 {
		e.leaseTTL = DefaultLeaseTTL
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// CreateStokvel validates and persists a new stokvel.
func (e *Engine) CreateStokvel(ctx context.Context, stokvel *models.Stokvel) error {
	if stokvel.Rules.DueDayOfMonth == 0 {
		stokvel.Rules.DueDayOfMonth = 1
	}
	if stokvel.ValueBasis == "" {
		stokvel.ValueBasis = models.ValueBasisCash
	}
	if err := stokvel.Validate(); err != nil {
		return err
	}
	if _, err := PolicyFor(stokvel.Type, stokvel.ManualShape); err != nil {
		return err
	}
	if stokvel.CreatedAt.IsZero() {
		stokvel.CreatedAt = e.clock()
	}
	if err := e.store.CreateStokvel(ctx, stokvel); err != nil {
		return fmt.Errorf("failed to create stokvel: %w", err)
	}
	e.logger.Info("stokvel created", "stokvel_id", stokvel.ID, "type", stokvel.Type, "currency", stokvel.Currency)
	return nil
}

// GetStokvel returns a stokvel and its policy.
func (e *Engine) GetStokvel(ctx context.Context, stokvelID string) (*models.Stokvel, Policy, error) {
	stokvel, err := e.store.GetStokvel(ctx, stokvelID)
	if err != nil {
		return nil, Policy{}, err
	}
	policy, err := PolicyFor(stokvel.Type, stokvel.ManualShape)
	if err != nil {
		return nil, Policy{}, err
	}
	return stokvel, policy, nil
}

// ListStokvels returns every stokvel, oldest first.
func (e *Engine) ListStokvels(ctx context.Context) ([]*models.Stokvel, error) {
	return e.store.ListStokvels(ctx)
}

// NewMember describes a member to add.
type NewMember struct {
	StokvelID   string
	UserID      string
	DisplayName string

	// JoinCycle is the cycle in progress when the member joins. If it
	// already has payouts the member becomes eligible from the next cycle.
	JoinCycle int

	// Status defaults to Active.
	Status models.MemberStatus
}

// AddMember appends a member at the end of the rotation.
func (e *Engine) AddMember(ctx context.Context, in NewMember) (*models.Member, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown member status %q", models.ErrValidation, in.Status)
	}
	joinCycle := in.JoinCycle
	if joinCycle < 1 {
		joinCycle = 1
	}

	snap, err := loadSnapshot(ctx, e.store, in.StokvelID, 0)
	if err != nil {
		return nil, err
	}
	status := in.Status
	switch {
	case status == "" && snap.Stokvel.RequiresJoiningFee():
		status = models.MemberPending
	case status == "":
		status = models.MemberActive
	case status == models.MemberActive && snap.Stokvel.RequiresJoiningFee():
		return nil, fmt.Errorf("%w: members join as pending until the joining fee of %s is paid",
			models.ErrValidation, snap.Stokvel.Rules.JoiningFee.StringFixed(2))
	}
	for _, m := range snap.Members {
		if m.UserID == in.UserID && m.Status != models.MemberInactive {
			return nil, fmt.Errorf("%w: user %s is already a member", models.ErrValidation, in.UserID)
		}
	}

	eligibleFrom := joinCycle
	if len(snap.DistributionPayouts(joinCycle)) > 0 {
		eligibleFrom = joinCycle + 1
	}

	member := &models.Member{
		StokvelID:         in.StokvelID,
		UserID:            in.UserID,
		DisplayName:       in.DisplayName,
		RotationOrder:     nextRotationOrder(snap.Members),
		Status:            status,
		EligibleFromCycle: eligibleFrom,
		JoinedAt:          e.clock(),
	}
	if err := e.store.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	e.logger.Info("member added",
		"stokvel_id", member.StokvelID,
		"member_id", member.ID,
		"rotation_order", member.RotationOrder,
		"eligible_from_cycle", member.EligibleFromCycle,
		"status", member.Status,
	)
	return member, nil
}

// ListMembers returns a stokvel's members in rotation order.
func (e *Engine) ListMembers(ctx context.Context, stokvelID string) ([]*models.Member, error) {
	if _, err := e.store.GetStokvel(ctx, stokvelID); err != nil {
		return nil, err
	}
	return e.store.ListMembers(ctx, stokvelID)
}

// GetMember returns one member of a stokvel.
func (e *Engine) GetMember(ctx context.Context, stokvelID, memberID string) (*models.Member, error) {
	return e.store.GetMember(ctx, stokvelID, memberID)
}

// SetMemberStatus activates, deactivates or suspends a member. Deactivated
// members keep their rotation order. A pending member of a stokvel with a
// joining fee is only activated once the fee is covered.
func (e *Engine) SetMemberStatus(ctx context.Context, stokvelID, memberID string, status models.MemberStatus) (*models.Member, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown member status %q", models.ErrValidation, status)
	}
	stokvel, err := e.store.GetStokvel(ctx, stokvelID)
	if err != nil {
		return nil, err
	}
	member, err := e.store.GetMember(ctx, stokvelID, memberID)
	if err != nil {
		return nil, err
	}
	previous := member.Status
	if previous == models.MemberPending && status == models.MemberActive && stokvel.RequiresJoiningFee() {
		paid, err := e.VerifiedBalance(ctx, stokvelID, memberID)
		if err != nil {
			return nil, err
		}
		if paid.LessThan(stokvel.Rules.JoiningFee) {
			return nil, fmt.Errorf("%w: member %s has paid %s of the %s joining fee",
				models.ErrValidation, memberID, paid.StringFixed(2), stokvel.Rules.JoiningFee.StringFixed(2))
		}
	}
	member.Status = status
	if err := e.store.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	e.logger.Info("member status changed", "stokvel_id", stokvelID, "member_id", memberID, "from", previous, "to", status)
	return member, nil
}

// BackfillMember makes a member eligible from an earlier cycle, e.g. a
// mid-cycle joiner admitted to the current rotation.
func (e *Engine) BackfillMember(ctx context.Context, stokvelID, memberID string, cycle int) (*models.Member, error) {
	if cycle < 1 {
		return nil, fmt.Errorf("%w: cycle must be >= 1", models.ErrValidation)
	}
	member, err := e.store.GetMember(ctx, stokvelID, memberID)
	if err != nil {
		return nil, err
	}
	c, err := e.store.GetCycle(ctx, stokvelID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to load cycle %d: %w", cycle, err)
	}
	if c.Settled {
		return nil, fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}
	if member.EligibleFromCycle <= cycle {
		return member, nil
	}
	member.EligibleFromCycle = cycle
	if err := e.store.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	e.logger.Info("member back-filled", "stokvel_id", stokvelID, "member_id", memberID, "cycle", cycle)
	return member, nil
}

// NewContribution describes a submitted contribution.
type NewContribution struct {
	StokvelID   string
	MemberID    string
	CycleNumber int
	Period      string
	Amount      decimal.Decimal
	ProofRef    string

	// RecordedAt defaults to now.
	RecordedAt time.Time
}

// RecordContribution appends a contribution to the ledger. When the stokvel
// does not require verification it is stored already verified.
func (e *Engine) RecordContribution(ctx context.Context, in NewContribution) (*models.Contribution, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if _, err := models.ParsePeriod(in.Period); err != nil {
		return nil, err
	}
	if in.CycleNumber < 1 {
		return nil, fmt.Errorf("%w: cycle must be >= 1", models.ErrValidation)
	}

	stokvel, err := e.store.GetStokvel(ctx, in.StokvelID)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetMember(ctx, in.StokvelID, in.MemberID); err != nil {
		return nil, err
	}

	recordedAt := in.RecordedAt.UTC()
	if in.RecordedAt.IsZero() {
		recordedAt = e.clock()
	}
	c := &models.Contribution{
		StokvelID:   in.StokvelID,
		MemberID:    in.MemberID,
		CycleNumber: in.CycleNumber,
		Period:      in.Period,
		Amount:      in.Amount.Round(2),
		Status:      models.ContributionUnverified,
		ProofRef:    in.ProofRef,
		RecordedAt:  recordedAt,
	}
	if !stokvel.Rules.RequirePaymentVerification {
		if c.CountedAmount, err = CountedValue(c, stokvel.Rules); err != nil {
			return nil, err
		}
		decidedAt := recordedAt
		c.Status = models.ContributionVerified
		c.DecidedAt = &decidedAt
	}

	if err := e.store.CreateContribution(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}

	e.logger.Info("contribution recorded",
		"stokvel_id", c.StokvelID,
		"member_id", c.MemberID,
		"contribution_id", c.ID,
		"period", c.Period,
		"status", c.Status,
	)
	if c.IsVerified() {
		e.observer.ContributionDecided(stokvel.Type, c.Status)
		e.admitIfFeePaid(ctx, stokvel, c.MemberID)
	}
	return c, nil
}

// admitIfFeePaid activates a pending member once their verified
// contributions cover the joining fee. The contribution is already
// committed, so a failure here is logged and left for an admin.
func (e *Engine) admitIfFeePaid(ctx context.Context, stokvel *models.Stokvel, memberID string) {
	if !stokvel.RequiresJoiningFee() {
		return
	}
	member, err := e.store.GetMember(ctx, stokvel.ID, memberID)
	if err != nil || member.Status != models.MemberPending {
		return
	}
	paid, err := e.VerifiedBalance(ctx, stokvel.ID, memberID)
	if err != nil {
		e.logger.Error("failed to check joining fee", "stokvel_id", stokvel.ID, "member_id", memberID, "error", err)
		return
	}
	if paid.LessThan(stokvel.Rules.JoiningFee) {
		return
	}
	member.Status = models.MemberActive
	if err := e.store.UpdateMember(ctx, member); err != nil {
		e.logger.Error("failed to admit member", "stokvel_id", stokvel.ID, "member_id", memberID, "error", err)
		return
	}
	e.logger.Info("member admitted", "stokvel_id", stokvel.ID, "member_id", memberID, "joining_fee", stokvel.Rules.JoiningFee.StringFixed(2))
}

// VerifyContribution confirms an unverified contribution and fixes its
// counted value, applying any late-payment penalty.
func (e *Engine) VerifyContribution(ctx context.Context, stokvelID, contributionID string) (*models.Contribution, error) {
	return e.decide(ctx, stokvelID, contributionID, models.ContributionVerified, "")
}

// RejectContribution refuses an unverified contribution. Rejected
// contributions never count toward any balance.
func (e *Engine) RejectContribution(ctx context.Context, stokvelID, contributionID, reason string) (*models.Contribution, error) {
	return e.decide(ctx, stokvelID, contributionID, models.ContributionRejected, reason)
}

func (e *Engine) decide(ctx context.Context, stokvelID, contributionID string, to models.ContributionStatus, reason string) (*models.Contribution, error) {
	stokvel, err := e.store.GetStokvel(ctx, stokvelID)
	if err != nil {
		return nil, err
	}
	c, err := e.store.GetContribution(ctx, stokvelID, contributionID)
	if err != nil {
		return nil, err
	}
	if err := c.Status.CanTransition(to); err != nil {
		return nil, fmt.Errorf("contribution %s: %w", c.ID, err)
	}

	decidedAt := e.clock()
	c.Status = to
	c.DecidedAt = &decidedAt
	if to == models.ContributionVerified {
		if c.CountedAmount, err = CountedValue(c, stokvel.Rules); err != nil {
			return nil, err
		}
	} else {
		c.RejectReason = reason
	}

	// The store re-checks the unverified status so two racing decisions
	// cannot both land.
	if err := e.store.DecideContribution(ctx, c); err != nil {
		return nil, err
	}

	e.logger.Info("contribution decided",
		"stokvel_id", stokvelID,
		"member_id", c.MemberID,
		"contribution_id", c.ID,
		"status", c.Status,
		"counted_amount", c.CountedAmount.StringFixed(2),
	)
	e.observer.ContributionDecided(stokvel.Type, c.Status)
	if c.IsVerified() {
		e.admitIfFeePaid(ctx, stokvel, c.MemberID)
	}
	return c, nil
}

// VerifiedBalance is a member's verified contributions across all cycles.
func (e *Engine) VerifiedBalance(ctx context.Context, stokvelID, memberID string) (decimal.Decimal, error) {
	if _, err := e.store.GetMember(ctx, stokvelID, memberID); err != nil {
		return decimal.Zero, err
	}
	contributions, err := e.store.ListContributions(ctx, stokvelID, storage.ContributionFilter{
		MemberID: memberID,
		Status:   models.ContributionVerified,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load contributions: %w", err)
	}
	return NewLedger(contributions, nil).VerifiedBalance(memberID), nil
}

// VerifiedTotal is a stokvel's verified contributions across all cycles.
func (e *Engine) VerifiedTotal(ctx context.Context, stokvelID string) (decimal.Decimal, error) {
	snap, err := loadSnapshot(ctx, e.store, stokvelID, 0)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Ledger.VerifiedTotal(), nil
}

// ListUnverified returns contributions awaiting a decision, oldest first.
func (e *Engine) ListUnverified(ctx context.Context, stokvelID string) ([]*models.Contribution, error) {
	if _, err := e.store.GetStokvel(ctx, stokvelID); err != nil {
		return nil, err
	}
	return e.store.ListContributions(ctx, stokvelID, storage.ContributionFilter{Status: models.ContributionUnverified})
}

// Status summarizes a stokvel's pool.
type Status struct {
	Stokvel              *models.Stokvel
	Policy               Policy
	VerifiedTotal        decimal.Decimal
	Disbursed            decimal.Decimal
	Available            decimal.Decimal
	ActiveMembers        int
	PendingContributions int
}

// GetStatus summarizes a stokvel's balances and membership.
func (e *Engine) GetStatus(ctx context.Context, stokvelID string) (*Status, error) {
	snap, err := loadSnapshot(ctx, e.store, stokvelID, 0)
	if err != nil {
		return nil, err
	}
	st := &Status{
		Stokvel:              snap.Stokvel,
		Policy:               snap.Policy,
		VerifiedTotal:        snap.Ledger.VerifiedTotal(),
		Disbursed:            snap.Ledger.Disbursed(),
		Available:            snap.Ledger.Available(),
		PendingContributions: len(snap.Ledger.Unverified()),
	}
	for _, m := range snap.Members {
		if m.Status == models.MemberActive {
			st.ActiveMembers++
		}
	}
	return st, nil
}

// NextEligible returns the next RotationSingle recipient of cycle, or nil
// when every eligible member has received.
func (e *Engine) NextEligible(ctx context.Context, stokvelID string, cycle int) (*models.Member, error) {
	if cycle < 1 {
		return nil, fmt.Errorf("%w: cycle must be >= 1", models.ErrValidation)
	}
	snap, err := loadSnapshot(ctx, e.store, stokvelID, 0)
	if err != nil {
		return nil, err
	}
	return NextEligible(snap.Members, snap.Payouts, cycle), nil
}

// EvaluateTrigger reports whether the stokvel's payout trigger has fired.
// It never writes.
func (e *Engine) EvaluateTrigger(ctx context.Context, stokvelID string, in TriggerInput) (Evaluation, error) {
	snap, err := loadSnapshot(ctx, e.store, stokvelID, 0)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(snap, in), nil
}

// Process pays out one trigger firing. Concurrent calls for the same
// stokvel race on its payout version whatever their cycles; the loser fails
// with ErrConflict and may retry after reloading.
func (e *Engine) Process(ctx context.Context, req ProcessRequest) (*Plan, error) {
	snap, err := loadSnapshot(ctx, e.store, req.StokvelID, req.Cycle)
	if err != nil {
		return nil, err
	}
	plan, err := PlanPayout(snap, req, e.clock())
	if err != nil {
		return nil, err
	}

	if err := e.store.SavePayouts(ctx, req.StokvelID, req.Cycle, snap.Stokvel.PayoutVersion, plan.Payouts); err != nil {
		return nil, fmt.Errorf("failed to save payouts: %w", err)
	}

	for _, p := range plan.Payouts {
		e.logger.Info("payout processed",
			"stokvel_id", req.StokvelID,
			"cycle", req.Cycle,
			"member_id", p.MemberID,
			"amount", p.Amount.StringFixed(2),
			"kind", p.Kind,
			"trigger_ref", p.TriggerRef,
		)
	}
	if plan.CycleComplete {
		e.logger.Info("cycle complete", "stokvel_id", req.StokvelID, "cycle", req.Cycle)
	}
	e.observer.PayoutsProcessed(snap.Stokvel.Type, plan.Shape, plan.Payouts)
	return plan, nil
}

// ListPayouts returns payouts of one cycle, or of every cycle when cycle is 0.
func (e *Engine) ListPayouts(ctx context.Context, stokvelID string, cycle int) ([]*models.Payout, error) {
	if _, err := e.store.GetStokvel(ctx, stokvelID); err != nil {
		return nil, err
	}
	return e.store.ListPayouts(ctx, stokvelID, cycle)
}

// Settle runs fairness settlement for a completed cycle. At most one
// settlement runs per cycle: callers are serialized by a lease and the store
// refuses a second write.
func (e *Engine) Settle(ctx context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error) {
	held, err := e.locker.Acquire(ctx, lease.SettlementKey(stokvelID, cycle), e.leaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return nil, fmt.Errorf("%w: settlement of cycle %d is already running", models.ErrConflict, cycle)
		}
		return nil, err
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("failed to release settlement lease", "stokvel_id", stokvelID, "cycle", cycle, "error", err)
		}
	}()

	snap, err := loadSnapshot(ctx, e.store, stokvelID, cycle)
	if err != nil {
		return nil, err
	}
	adjustments, err := PlanSettlement(snap, cycle, e.clock())
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveAdjustments(ctx, stokvelID, cycle, adjustments); err != nil {
		return nil, fmt.Errorf("failed to save adjustments: %w", err)
	}

	e.logger.Info("cycle settled", "stokvel_id", stokvelID, "cycle", cycle, "members", len(adjustments))
	e.observer.CycleSettled(snap.Stokvel.Type, adjustments)
	return adjustments, nil
}

// ListAdjustments returns adjustments of one cycle, or of every cycle when cycle is 0.
func (e *Engine) ListAdjustments(ctx context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error) {
	if _, err := e.store.GetStokvel(ctx, stokvelID); err != nil {
		return nil, err
	}
	return e.store.ListAdjustments(ctx, stokvelID, cycle)
}

// MarkAdjustmentSettled records that an adjustment's money has moved.
func (e *Engine) MarkAdjustmentSettled(ctx context.Context, stokvelID, adjustmentID string) (*models.Adjustment, error) {
	a, err := e.store.SettleAdjustment(ctx, stokvelID, adjustmentID, e.clock())
	if err != nil {
		return nil, err
	}
	e.logger.Info("adjustment settled",
		"stokvel_id", stokvelID,
		"member_id", a.MemberID,
		"cycle", a.CycleNumber,
		"amount", a.AdjustmentAmount.StringFixed(2),
	)
	return a, nil
}
