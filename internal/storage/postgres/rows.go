package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

type stokvelRow struct {
	ID                         string          `gorm:"column:id;primaryKey"`
	Name                       string          `gorm:"column:name;not null"`
	Type                       string          `gorm:"column:type;not null"`
	Currency                   string          `gorm:"column:currency;not null"`
	ContributionAmount         decimal.Decimal `gorm:"column:contribution_amount;type:numeric(20,2);not null"`
	TargetAmount               decimal.Decimal `gorm:"column:target_amount;type:numeric(20,2);not null"`
	ManualShape                string          `gorm:"column:manual_shape"`
	ValueBasis                 string          `gorm:"column:value_basis;not null"`
	LatePaymentPenaltyRate     decimal.Decimal `gorm:"column:late_payment_penalty_rate;type:numeric(7,4);not null"`
	GracePeriodDays            int             `gorm:"column:grace_period_days;not null"`
	JoiningFee                 decimal.Decimal `gorm:"column:joining_fee;type:numeric(20,2);not null"`
	RequirePaymentVerification bool            `gorm:"column:require_payment_verification;not null"`
	AllowEmergencyWithdrawals  bool            `gorm:"column:allow_emergency_withdrawals;not null"`
	EmergencyWithdrawalLimit   decimal.Decimal `gorm:"column:emergency_withdrawal_limit;type:numeric(20,2);not null"`
	MinimumRolloverBalance     decimal.Decimal `gorm:"column:minimum_rollover_balance;type:numeric(20,2);not null"`
	DueDayOfMonth              int             `gorm:"column:due_day_of_month;not null"`
	CreatedAt                  time.Time       `gorm:"column:created_at;not null"`
	PayoutVersion              int             `gorm:"column:payout_version;not null;default:0"`
}

func (stokvelRow) TableName() string {
	return "stokvels"
}

func stokvelRowFromModel(s *models.Stokvel) stokvelRow {
	return stokvelRow{
		ID:                         s.ID,
		Name:                       s.Name,
		Type:                       string(s.Type),
		Currency:                   s.Currency,
		ContributionAmount:         s.ContributionAmount,
		TargetAmount:               s.TargetAmount,
		ManualShape:                string(s.ManualShape),
		ValueBasis:                 string(s.EffectiveValueBasis()),
		LatePaymentPenaltyRate:     s.Rules.LatePaymentPenaltyRate,
		GracePeriodDays:            s.Rules.GracePeriodDays,
		JoiningFee:                 s.Rules.JoiningFee,
		RequirePaymentVerification: s.Rules.RequirePaymentVerification,
		AllowEmergencyWithdrawals:  s.Rules.AllowEmergencyWithdrawals,
		EmergencyWithdrawalLimit:   s.Rules.EmergencyWithdrawalLimit,
		MinimumRolloverBalance:     s.Rules.MinimumRolloverBalance,
		DueDayOfMonth:              s.Rules.DueDay(),
		CreatedAt:                  s.CreatedAt.UTC(),
		PayoutVersion:              s.PayoutVersion,
	}
}

func (r stokvelRow) toModel() *models.Stokvel {
	return &models.Stokvel{
		ID:                 r.ID,
		Name:               r.Name,
		Type:               models.StokvelType(r.Type),
		Currency:           r.Currency,
		ContributionAmount: r.ContributionAmount,
		TargetAmount:       r.TargetAmount,
		ManualShape:        models.DistributionShape(r.ManualShape),
		ValueBasis:         models.ValueBasis(r.ValueBasis),
		Rules: models.RuleSettings{
			LatePaymentPenaltyRate:     r.LatePaymentPenaltyRate,
			GracePeriodDays:            r.GracePeriodDays,
			JoiningFee:                 r.JoiningFee,
			RequirePaymentVerification: r.RequirePaymentVerification,
			AllowEmergencyWithdrawals:  r.AllowEmergencyWithdrawals,
			EmergencyWithdrawalLimit:   r.EmergencyWithdrawalLimit,
			MinimumRolloverBalance:     r.MinimumRolloverBalance,
			DueDayOfMonth:              r.DueDayOfMonth,
		},
		CreatedAt:     r.CreatedAt.UTC(),
		PayoutVersion: r.PayoutVersion,
	}
}

type memberRow struct {
	ID                string    `gorm:"column:id;primaryKey"`
	StokvelID         string    `gorm:"column:stokvel_id;not null;uniqueIndex:idx_members_rotation"`
	UserID            string    `gorm:"column:user_id;not null"`
	DisplayName       string    `gorm:"column:display_name"`
	RotationOrder     int       `gorm:"column:rotation_order;not null;uniqueIndex:idx_members_rotation"`
	Status            string    `gorm:"column:status;not null"`
	EligibleFromCycle int       `gorm:"column:eligible_from_cycle;not null"`
	JoinedAt          time.Time `gorm:"column:joined_at;not null"`
}

func (memberRow) TableName() string {
	return "members"
}

func memberRowFromModel(m *models.Member) memberRow {
	return memberRow{
		ID:                m.ID,
		StokvelID:         m.StokvelID,
		UserID:            m.UserID,
		DisplayName:       m.DisplayName,
		RotationOrder:     m.RotationOrder,
		Status:            string(m.Status),
		EligibleFromCycle: m.EligibleFromCycle,
		JoinedAt:          m.JoinedAt.UTC(),
	}
}

func (r memberRow) toModel() *models.Member {
	return &models.Member{
		ID:                r.ID,
		StokvelID:         r.StokvelID,
		UserID:            r.UserID,
		DisplayName:       r.DisplayName,
		RotationOrder:     r.RotationOrder,
		Status:            models.MemberStatus(r.Status),
		EligibleFromCycle: r.EligibleFromCycle,
		JoinedAt:          r.JoinedAt.UTC(),
	}
}

type contributionRow struct {
	ID            string          `gorm:"column:id;primaryKey"`
	StokvelID     string          `gorm:"column:stokvel_id;not null;index:idx_contributions_stokvel"`
	MemberID      string          `gorm:"column:member_id;not null"`
	CycleNumber   int             `gorm:"column:cycle_number;not null"`
	Period        string          `gorm:"column:period"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	CountedAmount decimal.Decimal `gorm:"column:counted_amount;type:numeric(20,2);not null"`
	Status        string          `gorm:"column:status;not null"`
	ProofRef      string          `gorm:"column:proof_ref"`
	RejectReason  string          `gorm:"column:reject_reason"`
	RecordedAt    time.Time       `gorm:"column:recorded_at;not null;index:idx_contributions_stokvel"`
	DecidedAt     *time.Time      `gorm:"column:decided_at"`
}

func (contributionRow) TableName() string {
	return "contributions"
}

func contributionRowFromModel(c *models.Contribution) contributionRow {
	return contributionRow{
		ID:            c.ID,
		StokvelID:     c.StokvelID,
		MemberID:      c.MemberID,
		CycleNumber:   c.CycleNumber,
		Period:        c.Period,
		Amount:        c.Amount,
		CountedAmount: c.CountedAmount,
		Status:        string(c.Status),
		ProofRef:      c.ProofRef,
		RejectReason:  c.RejectReason,
		RecordedAt:    c.RecordedAt.UTC(),
		DecidedAt:     utcPtr(c.DecidedAt),
	}
}

func (r contributionRow) toModel() *models.Contribution {
	return &models.Contribution{
		ID:            r.ID,
		StokvelID:     r.StokvelID,
		MemberID:      r.MemberID,
		CycleNumber:   r.CycleNumber,
		Period:        r.Period,
		Amount:        r.Amount,
		CountedAmount: r.CountedAmount,
		Status:        models.ContributionStatus(r.Status),
		ProofRef:      r.ProofRef,
		RejectReason:  r.RejectReason,
		RecordedAt:    r.RecordedAt.UTC(),
		DecidedAt:     utcPtr(r.DecidedAt),
	}
}

type cycleRow struct {
	StokvelID   string     `gorm:"column:stokvel_id;primaryKey"`
	CycleNumber int        `gorm:"column:cycle_number;primaryKey;autoIncrement:false"`
	Version     int        `gorm:"column:version;not null"`
	Settled     bool       `gorm:"column:settled;not null"`
	SettledAt   *time.Time `gorm:"column:settled_at"`
}

func (cycleRow) TableName() string {
	return "cycles"
}

func (r cycleRow) toModel() *models.Cycle {
	return &models.Cycle{
		StokvelID: r.StokvelID,
		Number:    r.CycleNumber,
		Version:   r.Version,
		Settled:   r.Settled,
		SettledAt: utcPtr(r.SettledAt),
	}
}

type payoutRow struct {
	ID           string          `gorm:"column:id;primaryKey"`
	StokvelID    string          `gorm:"column:stokvel_id;not null;uniqueIndex:idx_payouts_member_cycle"`
	MemberID     string          `gorm:"column:member_id;not null;uniqueIndex:idx_payouts_member_cycle"`
	CycleNumber  int             `gorm:"column:cycle_number;not null;uniqueIndex:idx_payouts_member_cycle"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	NominalValue decimal.Decimal `gorm:"column:nominal_value;type:numeric(20,2);not null"`
	Kind         string          `gorm:"column:kind;not null;uniqueIndex:idx_payouts_member_cycle"`
	TriggerRef   string          `gorm:"column:trigger_ref;not null"`
	Status       string          `gorm:"column:status;not null"`
	ProcessedAt  *time.Time      `gorm:"column:processed_at"`
}

func (payoutRow) TableName() string {
	return "payouts"
}

func payoutRowFromModel(stokvelID string, cycle int, p *models.Payout) payoutRow {
	return payoutRow{
		ID:           p.ID,
		StokvelID:    stokvelID,
		MemberID:     p.MemberID,
		CycleNumber:  cycle,
		Amount:       p.Amount,
		NominalValue: p.NominalValue,
		Kind:         string(p.Kind),
		TriggerRef:   p.TriggerRef,
		Status:       string(p.Status),
		ProcessedAt:  utcPtr(p.ProcessedAt),
	}
}

func (r payoutRow) toModel() *models.Payout {
	return &models.Payout{
		ID:           r.ID,
		StokvelID:    r.StokvelID,
		MemberID:     r.MemberID,
		CycleNumber:  r.CycleNumber,
		Amount:       r.Amount,
		NominalValue: r.NominalValue,
		Kind:         models.PayoutKind(r.Kind),
		TriggerRef:   r.TriggerRef,
		Status:       models.PayoutStatus(r.Status),
		ProcessedAt:  utcPtr(r.ProcessedAt),
	}
}

type adjustmentRow struct {
	ID               string          `gorm:"column:id;primaryKey"`
	StokvelID        string          `gorm:"column:stokvel_id;not null;uniqueIndex:idx_adjustments_member_cycle"`
	MemberID         string          `gorm:"column:member_id;not null;uniqueIndex:idx_adjustments_member_cycle"`
	CycleNumber      int             `gorm:"column:cycle_number;not null;uniqueIndex:idx_adjustments_member_cycle"`
	NetPosition      decimal.Decimal `gorm:"column:net_position;type:numeric(20,2);not null"`
	AdjustmentAmount decimal.Decimal `gorm:"column:adjustment_amount;type:numeric(20,2);not null"`
	Settled          bool            `gorm:"column:settled;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;not null"`
	SettledAt        *time.Time      `gorm:"column:settled_at"`
}

func (adjustmentRow) TableName() string {
	return "adjustments"
}

func adjustmentRowFromModel(stokvelID string, cycle int, a *models.Adjustment) adjustmentRow {
	return adjustmentRow{
		ID:               a.ID,
		StokvelID:        stokvelID,
		MemberID:         a.MemberID,
		CycleNumber:      cycle,
		NetPosition:      a.NetPosition,
		AdjustmentAmount: a.AdjustmentAmount,
		Settled:          a.Settled,
		CreatedAt:        a.CreatedAt.UTC(),
		SettledAt:        utcPtr(a.SettledAt),
	}
}

func (r adjustmentRow) toModel() *models.Adjustment {
	return &models.Adjustment{
		ID:               r.ID,
		StokvelID:        r.StokvelID,
		MemberID:         r.MemberID,
		CycleNumber:      r.CycleNumber,
		NetPosition:      r.NetPosition,
		AdjustmentAmount: r.AdjustmentAmount,
		Settled:          r.Settled,
		CreatedAt:        r.CreatedAt.UTC(),
		SettledAt:        utcPtr(r.SettledAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
