package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StokvelType is the closed set of pool kinds. Each kind maps to a fixed
// trigger family and distribution shape (see engine.PolicyFor).
type StokvelType string

const (
	TypeVehicle         StokvelType = "vehicle"
	TypeGrocery         StokvelType = "grocery"
	TypeBurial          StokvelType = "burial"
	TypeInvestment      StokvelType = "investment"
	TypeEducation       StokvelType = "education"
	TypeChristmas       StokvelType = "christmas"
	TypeHomeImprovement StokvelType = "home_improvement"
	TypeFarming         StokvelType = "farming"
)

// StokvelTypes lists every supported type.
var StokvelTypes = []StokvelType{
	TypeVehicle,
	TypeGrocery,
	TypeBurial,
	TypeInvestment,
	TypeEducation,
	TypeChristmas,
	TypeHomeImprovement,
	TypeFarming,
}

// Valid reports whether t is one of StokvelTypes.
func (t StokvelType) Valid() bool {
	for _, known := range StokvelTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TriggerFamily is the condition family that makes a payout due.
type TriggerFamily string

const (
	FamilyThreshold    TriggerFamily = "threshold"
	FamilyCompleteness TriggerFamily = "completeness"
	FamilyManual       TriggerFamily = "manual"
)

// DistributionShape says how a firing is paid out.
type DistributionShape string

const (
	ShapeRotationSingle DistributionShape = "rotation_single"
	ShapeEqualShare     DistributionShape = "equal_share"
)

// Valid reports whether s is a known shape.
func (s DistributionShape) Valid() bool {
	return s == ShapeRotationSingle || s == ShapeEqualShare
}

// ValueBasis selects what counts as "value received" in fairness settlement.
type ValueBasis string

const (
	// ValueBasisCash uses the cash actually disbursed.
	ValueBasisCash ValueBasis = "cash"
	// ValueBasisNominal uses the nominal value recorded on the payout
	// (e.g. the vehicle's price rather than a discounted bulk purchase).
	ValueBasisNominal ValueBasis = "nominal"
)

// RuleSettings are the per-stokvel policy knobs.
type RuleSettings struct {
	// LatePaymentPenaltyRate is a percentage in [0, 100] deducted from the
	// counted value of a contribution recorded after the grace period.
	LatePaymentPenaltyRate decimal.Decimal

	// GracePeriodDays is how many days after the due date a contribution
	// may be recorded without penalty.
	GracePeriodDays int

	// JoiningFee is charged once per member; zero means none. Members of a
	// stokvel with a fee join as Pending and become Active once their
	// verified contributions cover it.
	JoiningFee decimal.Decimal

	// RequirePaymentVerification keeps new contributions Unverified until an
	// admin decides them. When false they are recorded as Verified.
	RequirePaymentVerification bool

	// AllowEmergencyWithdrawals permits admin-signalled emergency payouts for
	// manual-trigger stokvels.
	AllowEmergencyWithdrawals bool

	// EmergencyWithdrawalLimit caps a single emergency payout.
	EmergencyWithdrawalLimit decimal.Decimal

	// MinimumRolloverBalance is the floor the pool never drops below.
	MinimumRolloverBalance decimal.Decimal

	// DueDayOfMonth is the day of the period's month a contribution is due.
	// Zero means the 1st.
	DueDayOfMonth int
}

// DefaultRuleSettings returns the settings a new stokvel starts with.
func DefaultRuleSettings() RuleSettings {
	return RuleSettings{
		LatePaymentPenaltyRate:     decimal.Zero,
		GracePeriodDays:            0,
		JoiningFee:                 decimal.Zero,
		RequirePaymentVerification: true,
		EmergencyWithdrawalLimit:   decimal.Zero,
		MinimumRolloverBalance:     decimal.Zero,
		DueDayOfMonth:              1,
	}
}

// DueDay returns the effective due day of month.
func (r RuleSettings) DueDay() int {
	if r.DueDayOfMonth <= 0 {
		return 1
	}
	return r.DueDayOfMonth
}

// Validate checks every field's range.
func (r RuleSettings) Validate() error {
	hundred := decimal.NewFromInt(100)
	switch {
	case r.LatePaymentPenaltyRate.IsNegative() || r.LatePaymentPenaltyRate.GreaterThan(hundred):
		return fmt.Errorf("%w: late_payment_penalty_rate must be between 0 and 100", ErrValidation)
	case r.GracePeriodDays < 0:
		return fmt.Errorf("%w: grace_period_days must be >= 0", ErrValidation)
	case r.JoiningFee.IsNegative():
		return fmt.Errorf("%w: joining_fee must be >= 0", ErrValidation)
	case r.EmergencyWithdrawalLimit.IsNegative():
		return fmt.Errorf("%w: emergency_withdrawal_limit must be >= 0", ErrValidation)
	case r.MinimumRolloverBalance.IsNegative():
		return fmt.Errorf("%w: minimum_rollover_balance must be >= 0", ErrValidation)
	case r.DueDayOfMonth < 0 || r.DueDayOfMonth > 28:
		return fmt.Errorf("%w: due_day_of_month must be between 1 and 28", ErrValidation)
	}
	return nil
}

// Stokvel is a rotating group-savings pool.
type Stokvel struct {
	// ID is the unique identifier (UUID format), assigned by the store.
	ID string

	// Name is the display name (e.g. "Soweto Taxi Club").
	Name string

	// Type selects the trigger family and distribution shape.
	Type StokvelType

	// Currency is an opaque tag carried by every amount in this stokvel.
	Currency string

	// ContributionAmount is the expected per-period contribution.
	ContributionAmount decimal.Decimal

	// TargetAmount is the payout target; zero means unset.
	TargetAmount decimal.Decimal

	// ManualShape is the distribution shape for manual-trigger types
	// (Burial, Investment). Ignored for every other type.
	ManualShape DistributionShape

	// ValueBasis selects cash or nominal value for fairness settlement.
	ValueBasis ValueBasis

	// Rules are the policy settings.
	Rules RuleSettings

	// CreatedAt is when the stokvel was created.
	CreatedAt time.Time

	// PayoutVersion increments with every committed payout firing in any
	// cycle. Payout writes compare and swap it, so two firings planned
	// from the same balance can never both commit.
	PayoutVersion int
}

// RequiresJoiningFee reports whether new members owe a joining fee.
func (s *Stokvel) RequiresJoiningFee() bool {
	return s.Rules.JoiningFee.IsPositive()
}

// HasTarget reports whether a positive target amount is configured.
func (s *Stokvel) HasTarget() bool {
	return s.TargetAmount.IsPositive()
}

// EffectiveValueBasis returns the configured basis, defaulting to cash.
func (s *Stokvel) EffectiveValueBasis() ValueBasis {
	if s.ValueBasis == ValueBasisNominal {
		return ValueBasisNominal
	}
	return ValueBasisCash
}

// Validate checks a stokvel before it is created.
func (s *Stokvel) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown stokvel type %q", ErrValidation, s.Type)
	}
	if strings.TrimSpace(s.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrValidation)
	}
	if !s.ContributionAmount.IsPositive() {
		return fmt.Errorf("%w: contribution_amount must be positive", ErrValidation)
	}
	if s.TargetAmount.IsNegative() {
		return fmt.Errorf("%w: target_amount must be >= 0", ErrValidation)
	}
	if s.ManualShape != "" && !s.ManualShape.Valid() {
		return fmt.Errorf("%w: unknown distribution shape %q", ErrValidation, s.ManualShape)
	}
	if s.ValueBasis != "" && s.ValueBasis != ValueBasisCash && s.ValueBasis != ValueBasisNominal {
		return fmt.Errorf("%w: unknown value basis %q", ErrValidation, s.ValueBasis)
	}
	return s.Rules.Validate()
}
