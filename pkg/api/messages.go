// Package api defines the wire messages and RPC bindings of the stokvel
// service. Messages travel as JSON; amounts are decimal strings.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleSettings struct {
	LatePaymentPenaltyRate    decimal.Decimal `json:"late_payment_penalty_rate"`
	GracePeriodDays           int             `json:"grace_period_days"`
	JoiningFee                decimal.Decimal `json:"joining_fee"`
	AllowEmergencyWithdrawals bool            `json:"allow_emergency_withdrawals"`
	EmergencyWithdrawalLimit  decimal.Decimal `json:"emergency_withdrawal_limit"`
	MinimumRolloverBalance    decimal.Decimal `json:"minimum_rollover_balance"`
	DueDayOfMonth             int             `json:"due_day_of_month"`

	// RequirePaymentVerification defaults to true when omitted.
	RequirePaymentVerification *bool `json:"require_payment_verification,omitempty"`
}

type Stokvel struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	Currency           string          `json:"currency"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	ManualShape        string          `json:"manual_shape,omitempty"`
	ValueBasis         string          `json:"value_basis,omitempty"`
	Rules              RuleSettings    `json:"rules"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Policy is the trigger family and distribution shape derived from a
// stokvel's type.
type Policy struct {
	Family string `json:"family"`
	Shape  string `json:"shape"`
}

type Member struct {
	ID                string    `json:"id"`
	StokvelID         string    `json:"stokvel_id"`
	UserID            string    `json:"user_id"`
	DisplayName       string    `json:"display_name,omitempty"`
	RotationOrder     int       `json:"rotation_order"`
	Status            string    `json:"status"`
	EligibleFromCycle int       `json:"eligible_from_cycle"`
	JoinedAt          time.Time `json:"joined_at"`
}

type Contribution struct {
	ID            string          `json:"id"`
	StokvelID     string          `json:"stokvel_id"`
	MemberID      string          `json:"member_id"`
	CycleNumber   int             `json:"cycle_number"`
	Period        string          `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	CountedAmount decimal.Decimal `json:"counted_amount"`
	Status        string          `json:"status"`
	ProofRef      string          `json:"proof_ref,omitempty"`
	RejectReason  string          `json:"reject_reason,omitempty"`
	RecordedAt    time.Time       `json:"recorded_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
}

type Payout struct {
	ID           string          `json:"id"`
	StokvelID    string          `json:"stokvel_id"`
	MemberID     string          `json:"member_id"`
	CycleNumber  int             `json:"cycle_number"`
	Amount       decimal.Decimal `json:"amount"`
	NominalValue decimal.Decimal `json:"nominal_value"`
	Kind         string          `json:"kind"`
	TriggerRef   string          `json:"trigger_ref"`
	Status       string          `json:"status"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}

type Adjustment struct {
	ID               string          `json:"id"`
	StokvelID        string          `json:"stokvel_id"`
	MemberID         string          `json:"member_id"`
	CycleNumber      int             `json:"cycle_number"`
	NetPosition      decimal.Decimal `json:"net_position"`
	AdjustmentAmount decimal.Decimal `json:"adjustment_amount"`
	Settled          bool            `json:"settled"`
	CreatedAt        time.Time       `json:"created_at"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
}

type Evaluation struct {
	Policy
	Fired          bool            `json:"fired"`
	Reason         string          `json:"reason,omitempty"`
	Available      decimal.Decimal `json:"available"`
	Threshold      decimal.Decimal `json:"threshold"`
	MissingMembers []string        `json:"missing_members,omitempty"`
}

type CreateStokvelRequest struct {
	Stokvel Stokvel `json:"stokvel"`
}

type CreateStokvelResponse struct {
	Stokvel Stokvel `json:"stokvel"`
	Policy  Policy  `json:"policy"`
}

type GetStokvelRequest struct {
	StokvelID string `json:"stokvel_id"`
}

type GetStokvelResponse struct {
	Stokvel Stokvel `json:"stokvel"`
	Policy  Policy  `json:"policy"`
}

type ListStokvelsRequest struct{}

type ListStokvelsResponse struct {
	Stokvels []Stokvel `json:"stokvels"`
}

type AddMemberRequest struct {
	StokvelID   string `json:"stokvel_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Status      string `json:"status,omitempty"`

	// JoinCycle is the cycle in progress when the member joins.
	JoinCycle int `json:"join_cycle,omitempty"`
}

type AddMemberResponse struct {
	Member Member `json:"member"`
}

type ListMembersRequest struct {
	StokvelID string `json:"stokvel_id"`
}

type ListMembersResponse struct {
	Members []Member `json:"members"`
}

type SetMemberStatusRequest struct {
	StokvelID string `json:"stokvel_id"`
	MemberID  string `json:"member_id"`
	Status    string `json:"status"`
}

type SetMemberStatusResponse struct {
	Member Member `json:"member"`
}

type BackfillMemberRequest struct {
	StokvelID string `json:"stokvel_id"`
	MemberID  string `json:"member_id"`
	Cycle     int    `json:"cycle"`
}

type BackfillMemberResponse struct {
	Member Member `json:"member"`
}

type RecordContributionRequest struct {
	StokvelID   string          `json:"stokvel_id"`
	MemberID    string          `json:"member_id"`
	CycleNumber int             `json:"cycle_number"`
	Amount      decimal.Decimal `json:"amount"`
	ProofRef    string          `json:"proof_ref,omitempty"`

	// Period defaults to the current month.
	Period string `json:"period,omitempty"`

	// RecordedAt defaults to the time the server receives the request.
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

type RecordContributionResponse struct {
	Contribution Contribution `json:"contribution"`
}

type VerifyContributionRequest struct {
	StokvelID      string `json:"stokvel_id"`
	ContributionID string `json:"contribution_id"`
}

type VerifyContributionResponse struct {
	Contribution Contribution `json:"contribution"`
}

type RejectContributionRequest struct {
	StokvelID      string `json:"stokvel_id"`
	ContributionID string `json:"contribution_id"`
	Reason         string `json:"reason,omitempty"`
}

type RejectContributionResponse struct {
	Contribution Contribution `json:"contribution"`
}

type ListPendingContributionsRequest struct {
	StokvelID string `json:"stokvel_id"`
}

type ListPendingContributionsResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type GetMemberBalanceRequest struct {
	StokvelID string `json:"stokvel_id"`
	MemberID  string `json:"member_id"`
}

type GetMemberBalanceResponse struct {
	VerifiedBalance decimal.Decimal `json:"verified_balance"`
}

type GetStatusRequest struct {
	StokvelID string `json:"stokvel_id"`
}

type GetStatusResponse struct {
	Stokvel              Stokvel         `json:"stokvel"`
	Policy               Policy          `json:"policy"`
	VerifiedTotal        decimal.Decimal `json:"verified_total"`
	Disbursed            decimal.Decimal `json:"disbursed"`
	Available            decimal.Decimal `json:"available"`
	ActiveMembers        int             `json:"active_members"`
	PendingContributions int             `json:"pending_contributions"`
}

type GetNextEligibleRequest struct {
	StokvelID string `json:"stokvel_id"`
	Cycle     int    `json:"cycle"`
}

type GetNextEligibleResponse struct {
	// Member is nil when everyone eligible in the cycle has received.
	Member *Member `json:"member,omitempty"`
}

type EvaluateTriggerRequest struct {
	StokvelID string `json:"stokvel_id"`
	Period    string `json:"period,omitempty"`
	SignalID  string `json:"signal_id,omitempty"`
}

type EvaluateTriggerResponse struct {
	Evaluation Evaluation `json:"evaluation"`
}

type EmergencyWithdrawal struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type ProcessPayoutRequest struct {
	StokvelID    string               `json:"stokvel_id"`
	Cycle        int                  `json:"cycle"`
	Period       string               `json:"period,omitempty"`
	SignalID     string               `json:"signal_id,omitempty"`
	RequestKey   string               `json:"request_key,omitempty"`
	NominalValue decimal.Decimal      `json:"nominal_value"`
	Emergency    *EmergencyWithdrawal `json:"emergency,omitempty"`
}

type ProcessPayoutResponse struct {
	TriggerRef    string          `json:"trigger_ref"`
	Shape         string          `json:"shape"`
	Evaluation    Evaluation      `json:"evaluation"`
	Payouts       []Payout        `json:"payouts"`
	Total         decimal.Decimal `json:"total"`
	CycleComplete bool            `json:"cycle_complete"`

	// Adjustments is set when the server settled the completed cycle.
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

type ListPayoutsRequest struct {
	StokvelID string `json:"stokvel_id"`

	// Cycle 0 lists every cycle.
	Cycle int `json:"cycle,omitempty"`
}

type ListPayoutsResponse struct {
	Payouts []Payout `json:"payouts"`
}

type SettleCycleRequest struct {
	StokvelID string `json:"stokvel_id"`
	Cycle     int    `json:"cycle"`
}

type SettleCycleResponse struct {
	Adjustments []Adjustment `json:"adjustments"`
}

type ListAdjustmentsRequest struct {
	StokvelID string `json:"stokvel_id"`
	Cycle     int    `json:"cycle,omitempty"`
}

type ListAdjustmentsResponse struct {
	Adjustments []Adjustment `json:"adjustments"`
}

type MarkAdjustmentSettledRequest struct {
	StokvelID    string `json:"stokvel_id"`
	AdjustmentID string `json:"adjustment_id"`
}

type MarkAdjustmentSettledResponse struct {
	Adjustment Adjustment `json:"adjustment"`
}

type IssueTokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type IssueTokenResponse struct {
	Token string `json:"token"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
