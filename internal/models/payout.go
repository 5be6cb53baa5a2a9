package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the payout state machine: Pending -> Processed (terminal).
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutProcessed PayoutStatus = "processed"
)

// PayoutKind records why a payout was made.
type PayoutKind string

const (
	PayoutRotation   PayoutKind = "rotation"
	PayoutEqualShare PayoutKind = "equal_share"
	PayoutEmergency  PayoutKind = "emergency"
)

// Payout is a disbursement to one member within a cycle. A member has at
// most one processed distribution payout (rotation or equal share) and at
// most one emergency withdrawal per cycle.
type Payout struct {
	// ID is the unique identifier (UUID format), assigned by the store.
	ID string

	// StokvelID is the paying stokvel.
	StokvelID string

	// MemberID is the recipient.
	MemberID string

	// CycleNumber is the rotation cycle the payout belongs to.
	CycleNumber int

	// Amount is the cash disbursed.
	Amount decimal.Decimal

	// NominalValue is the value the recipient is deemed to have received,
	// used when the stokvel settles on ValueBasisNominal.
	NominalValue decimal.Decimal

	// Kind records whether this was a rotation, equal-share or emergency payout.
	Kind PayoutKind

	// TriggerRef identifies the trigger firing that produced the payout.
	// All payouts of one firing share it.
	TriggerRef string

	// Status is Pending until processed.
	Status PayoutStatus

	// ProcessedAt is set when Status becomes Processed.
	ProcessedAt *time.Time
}

// Process moves a pending payout to Processed.
func (p *Payout) Process(now time.Time) error {
	if p.Status == PayoutProcessed {
		return fmt.Errorf("%w: payout %s", ErrAlreadyProcessed, p.ID)
	}
	p.Status = PayoutProcessed
	processedAt := now.UTC()
	p.ProcessedAt = &processedAt
	return nil
}

// IsDistribution reports whether the payout is a rotation turn or an
// equal share, as opposed to an emergency withdrawal.
func (p *Payout) IsDistribution() bool {
	return p.Kind != PayoutEmergency
}

// ValueReceived returns the value credited to the recipient for fairness.
func (p *Payout) ValueReceived(basis ValueBasis) decimal.Decimal {
	if basis == ValueBasisNominal && p.NominalValue.IsPositive() {
		return p.NominalValue
	}
	return p.Amount
}

// Cycle is the per-(stokvel, cycle) row carrying the settled flag.
// Version counts the trigger firings committed in the cycle.
type Cycle struct {
	StokvelID string
	Number    int
	Version   int
	Settled   bool
	SettledAt *time.Time
}
