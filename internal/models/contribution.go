package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodLayout is the format of a contribution period tag ("2025-03").
const PeriodLayout = "2006-01"

// ContributionStatus is the verification state of a contribution.
type ContributionStatus string

const (
	ContributionUnverified ContributionStatus = "unverified"
	ContributionVerified   ContributionStatus = "verified"
	ContributionRejected   ContributionStatus = "rejected"
)

// CanTransition validates a status change. Only Unverified moves, and only
// to Verified or Rejected; decided contributions are terminal.
func (s ContributionStatus) CanTransition(to ContributionStatus) error {
	if s != ContributionUnverified {
		return fmt.Errorf("%w: contribution is %s", ErrAlreadyDecided, s)
	}
	if to != ContributionVerified && to != ContributionRejected {
		return fmt.Errorf("%w: cannot move contribution to %q", ErrValidation, to)
	}
	return nil
}

// Contribution is a member's payment for one period. Records are never
// deleted or edited after a decision; corrections are new records.
type Contribution struct {
	// ID is the unique identifier (UUID format), assigned by the store.
	ID string

	// StokvelID is the stokvel the member belongs to.
	StokvelID string

	// MemberID is the contributing member.
	MemberID string

	// CycleNumber is the rotation cycle this contribution funds.
	CycleNumber int

	// Period is the month tag, formatted as PeriodLayout.
	Period string

	// Amount is the raw amount paid.
	Amount decimal.Decimal

	// CountedAmount is the value that counts toward balances once verified:
	// Amount less any late-payment penalty. Zero until verified.
	CountedAmount decimal.Decimal

	// Status is the verification state.
	Status ContributionStatus

	// ProofRef is an opaque reference to proof of payment held elsewhere.
	ProofRef string

	// RejectReason is set when Status is Rejected.
	RejectReason string

	// RecordedAt is when the contribution was submitted.
	RecordedAt time.Time

	// DecidedAt is when the contribution was verified or rejected.
	DecidedAt *time.Time
}

// IsVerified reports whether the contribution counts toward balances.
func (c *Contribution) IsVerified() bool {
	return c.Status == ContributionVerified
}

// ParsePeriod parses a period tag and returns the first instant of its month (UTC).
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: period %q must be formatted YYYY-MM", ErrValidation, period)
	}
	return t.UTC(), nil
}

// PeriodDueDate returns the date a contribution for period is due.
func PeriodDueDate(period string, dueDay int) (time.Time, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	if dueDay <= 0 {
		dueDay = 1
	}
	return start.AddDate(0, 0, dueDay-1), nil
}
