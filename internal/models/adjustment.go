package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Adjustment is one member's fairness correction for a completed cycle.
type Adjustment struct {
	// ID is the unique identifier (UUID format), assigned by the store.
	ID string

	// StokvelID is the settled stokvel.
	StokvelID string

	// MemberID is the member being adjusted.
	MemberID string

	// CycleNumber is the settled cycle.
	CycleNumber int

	// NetPosition is value received minus verified contributions in the cycle.
	NetPosition decimal.Decimal

	// AdjustmentAmount is signed: positive is a refund owed to the member,
	// negative is owed by the member to the pool. Amounts of one cycle sum to zero.
	AdjustmentAmount decimal.Decimal

	// Settled is true once the adjustment has been paid or collected.
	Settled bool

	// CreatedAt is when the settlement ran.
	CreatedAt time.Time

	// SettledAt is when Settled became true.
	SettledAt *time.Time
}
