package models

import "time"

// MemberStatus is a member's participation state.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberPending  MemberStatus = "pending"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberInactive || s == MemberPending
}

// Member is one participant of a stokvel.
//
// Removing a member sets it Inactive; its RotationOrder is kept so it
// resumes its place when reactivated.
type Member struct {
	// ID is the unique identifier (UUID format), assigned by the store.
	ID string

	// StokvelID is the owning stokvel.
	StokvelID string

	// UserID references the identity collaborator's user. The engine never
	// resolves it beyond equality checks.
	UserID string

	// DisplayName is a human-readable label.
	DisplayName string

	// RotationOrder is the payout priority, unique per stokvel, starting at 1.
	RotationOrder int

	// Status is the participation state. Only Active members are eligible.
	Status MemberStatus

	// EligibleFromCycle is the first cycle this member may be paid in.
	// Mid-cycle joiners start at the following cycle unless back-filled.
	EligibleFromCycle int

	// JoinedAt is when the member was added.
	JoinedAt time.Time
}

// EligibleIn reports whether the member can receive a payout in cycle.
func (m *Member) EligibleIn(cycle int) bool {
	return m.Status == MemberActive && m.EligibleFromCycle <= cycle
}
