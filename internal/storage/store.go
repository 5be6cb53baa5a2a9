// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// ContributionFilter narrows ListContributions. Zero values match everything.
type ContributionFilter struct {
	MemberID    string
	Status      models.ContributionStatus
	CycleNumber int
}

// Store defines the persistence operations the engine depends on.
// This abstraction allows swapping storage backends (memory, SQLite, PostgreSQL)
// without changing the engine or service layer.
//
// Implementations translate their driver errors into the models sentinels:
// missing rows are models.ErrNotFound and lost compare-and-swap races or
// uniqueness violations are models.ErrConflict.
type Store interface {
	// CreateStokvel persists a new stokvel. ID and CreatedAt are assigned
	// by the store when empty.
	CreateStokvel(ctx context.Context, stokvel *models.Stokvel) error

	// GetStokvel retrieves a stokvel by ID.
	GetStokvel(ctx context.Context, stokvelID string) (*models.Stokvel, error)

	// ListStokvels returns every stokvel ordered by creation time.
	ListStokvels(ctx context.Context) ([]*models.Stokvel, error)

	// CreateMember persists a new member. A rotation order already taken in
	// the stokvel fails with models.ErrConflict.
	CreateMember(ctx context.Context, member *models.Member) error

	// UpdateMember saves a member's status and eligibility.
	UpdateMember(ctx context.Context, member *models.Member) error

	// GetMember retrieves one member of a stokvel.
	GetMember(ctx context.Context, stokvelID, memberID string) (*models.Member, error)

	// ListMembers returns all members of a stokvel ordered by rotation order.
	ListMembers(ctx context.Context, stokvelID string) ([]*models.Member, error)

	// CreateContribution appends a contribution to the ledger.
	CreateContribution(ctx context.Context, contribution *models.Contribution) error

	// GetContribution retrieves one contribution of a stokvel.
	GetContribution(ctx context.Context, stokvelID, contributionID string) (*models.Contribution, error)

	// DecideContribution stores a verification decision. The write only
	// succeeds while the stored row is still unverified; otherwise it fails
	// with models.ErrAlreadyDecided.
	DecideContribution(ctx context.Context, contribution *models.Contribution) error

	// ListContributions returns a stokvel's contributions ordered by
	// RecordedAt ascending.
	ListContributions(ctx context.Context, stokvelID string, filter ContributionFilter) ([]*models.Contribution, error)

	// GetCycle returns the cycle row. A cycle with no committed firings is
	// returned with Version 0 and unsettled.
	GetCycle(ctx context.Context, stokvelID string, cycle int) (*models.Cycle, error)

	// SavePayouts commits the payouts of one trigger firing atomically. It
	// compares and swaps the stokvel's PayoutVersion, so it fails with
	// models.ErrConflict when any payout of the stokvel, in any cycle, was
	// committed since expectedVersion was read. A second distribution payout
	// or a second emergency withdrawal for a member in the cycle also fails
	// with models.ErrConflict, and a settled cycle fails with
	// models.ErrAlreadySettled.
	SavePayouts(ctx context.Context, stokvelID string, cycle, expectedVersion int, payouts []*models.Payout) error

	// ListPayouts returns payouts ordered by processing time. Cycle 0 lists
	// every cycle.
	ListPayouts(ctx context.Context, stokvelID string, cycle int) ([]*models.Payout, error)

	// SaveAdjustments stores a cycle's settlement and marks the cycle
	// settled. A cycle that is already settled fails with
	// models.ErrAlreadySettled and nothing is written.
	SaveAdjustments(ctx context.Context, stokvelID string, cycle int, adjustments []*models.Adjustment) error

	// ListAdjustments returns adjustments ordered by member rotation order.
	// Cycle 0 lists every cycle.
	ListAdjustments(ctx context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error)

	// SettleAdjustment marks an adjustment as paid or collected. A second
	// call fails with models.ErrAlreadyDecided.
	SettleAdjustment(ctx context.Context, stokvelID, adjustmentID string, at time.Time) (*models.Adjustment, error)

	// Close releases any resources held by the store.
	Close() error
}
