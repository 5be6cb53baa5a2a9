// Package memory provides an in-process implementation of storage.Store.
// It is used by tests and by single-process deployments that do not need
// durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type cycleKey struct {
	stokvelID string
	number    int
}

// Store keeps every record in maps guarded by one RWMutex. Records are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	stokvels      map[string]models.Stokvel
	members       map[string]models.Member
	contributions map[string]models.Contribution
	payouts       map[string]models.Payout
	adjustments   map[string]models.Adjustment
	cycles        map[cycleKey]models.Cycle
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		stokvels:      make(map[string]models.Stokvel),
		members:       make(map[string]models.Member),
		contributions: make(map[string]models.Contribution),
		payouts:       make(map[string]models.Payout),
		adjustments:   make(map[string]models.Adjustment),
		cycles:        make(map[cycleKey]models.Cycle),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateStokvel(_ context.Context, stokvel *models.Stokvel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stokvel.ID == "" {
		stokvel.ID = uuid.New().String()
	}
	if stokvel.CreatedAt.IsZero() {
		stokvel.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.stokvels[stokvel.ID]; exists {
		return fmt.Errorf("%w: stokvel %s already exists", models.ErrConflict, stokvel.ID)
	}
	s.stokvels[stokvel.ID] = *stokvel
	return nil
}

func (s *Store) GetStokvel(_ context.Context, stokvelID string) (*models.Stokvel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stokvel, ok := s.stokvels[stokvelID]
	if !ok {
		return nil, fmt.Errorf("%w: stokvel %s", models.ErrNotFound, stokvelID)
	}
	return &stokvel, nil
}

func (s *Store) ListStokvels(_ context.Context) ([]*models.Stokvel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Stokvel, 0, len(s.stokvels))
	for _, stokvel := range s.stokvels {
		stokvel := stokvel
		out = append(out, &stokvel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateMember(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stokvels[member.StokvelID]; !ok {
		return fmt.Errorf("%w: stokvel %s", models.ErrNotFound, member.StokvelID)
	}
	for _, existing := range s.members {
		if existing.StokvelID == member.StokvelID && existing.RotationOrder == member.RotationOrder {
			return fmt.Errorf("%w: rotation order %d is taken", models.ErrConflict, member.RotationOrder)
		}
	}
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	s.members[member.ID] = *member
	return nil
}

func (s *Store) UpdateMember(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok || existing.StokvelID != member.StokvelID {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, member.ID)
	}
	existing.Status = member.Status
	existing.EligibleFromCycle = member.EligibleFromCycle
	existing.DisplayName = member.DisplayName
	s.members[member.ID] = existing
	return nil
}

func (s *Store) GetMember(_ context.Context, stokvelID, memberID string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberID]
	if !ok || member.StokvelID != stokvelID {
		return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, memberID)
	}
	return &member, nil
}

func (s *Store) ListMembers(_ context.Context, stokvelID string) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Member
	for _, member := range s.members {
		if member.StokvelID != stokvelID {
			continue
		}
		member := member
		out = append(out, &member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RotationOrder < out[j].RotationOrder })
	return out, nil
}

func (s *Store) CreateContribution(_ context.Context, contribution *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[contribution.MemberID]
	if !ok || member.StokvelID != contribution.StokvelID {
		return fmt.Errorf("%w: member %s", models.ErrNotFound, contribution.MemberID)
	}
	if contribution.ID == "" {
		contribution.ID = uuid.New().String()
	}
	s.contributions[contribution.ID] = *contribution
	return nil
}

func (s *Store) GetContribution(_ context.Context, stokvelID, contributionID string) (*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contribution, ok := s.contributions[contributionID]
	if !ok || contribution.StokvelID != stokvelID {
		return nil, fmt.Errorf("%w: contribution %s", models.ErrNotFound, contributionID)
	}
	return &contribution, nil
}

func (s *Store) DecideContribution(_ context.Context, contribution *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contributions[contribution.ID]
	if !ok || existing.StokvelID != contribution.StokvelID {
		return fmt.Errorf("%w: contribution %s", models.ErrNotFound, contribution.ID)
	}
	if existing.Status != models.ContributionUnverified {
		return fmt.Errorf("%w: contribution %s is %s", models.ErrAlreadyDecided, contribution.ID, existing.Status)
	}
	existing.Status = contribution.Status
	existing.CountedAmount = contribution.CountedAmount
	existing.RejectReason = contribution.RejectReason
	existing.DecidedAt = contribution.DecidedAt
	s.contributions[contribution.ID] = existing
	return nil
}

func (s *Store) ListContributions(_ context.Context, stokvelID string, filter storage.ContributionFilter) ([]*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Contribution
	for _, c := range s.contributions {
		if c.StokvelID != stokvelID {
			continue
		}
		if filter.MemberID != "" && c.MemberID != filter.MemberID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.CycleNumber != 0 && c.CycleNumber != filter.CycleNumber {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (s *Store) GetCycle(_ context.Context, stokvelID string, cycle int) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cycles[cycleKey{stokvelID, cycle}]
	if !ok {
		return &models.Cycle{StokvelID: stokvelID, Number: cycle}, nil
	}
	return &c, nil
}

func (s *Store) SavePayouts(_ context.Context, stokvelID string, cycle, expectedVersion int, payouts []*models.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stokvel, ok := s.stokvels[stokvelID]
	if !ok {
		return fmt.Errorf("%w: stokvel %s", models.ErrNotFound, stokvelID)
	}
	if stokvel.PayoutVersion != expectedVersion {
		return fmt.Errorf("%w: stokvel %s payouts are at version %d, expected %d",
			models.ErrConflict, stokvelID, stokvel.PayoutVersion, expectedVersion)
	}
	key := cycleKey{stokvelID, cycle}
	current := s.cycles[key]
	if current.Settled {
		return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}

	type slot struct {
		memberID     string
		distribution bool
	}
	taken := make(map[slot]bool)
	for _, p := range s.payouts {
		if p.StokvelID == stokvelID && p.CycleNumber == cycle && p.Status == models.PayoutProcessed {
			taken[slot{p.MemberID, p.IsDistribution()}] = true
		}
	}
	for _, p := range payouts {
		k := slot{p.MemberID, p.IsDistribution()}
		if taken[k] {
			return fmt.Errorf("%w: member %s already has a %s payout in cycle %d", models.ErrConflict, p.MemberID, p.Kind, cycle)
		}
		taken[k] = true
	}

	for _, p := range payouts {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		s.payouts[p.ID] = *p
	}
	stokvel.PayoutVersion++
	s.stokvels[stokvelID] = stokvel
	s.cycles[key] = models.Cycle{StokvelID: stokvelID, Number: cycle, Version: current.Version + 1}
	return nil
}

func (s *Store) ListPayouts(_ context.Context, stokvelID string, cycle int) ([]*models.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Payout
	for _, p := range s.payouts {
		if p.StokvelID != stokvelID || (cycle != 0 && p.CycleNumber != cycle) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := processedAt(out[i]), processedAt(out[j])
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(tj)
	})
	return out, nil
}

func processedAt(p *models.Payout) time.Time {
	if p.ProcessedAt == nil {
		return time.Time{}
	}
	return *p.ProcessedAt
}

func (s *Store) SaveAdjustments(_ context.Context, stokvelID string, cycle int, adjustments []*models.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cycleKey{stokvelID, cycle}
	current, ok := s.cycles[key]
	if !ok {
		current = models.Cycle{StokvelID: stokvelID, Number: cycle}
	}
	if current.Settled {
		return fmt.Errorf("%w: cycle %d", models.ErrAlreadySettled, cycle)
	}

	now := time.Now().UTC()
	for _, a := range adjustments {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		s.adjustments[a.ID] = *a
	}
	current.Settled = true
	current.SettledAt = &now
	s.cycles[key] = current
	return nil
}

func (s *Store) ListAdjustments(_ context.Context, stokvelID string, cycle int) ([]*models.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Adjustment
	for _, a := range s.adjustments {
		if a.StokvelID != stokvelID || (cycle != 0 && a.CycleNumber != cycle) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CycleNumber != out[j].CycleNumber {
			return out[i].CycleNumber < out[j].CycleNumber
		}
		oi, oj := s.members[out[i].MemberID].RotationOrder, s.members[out[j].MemberID].RotationOrder
		if oi != oj {
			return oi < oj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SettleAdjustment(_ context.Context, stokvelID, adjustmentID string, at time.Time) (*models.Adjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.adjustments[adjustmentID]
	if !ok || a.StokvelID != stokvelID {
		return nil, fmt.Errorf("%w: adjustment %s", models.ErrNotFound, adjustmentID)
	}
	if a.Settled {
		return nil, fmt.Errorf("%w: adjustment %s is already settled", models.ErrAlreadyDecided, adjustmentID)
	}
	settledAt := at.UTC()
	a.Settled = true
	a.SettledAt = &settledAt
	s.adjustments[adjustmentID] = a
	return &a, nil
}
