// Package lease provides exclusive, expiring leases used to serialize work
// per (stokvel, cycle), such as fairness settlement.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = errors.New("lease is held by another holder")

// Lease is an acquired lease. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out leases keyed by string.
type Locker interface {
	// Acquire takes the lease for key or fails with ErrHeld. The lease
	// expires after ttl if never released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// SettlementKey is the lease key guarding settlement of one cycle.
func SettlementKey(stokvelID string, cycle int) string {
	return fmt.Sprintf("stokvel:settle:%s:%d", stokvelID, cycle)
}

// Local is an in-process Locker for single-instance deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

type localEntry struct {
	token     string
	expiresAt time.Time
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]localEntry), now: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	token := uuid.New().String()
	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *Local
	key    string
	token  string
}

func (ll *localLease) Release(_ context.Context) error {
	ll.locker.mu.Lock()
	defer ll.locker.mu.Unlock()

	// A lease that expired and was re-acquired belongs to the new holder.
	if entry, ok := ll.locker.held[ll.key]; ok && entry.token == ll.token {
		delete(ll.locker.held, ll.key)
	}
	return nil
}
