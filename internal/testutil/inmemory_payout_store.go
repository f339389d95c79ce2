package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// InMemoryPayoutStore implements payout.Repository
type InMemoryPayoutStore struct {
	*InMemoryStore[*payout.Payout]
	mu       sync.RWMutex
	settings map[string]*payout.Settings
}

// NewInMemoryPayoutStore creates a new in-memory payout repository
func NewInMemoryPayoutStore() *InMemoryPayoutStore {
	return &InMemoryPayoutStore{
		InMemoryStore: NewInMemoryStore[*payout.Payout](),
		settings:      make(map[string]*payout.Settings),
	}
}

// Clear resets all stored data
func (m *InMemoryPayoutStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.settings = make(map[string]*payout.Settings)
}

// Create rejects a payout whose period overlaps an existing payout for the
// same creator, matching the overlap query plus unique constraint in SQL
func (m *InMemoryPayoutStore) Create(ctx context.Context, p *payout.Payout) error {
	if p == nil {
		return ierr.NewError("payout cannot be nil").
			WithHint("Payout cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, _ := m.InMemoryStore.List(ctx, nil, func(ctx context.Context, other *payout.Payout, _ interface{}) bool {
		return other.CreatorID == p.CreatorID && other.Period().Overlaps(p.Period())
	}, nil)
	if len(existing) > 0 {
		return ierr.NewError("payout period already settled").
			WithHintf("A payout already covers this period for creator %s", p.CreatorID).
			Mark(ierr.ErrAlreadyExists)
	}

	return m.InMemoryStore.Create(ctx, p.ID, p)
}

func (m *InMemoryPayoutStore) Get(ctx context.Context, id string) (*payout.Payout, error) {
	p, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payout not found").
			WithHintf("Payout with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (m *InMemoryPayoutStore) Update(ctx context.Context, p *payout.Payout) error {
	if p == nil {
		return ierr.NewError("payout cannot be nil").
			WithHint("Payout cannot be nil").
			Mark(ierr.ErrValidation)
	}
	p.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, p.ID, p)
}

func (m *InMemoryPayoutStore) FindOverlapping(ctx context.Context, creatorID string, period types.BillingPeriod) (*payout.Payout, error) {
	payouts, err := m.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payout.Payout, _ interface{}) bool {
		return p.CreatorID == creatorID && p.Period().Overlaps(period)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(payouts) == 0 {
		return nil, ierr.NewError("payout not found").
			WithHintf("No payout overlaps this period for creator %s", creatorID).
			Mark(ierr.ErrNotFound)
	}
	return payouts[0], nil
}

func (m *InMemoryPayoutStore) ListByCreator(ctx context.Context, creatorID string) ([]*payout.Payout, error) {
	return m.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payout.Payout, _ interface{}) bool {
		return p.CreatorID == creatorID
	}, func(i, j *payout.Payout) bool {
		return i.PeriodStart.After(j.PeriodStart)
	})
}

// ClaimStale stamps last_attempt_at on claimed payouts and skips rows
// attempted since the cutoff, matching the postgres claim semantics.
func (m *InMemoryPayoutStore) ClaimStale(ctx context.Context, cutoff time.Time, limit int) ([]*payout.Payout, error) {
	payouts, err := m.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payout.Payout, _ interface{}) bool {
		if p.LastAttemptAt != nil && !p.LastAttemptAt.Before(cutoff) {
			return false
		}
		if p.Status == types.PayoutStatusFailed {
			return true
		}
		return p.Status == types.PayoutStatusPending && p.CreatedAt.Before(cutoff)
	}, func(i, j *payout.Payout) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	if len(payouts) > limit {
		payouts = payouts[:limit]
	}
	claimedAt := time.Now().UTC()
	for _, p := range payouts {
		attemptedAt := claimedAt
		p.LastAttemptAt = &attemptedAt
		p.UpdatedAt = claimedAt
	}
	return payouts, nil
}

func (m *InMemoryPayoutStore) GetSettings(ctx context.Context, creatorID string) (*payout.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.settings[creatorID]
	if !exists {
		return nil, ierr.NewError("payout settings not found").
			WithHintf("Creator %s has no payout settings", creatorID).
			Mark(ierr.ErrNotFound)
	}
	return s, nil
}

func (m *InMemoryPayoutStore) UpsertSettings(ctx context.Context, s *payout.Settings) error {
	if s == nil {
		return ierr.NewError("settings cannot be nil").
			WithHint("Settings cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.CreatorID] = s
	return nil
}
