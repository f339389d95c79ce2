package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	mu      sync.RWMutex
	pending map[string]*subscription.PendingChange
	changes map[string]*subscription.Change
	byKey   map[string]*subscription.Change
}

// NewInMemorySubscriptionStore creates a new in-memory subscription repository
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		pending:       make(map[string]*subscription.PendingChange),
		changes:       make(map[string]*subscription.Change),
		byKey:         make(map[string]*subscription.Change),
	}
}

// Clear resets all stored data
func (m *InMemorySubscriptionStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.pending = make(map[string]*subscription.PendingChange)
	m.changes = make(map[string]*subscription.Change)
	m.byKey = make(map[string]*subscription.Change)
}

func (m *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

// GetForUpdate behaves like Get; the mock client provides no real locking
func (m *InMemorySubscriptionStore) GetForUpdate(ctx context.Context, id string) (*subscription.Subscription, error) {
	return m.Get(ctx, id)
}

func (m *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	sub.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) GetActiveByFanCreator(ctx context.Context, fanID, creatorID string) (*subscription.Subscription, error) {
	subs, err := m.InMemoryStore.List(ctx, nil, func(ctx context.Context, s *subscription.Subscription, _ interface{}) bool {
		return s.FanID == fanID && s.CreatorID == creatorID && s.Status == types.SubscriptionStatusActive
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHintf("No active subscription for fan %s and creator %s", fanID, creatorID).
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}

func (m *InMemorySubscriptionStore) ListCreatorIDs(ctx context.Context) ([]string, error) {
	subs, err := m.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(subs, func(s *subscription.Subscription, _ int) string {
		return s.CreatorID
	})
	return lo.Uniq(ids), nil
}

// CreatePending supersedes any live pending change for the same subscription
func (m *InMemorySubscriptionStore) CreatePending(ctx context.Context, change *subscription.PendingChange) error {
	if change == nil {
		return ierr.NewError("pending change cannot be nil").
			WithHint("Pending change cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.pending {
		if existing.SubscriptionID == change.SubscriptionID && existing.Status == types.PendingChangeStatusPending {
			existing.Status = types.PendingChangeStatusCancelled
			existing.UpdatedAt = time.Now().UTC()
		}
	}
	m.pending[change.ID] = change
	return nil
}

func (m *InMemorySubscriptionStore) GetPending(ctx context.Context, id string) (*subscription.PendingChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	change, exists := m.pending[id]
	if !exists {
		return nil, ierr.NewError("pending change not found").
			WithHintf("Pending change with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return change, nil
}

func (m *InMemorySubscriptionStore) UpdatePending(ctx context.Context, change *subscription.PendingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pending[change.ID]; !exists {
		return ierr.NewError("pending change not found").
			WithHintf("Pending change with ID %s was not found", change.ID).
			Mark(ierr.ErrNotFound)
	}
	change.UpdatedAt = time.Now().UTC()
	m.pending[change.ID] = change
	return nil
}

func (m *InMemorySubscriptionStore) GetPendingBySubscription(ctx context.Context, subscriptionID string) (*subscription.PendingChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, change := range m.pending {
		if change.SubscriptionID == subscriptionID && change.Status == types.PendingChangeStatusPending {
			return change, nil
		}
	}
	return nil, ierr.NewError("pending change not found").
		WithHintf("No pending change for subscription %s", subscriptionID).
		Mark(ierr.ErrNotFound)
}

// ClaimDuePending flips due pending changes to processing; each change is
// handed out once, matching SKIP LOCKED semantics. Processing rows stale
// since reclaimBefore are claimed again, like the postgres reclaim clause.
func (m *InMemorySubscriptionStore) ClaimDuePending(ctx context.Context, now, reclaimBefore time.Time, limit int) ([]*subscription.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make([]*subscription.PendingChange, 0)
	for _, change := range m.pending {
		if len(claimed) >= limit {
			break
		}
		stale := change.Status == types.PendingChangeStatusProcessing &&
			change.UpdatedAt.Before(reclaimBefore)
		if change.Due(now) || stale {
			change.Status = types.PendingChangeStatusProcessing
			change.UpdatedAt = time.Now().UTC()
			claimed = append(claimed, change)
		}
	}
	return claimed, nil
}

// CreateChange rejects duplicate idempotency keys with ErrAlreadyExists
func (m *InMemorySubscriptionStore) CreateChange(ctx context.Context, change *subscription.Change) error {
	if change == nil {
		return ierr.NewError("change cannot be nil").
			WithHint("Change cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if change.IdempotencyKey != "" {
		if _, exists := m.byKey[change.IdempotencyKey]; exists {
			return ierr.NewError("duplicate idempotency key").
				WithHint("A change with this idempotency key already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	if _, exists := m.changes[change.ID]; exists {
		return ierr.NewError("change already exists").
			WithHintf("Change with ID %s already exists", change.ID).
			Mark(ierr.ErrAlreadyExists)
	}

	m.changes[change.ID] = change
	if change.IdempotencyKey != "" {
		m.byKey[change.IdempotencyKey] = change
	}
	return nil
}

func (m *InMemorySubscriptionStore) GetChangeByIdempotencyKey(ctx context.Context, key string) (*subscription.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	change, exists := m.byKey[key]
	if !exists {
		return nil, ierr.NewError("change not found").
			WithHint("No change exists with this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return change, nil
}

func (m *InMemorySubscriptionStore) ListChanges(ctx context.Context, subscriptionID string) ([]*subscription.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*subscription.Change, 0)
	for _, change := range m.changes {
		if change.SubscriptionID == subscriptionID {
			result = append(result, change)
		}
	}
	return result, nil
}
