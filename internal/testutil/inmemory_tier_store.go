package testutil

import (
	"context"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
)

// InMemoryTierStore implements tier.Repository
type InMemoryTierStore struct {
	*InMemoryStore[*tier.Tier]
}

// NewInMemoryTierStore creates a new in-memory tier repository
func NewInMemoryTierStore() *InMemoryTierStore {
	return &InMemoryTierStore{
		InMemoryStore: NewInMemoryStore[*tier.Tier](),
	}
}

func (m *InMemoryTierStore) Create(ctx context.Context, t *tier.Tier) error {
	if t == nil {
		return ierr.NewError("tier cannot be nil").
			WithHint("Tier cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, t.ID, t)
}

func (m *InMemoryTierStore) Get(ctx context.Context, id string) (*tier.Tier, error) {
	t, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("tier not found").
			WithHintf("Tier with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return t, nil
}

func (m *InMemoryTierStore) Update(ctx context.Context, t *tier.Tier) error {
	if t == nil {
		return ierr.NewError("tier cannot be nil").
			WithHint("Tier cannot be nil").
			Mark(ierr.ErrValidation)
	}
	t.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, t.ID, t)
}

func (m *InMemoryTierStore) ListByCreator(ctx context.Context, creatorID string) ([]*tier.Tier, error) {
	return m.InMemoryStore.List(ctx, nil, func(ctx context.Context, t *tier.Tier, _ interface{}) bool {
		return t.CreatorID == creatorID
	}, func(i, j *tier.Tier) bool {
		return i.Price.LessThan(j.Price)
	})
}
