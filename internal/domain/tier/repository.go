package tier

import "context"

// Repository defines the interface for tier persistence
type Repository interface {
	Create(ctx context.Context, t *Tier) error
	Get(ctx context.Context, id string) (*Tier, error)
	Update(ctx context.Context, t *Tier) error
	ListByCreator(ctx context.Context, creatorID string) ([]*Tier, error)
}
