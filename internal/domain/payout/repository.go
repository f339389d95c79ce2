package payout

import (
	"context"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Repository defines the interface for payout persistence.
//
// Create must be an atomic check-then-insert: it rejects a payout whose
// period overlaps an existing payout for the same creator with
// ErrAlreadyExists (backed by a unique constraint on
// (creator_id, period_start, period_end) plus an overlap query in the same
// transaction).
type Repository interface {
	Create(ctx context.Context, p *Payout) error
	Get(ctx context.Context, id string) (*Payout, error)
	Update(ctx context.Context, p *Payout) error
	FindOverlapping(ctx context.Context, creatorID string, period types.BillingPeriod) (*Payout, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*Payout, error)
	// ClaimStale returns failed payouts plus pending payouts older than the
	// cutoff, for the retry sweep. Claiming stamps last_attempt_at, and rows
	// already attempted since the cutoff are excluded, so two sweeps racing
	// each other never hand out the same payout.
	ClaimStale(ctx context.Context, cutoff time.Time, limit int) ([]*Payout, error)

	// Settings operations
	GetSettings(ctx context.Context, creatorID string) (*Settings, error)
	UpsertSettings(ctx context.Context, s *Settings) error
}
