package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence.
//
// Implementations must serialize writes per subscription row: GetForUpdate
// takes a row-level lock held for the remainder of the surrounding
// transaction, and ClaimDuePending must hand each due pending change to at
// most one caller even under concurrent sweeps (SKIP LOCKED semantics or
// equivalent).
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetForUpdate loads the subscription with a write lock; must be called
	// inside a transaction.
	GetForUpdate(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	GetActiveByFanCreator(ctx context.Context, fanID, creatorID string) (*Subscription, error)
	ListCreatorIDs(ctx context.Context) ([]string, error)

	// Pending change operations. CreatePending supersedes any existing
	// pending change for the same subscription in the same transaction.
	CreatePending(ctx context.Context, change *PendingChange) error
	GetPending(ctx context.Context, id string) (*PendingChange, error)
	UpdatePending(ctx context.Context, change *PendingChange) error
	GetPendingBySubscription(ctx context.Context, subscriptionID string) (*PendingChange, error)
	// ClaimDuePending atomically flips due pending changes to processing and
	// returns the claimed rows. Processing rows untouched since reclaimBefore
	// are claimed again; their sweep died before applying them, and replaying
	// a claim is safe because the change id is the idempotency attempt token.
	ClaimDuePending(ctx context.Context, now, reclaimBefore time.Time, limit int) ([]*PendingChange, error)

	// Audit log operations. CreateChange must reject duplicate idempotency
	// keys with ErrAlreadyExists.
	CreateChange(ctx context.Context, change *Change) error
	GetChangeByIdempotencyKey(ctx context.Context, key string) (*Change, error)
	ListChanges(ctx context.Context, subscriptionID string) ([]*Change, error)
}
