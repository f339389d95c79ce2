package postgres

import (
	"context"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
	INSERT INTO subscriptions (
		id, fan_id, creator_id, tier_id, previous_tier_id, status,
		started_at, next_billing_date, auto_renew, proration_credit,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		sub.ID,
		sub.FanID,
		sub.CreatorID,
		sub.TierID,
		sub.PreviousTierID,
		sub.Status,
		sub.StartedAt,
		sub.NextBillingDate,
		sub.AutoRenew,
		sub.ProrationCredit,
		sub.CreatedAt,
		sub.UpdatedAt,
		sub.CreatedBy,
		sub.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An active subscription already exists for this fan and creator").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = $1`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

// GetForUpdate acquires a row lock held until the surrounding transaction
// ends; callers must already be inside WithTx.
func (r *subscriptionRepository) GetForUpdate(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = $1 FOR UPDATE`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to lock subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
	UPDATE subscriptions SET
		tier_id = $2,
		previous_tier_id = $3,
		status = $4,
		next_billing_date = $5,
		auto_renew = $6,
		proration_credit = $7,
		updated_at = $8,
		updated_by = $9
	WHERE id = $1
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		sub.ID,
		sub.TierID,
		sub.PreviousTierID,
		sub.Status,
		sub.NextBillingDate,
		sub.AutoRenew,
		sub.ProrationCredit,
		sub.UpdatedAt,
		sub.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetActiveByFanCreator(ctx context.Context, fanID, creatorID string) (*subscription.Subscription, error) {
	query := `
	SELECT * FROM subscriptions
	WHERE fan_id = $1 AND creator_id = $2 AND status = $3
	`

	var sub subscription.Subscription
	err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, fanID, creatorID, types.SubscriptionStatusActive)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No active subscription for fan %s and creator %s", fanID, creatorID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListCreatorIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT creator_id FROM subscriptions`

	var ids []string
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &ids, query)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list creator ids").
			Mark(ierr.ErrDatabase)
	}
	return ids, nil
}

// CreatePending cancels any live pending change for the subscription before
// inserting the new one, in the same transaction. At most one pending change
// per subscription survives.
func (r *subscriptionRepository) CreatePending(ctx context.Context, change *subscription.PendingChange) error {
	q := r.db.GetQuerier(ctx)

	supersede := `
	UPDATE subscription_pending_changes
	SET status = $3, updated_at = $4, updated_by = $5
	WHERE subscription_id = $1 AND status = $2
	`
	_, err := q.ExecContext(
		ctx, supersede,
		change.SubscriptionID,
		types.PendingChangeStatusPending,
		types.PendingChangeStatusCancelled,
		time.Now().UTC(),
		types.GetUserID(ctx),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to supersede pending change").
			Mark(ierr.ErrDatabase)
	}

	insert := `
	INSERT INTO subscription_pending_changes (
		id, subscription_id, from_tier_id, to_tier_id, change_type,
		scheduled_date, proration_amount, status,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = q.ExecContext(
		ctx, insert,
		change.ID,
		change.SubscriptionID,
		change.FromTierID,
		change.ToTierID,
		change.ChangeType,
		change.ScheduledDate,
		change.ProrationAmount,
		change.Status,
		change.CreatedAt,
		change.UpdatedAt,
		change.CreatedBy,
		change.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A pending change already exists for this subscription").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create pending change").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetPending(ctx context.Context, id string) (*subscription.PendingChange, error) {
	query := `SELECT * FROM subscription_pending_changes WHERE id = $1`

	var change subscription.PendingChange
	err := r.db.GetQuerier(ctx).GetContext(ctx, &change, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("pending change not found").
				WithHintf("Pending change with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get pending change").
			Mark(ierr.ErrDatabase)
	}
	return &change, nil
}

func (r *subscriptionRepository) UpdatePending(ctx context.Context, change *subscription.PendingChange) error {
	query := `
	UPDATE subscription_pending_changes SET
		status = $2, updated_at = $3, updated_by = $4
	WHERE id = $1
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		change.ID,
		change.Status,
		change.UpdatedAt,
		change.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update pending change").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetPendingBySubscription(ctx context.Context, subscriptionID string) (*subscription.PendingChange, error) {
	query := `
	SELECT * FROM subscription_pending_changes
	WHERE subscription_id = $1 AND status = $2
	`

	var change subscription.PendingChange
	err := r.db.GetQuerier(ctx).GetContext(ctx, &change, query, subscriptionID, types.PendingChangeStatusPending)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("pending change not found").
				WithHintf("No pending change for subscription %s", subscriptionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get pending change").
			Mark(ierr.ErrDatabase)
	}
	return &change, nil
}

// ClaimDuePending flips due rows to processing and returns them. SKIP LOCKED
// keeps concurrent sweeps from claiming the same change twice. Processing
// rows whose updated_at predates reclaimBefore belong to a sweep that died
// between claim and apply; they are claimed again so the change still lands.
func (r *subscriptionRepository) ClaimDuePending(ctx context.Context, now, reclaimBefore time.Time, limit int) ([]*subscription.PendingChange, error) {
	query := `
	UPDATE subscription_pending_changes
	SET status = $1, updated_at = $2, updated_by = $3
	WHERE id IN (
		SELECT id FROM subscription_pending_changes
		WHERE (status = $4 AND scheduled_date <= $5)
		   OR (status = $1 AND updated_at < $6)
		ORDER BY scheduled_date
		LIMIT $7
		FOR UPDATE SKIP LOCKED
	)
	RETURNING *
	`

	rows, err := r.db.GetQuerier(ctx).QueryContext(
		ctx, query,
		types.PendingChangeStatusProcessing,
		time.Now().UTC(),
		types.GetUserID(ctx),
		types.PendingChangeStatusPending,
		now,
		reclaimBefore,
		limit,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim due pending changes").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var claimed []*subscription.PendingChange
	for rows.Next() {
		var change subscription.PendingChange
		if err := rows.Scan(
			&change.ID,
			&change.SubscriptionID,
			&change.FromTierID,
			&change.ToTierID,
			&change.ChangeType,
			&change.ScheduledDate,
			&change.ProrationAmount,
			&change.Status,
			&change.CreatedAt,
			&change.UpdatedAt,
			&change.CreatedBy,
			&change.UpdatedBy,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan claimed pending change").
				Mark(ierr.ErrDatabase)
		}
		claimed = append(claimed, &change)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read claimed pending changes").
			Mark(ierr.ErrDatabase)
	}
	return claimed, nil
}

func (r *subscriptionRepository) CreateChange(ctx context.Context, change *subscription.Change) error {
	query := `
	INSERT INTO subscription_changes (
		id, subscription_id, from_tier_id, to_tier_id, change_type,
		proration_amount, effective_date, billing_impact, reason,
		idempotency_key, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		change.ID,
		change.SubscriptionID,
		change.FromTierID,
		change.ToTierID,
		change.ChangeType,
		change.ProrationAmount,
		change.EffectiveDate,
		change.BillingImpact,
		change.Reason,
		change.IdempotencyKey,
		change.CreatedAt,
		change.UpdatedAt,
		change.CreatedBy,
		change.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A change with this idempotency key already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription change").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetChangeByIdempotencyKey(ctx context.Context, key string) (*subscription.Change, error) {
	query := `SELECT * FROM subscription_changes WHERE idempotency_key = $1`

	var change subscription.Change
	err := r.db.GetQuerier(ctx).GetContext(ctx, &change, query, key)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("change not found").
				WithHint("No change exists with this idempotency key").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription change").
			Mark(ierr.ErrDatabase)
	}
	return &change, nil
}

func (r *subscriptionRepository) ListChanges(ctx context.Context, subscriptionID string) ([]*subscription.Change, error) {
	query := `
	SELECT * FROM subscription_changes
	WHERE subscription_id = $1
	ORDER BY effective_date DESC
	`

	var changes []*subscription.Change
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &changes, query, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscription changes").
			Mark(ierr.ErrDatabase)
	}
	return changes, nil
}
