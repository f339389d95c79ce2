package postgres

import (
	"context"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
)

type tierRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewTierRepository(db postgres.IClient, logger *logger.Logger) tier.Repository {
	return &tierRepository{db: db, logger: logger}
}

func (r *tierRepository) Create(ctx context.Context, t *tier.Tier) error {
	query := `
	INSERT INTO tiers (
		id, creator_id, name, price, currency, active,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		t.ID,
		t.CreatorID,
		t.Name,
		t.Price,
		t.Currency,
		t.Active,
		t.CreatedAt,
		t.UpdatedAt,
		t.CreatedBy,
		t.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create tier").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tierRepository) Get(ctx context.Context, id string) (*tier.Tier, error) {
	query := `SELECT * FROM tiers WHERE id = $1`

	var t tier.Tier
	err := r.db.GetQuerier(ctx).GetContext(ctx, &t, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("tier not found").
				WithHintf("Tier with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get tier").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tierRepository) Update(ctx context.Context, t *tier.Tier) error {
	query := `
	UPDATE tiers SET
		name = $2, price = $3, currency = $4, active = $5,
		updated_at = $6, updated_by = $7
	WHERE id = $1
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		t.ID,
		t.Name,
		t.Price,
		t.Currency,
		t.Active,
		t.UpdatedAt,
		t.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tier").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tierRepository) ListByCreator(ctx context.Context, creatorID string) ([]*tier.Tier, error) {
	query := `
	SELECT * FROM tiers
	WHERE creator_id = $1
	ORDER BY price
	`

	var tiers []*tier.Tier
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &tiers, query, creatorID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tiers").
			Mark(ierr.ErrDatabase)
	}
	return tiers, nil
}
