package postgres

import (
	"context"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type payoutRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPayoutRepository(db postgres.IClient, logger *logger.Logger) payout.Repository {
	return &payoutRepository{db: db, logger: logger}
}

// Create checks for an overlapping payout and inserts in the same
// transaction. The unique constraint on (creator_id, period_start,
// period_end) backstops the overlap query against concurrent runs.
func (r *payoutRepository) Create(ctx context.Context, p *payout.Payout) error {
	q := r.db.GetQuerier(ctx)

	overlap := `
	SELECT COUNT(*) FROM creator_payouts
	WHERE creator_id = $1 AND period_start < $3 AND period_end > $2
	`
	var count int
	if err := q.GetContext(ctx, &count, overlap, p.CreatorID, p.PeriodStart, p.PeriodEnd); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to check for overlapping payouts").
			Mark(ierr.ErrDatabase)
	}
	if count > 0 {
		return ierr.NewError("payout period already settled").
			WithHintf("A payout already covers this period for creator %s", p.CreatorID).
			WithReportableDetails(map[string]any{
				"creator_id":   p.CreatorID,
				"period_start": p.PeriodStart,
				"period_end":   p.PeriodEnd,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	insert := `
	INSERT INTO creator_payouts (
		id, creator_id, amount, currency, status, period_start, period_end,
		method, external_transaction_id, processed_at, failure_reason,
		attempt_count, last_attempt_at,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := q.ExecContext(
		ctx, insert,
		p.ID,
		p.CreatorID,
		p.Amount,
		p.Currency,
		p.Status,
		p.PeriodStart,
		p.PeriodEnd,
		p.Method,
		p.ExternalTransactionID,
		p.ProcessedAt,
		p.FailureReason,
		p.AttemptCount,
		p.LastAttemptAt,
		p.CreatedAt,
		p.UpdatedAt,
		p.CreatedBy,
		p.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("A payout already covers this period for creator %s", p.CreatorID).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payout").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *payoutRepository) Get(ctx context.Context, id string) (*payout.Payout, error) {
	query := `SELECT * FROM creator_payouts WHERE id = $1`

	var p payout.Payout
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("payout not found").
				WithHintf("Payout with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payout").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *payoutRepository) Update(ctx context.Context, p *payout.Payout) error {
	query := `
	UPDATE creator_payouts SET
		status = $2, external_transaction_id = $3, processed_at = $4,
		failure_reason = $5, attempt_count = $6, last_attempt_at = $7,
		updated_at = $8, updated_by = $9
	WHERE id = $1
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		p.ID,
		p.Status,
		p.ExternalTransactionID,
		p.ProcessedAt,
		p.FailureReason,
		p.AttemptCount,
		p.LastAttemptAt,
		p.UpdatedAt,
		p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update payout").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *payoutRepository) FindOverlapping(ctx context.Context, creatorID string, period types.BillingPeriod) (*payout.Payout, error) {
	query := `
	SELECT * FROM creator_payouts
	WHERE creator_id = $1 AND period_start < $3 AND period_end > $2
	LIMIT 1
	`

	var p payout.Payout
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, creatorID, period.Start, period.End)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("payout not found").
				WithHintf("No payout overlaps this period for creator %s", creatorID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to find overlapping payout").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *payoutRepository) ListByCreator(ctx context.Context, creatorID string) ([]*payout.Payout, error) {
	query := `
	SELECT * FROM creator_payouts
	WHERE creator_id = $1
	ORDER BY period_start DESC
	`

	var payouts []*payout.Payout
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &payouts, query, creatorID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payouts").
			Mark(ierr.ErrDatabase)
	}
	return payouts, nil
}

// ClaimStale stamps last_attempt_at on the claimed rows; combined with the
// attempt-recency filter and SKIP LOCKED, concurrent sweeps never hand out
// the same payout.
func (r *payoutRepository) ClaimStale(ctx context.Context, cutoff time.Time, limit int) ([]*payout.Payout, error) {
	query := `
	UPDATE creator_payouts
	SET last_attempt_at = $1, updated_at = $1, updated_by = $2
	WHERE id IN (
		SELECT id FROM creator_payouts
		WHERE (status = $3 OR (status = $4 AND created_at < $5))
		  AND (last_attempt_at IS NULL OR last_attempt_at < $5)
		ORDER BY created_at
		LIMIT $6
		FOR UPDATE SKIP LOCKED
	)
	RETURNING *
	`

	rows, err := r.db.GetQuerier(ctx).QueryContext(
		ctx, query,
		time.Now().UTC(),
		types.GetUserID(ctx),
		types.PayoutStatusFailed,
		types.PayoutStatusPending,
		cutoff,
		limit,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim stale payouts").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payouts []*payout.Payout
	for rows.Next() {
		var p payout.Payout
		if err := rows.Scan(
			&p.ID,
			&p.CreatorID,
			&p.Amount,
			&p.Currency,
			&p.Status,
			&p.PeriodStart,
			&p.PeriodEnd,
			&p.Method,
			&p.ExternalTransactionID,
			&p.ProcessedAt,
			&p.FailureReason,
			&p.AttemptCount,
			&p.LastAttemptAt,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.CreatedBy,
			&p.UpdatedBy,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan claimed payout").
				Mark(ierr.ErrDatabase)
		}
		payouts = append(payouts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read claimed payouts").
			Mark(ierr.ErrDatabase)
	}
	return payouts, nil
}

func (r *payoutRepository) GetSettings(ctx context.Context, creatorID string) (*payout.Settings, error) {
	query := `SELECT * FROM creator_payout_settings WHERE creator_id = $1`

	var s payout.Settings
	err := r.db.GetQuerier(ctx).GetContext(ctx, &s, query, creatorID)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("payout settings not found").
				WithHintf("Creator %s has no payout settings", creatorID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payout settings").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *payoutRepository) UpsertSettings(ctx context.Context, s *payout.Settings) error {
	query := `
	INSERT INTO creator_payout_settings (
		id, creator_id, method, phone_number, account_number, account_name,
		bank_code, auto_withdraw_threshold,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (creator_id) DO UPDATE SET
		method = EXCLUDED.method,
		phone_number = EXCLUDED.phone_number,
		account_number = EXCLUDED.account_number,
		account_name = EXCLUDED.account_name,
		bank_code = EXCLUDED.bank_code,
		auto_withdraw_threshold = EXCLUDED.auto_withdraw_threshold,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		s.ID,
		s.CreatorID,
		s.Method,
		s.PhoneNumber,
		s.AccountNumber,
		s.AccountName,
		s.BankCode,
		s.AutoWithdrawThreshold,
		s.CreatedAt,
		s.UpdatedAt,
		s.CreatedBy,
		s.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save payout settings").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
