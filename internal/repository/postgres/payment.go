package postgres

import (
	"context"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type paymentRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPaymentRepository(db postgres.IClient, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	query := `
	INSERT INTO payment_transactions (
		id, subscription_id, amount, currency, status,
		external_transaction_id, processed_at,
		created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		txn.ID,
		txn.SubscriptionID,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.ExternalTransactionID,
		txn.ProcessedAt,
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.CreatedBy,
		txn.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A transaction with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Transaction, error) {
	query := `SELECT * FROM payment_transactions WHERE id = $1`

	var txn payment.Transaction
	err := r.db.GetQuerier(ctx).GetContext(ctx, &txn, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("transaction not found").
				WithHintf("Transaction with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction").
			Mark(ierr.ErrDatabase)
	}
	return &txn, nil
}

func (r *paymentRepository) Update(ctx context.Context, txn *payment.Transaction) error {
	query := `
	UPDATE payment_transactions SET
		status = $2, external_transaction_id = $3, processed_at = $4,
		updated_at = $5, updated_by = $6
	WHERE id = $1
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		txn.ID,
		txn.Status,
		txn.ExternalTransactionID,
		txn.ProcessedAt,
		txn.UpdatedAt,
		txn.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Transaction, error) {
	query := `
	SELECT * FROM payment_transactions
	WHERE subscription_id = $1
	ORDER BY created_at
	`

	var txns []*payment.Transaction
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &txns, query, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	return txns, nil
}

// SumCompletedForCreator aggregates over the subscriptions join rather than
// denormalizing creator_id onto transactions.
func (r *paymentRepository) SumCompletedForCreator(ctx context.Context, creatorID string, period types.BillingPeriod) (*payment.CreatorPeriodTotal, error) {
	query := `
	SELECT
		COALESCE(SUM(pt.amount), 0) AS gross,
		COUNT(pt.id) AS transaction_count
	FROM payment_transactions pt
	JOIN subscriptions s ON s.id = pt.subscription_id
	WHERE s.creator_id = $1
	  AND pt.status = $2
	  AND pt.processed_at >= $3
	  AND pt.processed_at < $4
	`

	var total payment.CreatorPeriodTotal
	err := r.db.GetQuerier(ctx).GetContext(
		ctx, &total, query,
		creatorID,
		types.PaymentStatusCompleted,
		period.Start,
		period.End,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate creator earnings").
			Mark(ierr.ErrDatabase)
	}
	return &total, nil
}
