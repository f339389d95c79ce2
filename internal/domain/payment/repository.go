package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// CreatorPeriodTotal is the aggregation of completed transactions flowing to
// one creator's subscriptions over a period.
type CreatorPeriodTotal struct {
	Gross            decimal.Decimal `db:"gross"`
	TransactionCount int             `db:"transaction_count"`
}

// Repository defines the interface for payment transaction persistence
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Transaction, error)

	// SumCompletedForCreator aggregates completed transactions for the
	// creator's subscriptions with processed_at inside the period.
	SumCompletedForCreator(ctx context.Context, creatorID string, period types.BillingPeriod) (*CreatorPeriodTotal, error)
}
