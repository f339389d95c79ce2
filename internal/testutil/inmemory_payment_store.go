package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// InMemoryPaymentStore implements payment.Repository. Creator aggregation
// resolves subscription ownership through the subscription store, the way
// the SQL implementation joins against the subscriptions table.
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Transaction]
	subs *InMemorySubscriptionStore
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore(subs *InMemorySubscriptionStore) *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Transaction](),
		subs:          subs,
	}
}

func (m *InMemoryPaymentStore) Create(ctx context.Context, txn *payment.Transaction) error {
	if txn == nil {
		return ierr.NewError("transaction cannot be nil").
			WithHint("Transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, txn.ID, txn)
}

func (m *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Transaction, error) {
	txn, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return txn, nil
}

func (m *InMemoryPaymentStore) Update(ctx context.Context, txn *payment.Transaction) error {
	if txn == nil {
		return ierr.NewError("transaction cannot be nil").
			WithHint("Transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}
	txn.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, txn.ID, txn)
}

func (m *InMemoryPaymentStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Transaction, error) {
	return m.InMemoryStore.List(ctx, nil, func(ctx context.Context, t *payment.Transaction, _ interface{}) bool {
		return t.SubscriptionID == subscriptionID
	}, func(i, j *payment.Transaction) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (m *InMemoryPaymentStore) SumCompletedForCreator(ctx context.Context, creatorID string, period types.BillingPeriod) (*payment.CreatorPeriodTotal, error) {
	txns, err := m.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	total := &payment.CreatorPeriodTotal{Gross: decimal.Zero}
	for _, txn := range txns {
		if txn.Status != types.PaymentStatusCompleted || txn.ProcessedAt == nil {
			continue
		}
		if !period.Contains(*txn.ProcessedAt) {
			continue
		}
		sub, err := m.subs.Get(ctx, txn.SubscriptionID)
		if err != nil || sub.CreatorID != creatorID {
			continue
		}
		total.Gross = total.Gross.Add(txn.Amount)
		total.TransactionCount++
	}
	return total, nil
}
