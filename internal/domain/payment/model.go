package payment

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Transaction is one money movement into the platform. Append-only; a
// subscription accumulates many over its life.
type Transaction struct {
	ID             string              `db:"id" json:"id"`
	SubscriptionID string              `db:"subscription_id" json:"subscription_id"`
	Amount         decimal.Decimal     `db:"amount" json:"amount"`
	Currency       string              `db:"currency" json:"currency"`
	Status         types.PaymentStatus `db:"status" json:"status"`
	// ExternalTransactionID is the gateway's reference for this charge.
	ExternalTransactionID *string    `db:"external_transaction_id" json:"external_transaction_id,omitempty"`
	ProcessedAt           *time.Time `db:"processed_at" json:"processed_at,omitempty"`

	types.BaseModel
}

func (t *Transaction) Validate() error {
	if t.SubscriptionID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Transaction must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"amount": t.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := t.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment status").
			Mark(ierr.ErrValidation)
	}
	return nil
}
