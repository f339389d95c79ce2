package dto

import (
	"github.com/shopspring/decimal"
)

// GatewayWebhookEvent is the payload the payment gateway posts on charge
// state changes. Metadata carries the tier-switch context set at
// initialization time.
type GatewayWebhookEvent struct {
	Event     string            `json:"event"`
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Gateway webhook event names.
const (
	WebhookEventChargeSuccess = "charge.success"
	WebhookEventChargeFailed  = "charge.failed"
)
