package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the gateway-side state of a charge.
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "pending"
	ChargeStatusSuccess ChargeStatus = "success"
	ChargeStatusFailed  ChargeStatus = "failed"
)

// InitializeChargeRequest starts a charge against a fan's payment method.
type InitializeChargeRequest struct {
	Amount   decimal.Decimal
	Currency string
	Customer string
	Metadata map[string]string
}

// InitializeChargeResponse carries the redirect URL (or token) the fan
// completes the charge with, plus the gateway reference for verification.
type InitializeChargeResponse struct {
	Reference   string
	RedirectURL string
	AccessToken string
}

// VerifyChargeResponse is the gateway's authoritative view of a charge.
type VerifyChargeResponse struct {
	Status   ChargeStatus
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// Gateway is the opaque payment-gateway capability the platform charges
// fans through. The raw charge/verify mechanics are an external
// collaborator; billing only depends on this interface.
type Gateway interface {
	InitializeCharge(ctx context.Context, req InitializeChargeRequest) (*InitializeChargeResponse, error)
	VerifyCharge(ctx context.Context, reference string) (*VerifyChargeResponse, error)
	ValidateWebhookSignature(payload []byte, signature string) bool
}
