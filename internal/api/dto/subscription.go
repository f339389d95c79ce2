package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/validator"
)

// ChangeTierRequest asks for a tier change on a subscription
type ChangeTierRequest struct {
	NewTierID string `json:"new_tier_id" validate:"required"`
}

func (r *ChangeTierRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ChangeTierResponse reports what the change request decided
type ChangeTierResponse struct {
	Outcome       string                `json:"outcome"`
	Amount        decimal.Decimal       `json:"amount"`
	AttemptToken  string                `json:"attempt_token,omitempty"`
	EffectiveDate *time.Time            `json:"effective_date,omitempty"`
	CreditAmount  decimal.Decimal       `json:"credit_amount"`
	Subscription  *SubscriptionResponse `json:"subscription,omitempty"`
}

// ApplyTierSwitchRequest commits a tier switch after payment confirmation
type ApplyTierSwitchRequest struct {
	NewTierID       string          `json:"new_tier_id" validate:"required"`
	ProrationAmount decimal.Decimal `json:"proration_amount"`
	AttemptToken    string          `json:"attempt_token" validate:"required"`
}

func (r *ApplyTierSwitchRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CancelSubscriptionRequest cancels a subscription
type CancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// SubscriptionResponse is the public view of a subscription
type SubscriptionResponse struct {
	ID              string                   `json:"id"`
	FanID           string                   `json:"fan_id"`
	CreatorID       string                   `json:"creator_id"`
	TierID          string                   `json:"tier_id"`
	PreviousTierID  *string                  `json:"previous_tier_id,omitempty"`
	Status          types.SubscriptionStatus `json:"status"`
	StartedAt       time.Time                `json:"started_at"`
	NextBillingDate time.Time                `json:"next_billing_date"`
	AutoRenew       bool                     `json:"auto_renew"`
	ProrationCredit decimal.Decimal          `json:"proration_credit"`
}

func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:              sub.ID,
		FanID:           sub.FanID,
		CreatorID:       sub.CreatorID,
		TierID:          sub.TierID,
		PreviousTierID:  sub.PreviousTierID,
		Status:          sub.Status,
		StartedAt:       sub.StartedAt,
		NextBillingDate: sub.NextBillingDate,
		AutoRenew:       sub.AutoRenew,
		ProrationCredit: sub.ProrationCredit,
	}
}
