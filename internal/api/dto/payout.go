package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/validator"
)

// EarningsResponse is a creator's settlement breakdown for one period
type EarningsResponse struct {
	CreatorID        string          `json:"creator_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	Gross            decimal.Decimal `json:"gross"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	GatewayFee       decimal.Decimal `json:"gateway_fee"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
	Currency         string          `json:"currency"`
}

// PayoutResponse is the public view of a payout
type PayoutResponse struct {
	ID                    string             `json:"id"`
	CreatorID             string             `json:"creator_id"`
	Amount                decimal.Decimal    `json:"amount"`
	Currency              string             `json:"currency"`
	Status                types.PayoutStatus `json:"status"`
	PeriodStart           time.Time          `json:"period_start"`
	PeriodEnd             time.Time          `json:"period_end"`
	Method                types.PayoutMethod `json:"method"`
	ExternalTransactionID *string            `json:"external_transaction_id,omitempty"`
	ProcessedAt           *time.Time         `json:"processed_at,omitempty"`
	FailureReason         *string            `json:"failure_reason,omitempty"`
	AttemptCount          int                `json:"attempt_count"`
}

func NewPayoutResponse(p *payout.Payout) *PayoutResponse {
	return &PayoutResponse{
		ID:                    p.ID,
		CreatorID:             p.CreatorID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                p.Status,
		PeriodStart:           p.PeriodStart,
		PeriodEnd:             p.PeriodEnd,
		Method:                p.Method,
		ExternalTransactionID: p.ExternalTransactionID,
		ProcessedAt:           p.ProcessedAt,
		FailureReason:         p.FailureReason,
		AttemptCount:          p.AttemptCount,
	}
}

// UpsertPayoutSettingsRequest sets a creator's payout destination
type UpsertPayoutSettingsRequest struct {
	Method                types.PayoutMethod `json:"method" validate:"required"`
	PhoneNumber           string             `json:"phone_number,omitempty"`
	AccountNumber         string             `json:"account_number,omitempty"`
	AccountName           string             `json:"account_name,omitempty"`
	BankCode              string             `json:"bank_code,omitempty"`
	AutoWithdrawThreshold decimal.Decimal    `json:"auto_withdraw_threshold"`
}

func (r *UpsertPayoutSettingsRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Method.Validate()
}
