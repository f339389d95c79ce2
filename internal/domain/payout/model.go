package payout

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Payout is one money movement out of the platform to a creator. Created
// pending before any provider call; transitioned to completed or failed
// strictly after the provider call returns.
type Payout struct {
	ID          string             `db:"id" json:"id"`
	CreatorID   string             `db:"creator_id" json:"creator_id"`
	Amount      decimal.Decimal    `db:"amount" json:"amount"`
	Currency    string             `db:"currency" json:"currency"`
	Status      types.PayoutStatus `db:"status" json:"status"`
	PeriodStart time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time          `db:"period_end" json:"period_end"`
	Method      types.PayoutMethod `db:"method" json:"method"`
	// ExternalTransactionID is the provider's reference once the transfer
	// succeeded.
	ExternalTransactionID *string    `db:"external_transaction_id" json:"external_transaction_id,omitempty"`
	ProcessedAt           *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	// FailureReason records the provider decline or timeout for operator
	// review.
	FailureReason *string `db:"failure_reason" json:"failure_reason,omitempty"`
	// AttemptCount bounds the weekly retry sweep.
	AttemptCount  int        `db:"attempt_count" json:"attempt_count"`
	LastAttemptAt *time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`

	types.BaseModel
}

func (p *Payout) Validate() error {
	if p.CreatorID == "" {
		return ierr.NewError("creator id is required").
			WithHint("Payout must reference a creator").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("invalid payout amount").
			WithHint("Payout amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"amount": p.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !p.PeriodEnd.After(p.PeriodStart) {
		return ierr.NewError("invalid payout period").
			WithHint("Period end must be after period start").
			Mark(ierr.ErrValidation)
	}
	if err := p.Method.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payout method").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Period returns the settlement period of this payout.
func (p *Payout) Period() types.BillingPeriod {
	return types.BillingPeriod{Start: p.PeriodStart, End: p.PeriodEnd}
}

// Settings is a creator's payout configuration. A payout cannot be attempted
// without this record existing.
type Settings struct {
	ID        string             `db:"id" json:"id"`
	CreatorID string             `db:"creator_id" json:"creator_id"`
	Method    types.PayoutMethod `db:"method" json:"method"`

	// Mobile money destination
	PhoneNumber string `db:"phone_number" json:"phone_number,omitempty"`

	// Bank transfer destination
	AccountNumber string `db:"account_number" json:"account_number,omitempty"`
	AccountName   string `db:"account_name" json:"account_name,omitempty"`
	BankCode      string `db:"bank_code" json:"bank_code,omitempty"`

	// AutoWithdrawThreshold overrides the platform minimum when set higher.
	AutoWithdrawThreshold decimal.Decimal `db:"auto_withdraw_threshold" json:"auto_withdraw_threshold"`

	types.BaseModel
}

// Destination is what a provider needs to move money to a creator.
type Destination struct {
	Method        types.PayoutMethod
	PhoneNumber   string
	AccountNumber string
	AccountName   string
	BankCode      string
}

// Destination resolves the provider destination from the settings.
func (s *Settings) Destination() (Destination, error) {
	switch s.Method {
	case types.PayoutMethodMTNMoMo, types.PayoutMethodTelecelCash:
		if s.PhoneNumber == "" {
			return Destination{}, ierr.NewError("missing mobile money number").
				WithHint("Payout settings have no phone number configured").
				WithReportableDetails(map[string]any{
					"creator_id": s.CreatorID,
					"method":     s.Method,
				}).
				Mark(ierr.ErrValidation)
		}
		return Destination{Method: s.Method, PhoneNumber: s.PhoneNumber}, nil
	case types.PayoutMethodBankTransfer:
		if s.AccountNumber == "" || s.BankCode == "" {
			return Destination{}, ierr.NewError("incomplete bank destination").
				WithHint("Payout settings need an account number and bank code").
				WithReportableDetails(map[string]any{
					"creator_id": s.CreatorID,
				}).
				Mark(ierr.ErrValidation)
		}
		return Destination{
			Method:        s.Method,
			AccountNumber: s.AccountNumber,
			AccountName:   s.AccountName,
			BankCode:      s.BankCode,
		}, nil
	default:
		return Destination{}, ierr.NewError("unsupported payout method").
			WithReportableDetails(map[string]any{
				"method": s.Method,
			}).
			Mark(ierr.ErrValidation)
	}
}
