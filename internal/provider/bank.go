package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// bankTransfer disburses over the interbank rail. Bank settlement is the
// slowest of the three channels; the configured timeout only bounds the
// submission call, not clearing.
type bankTransfer struct {
	*httpDisburser
}

// NewBankTransfer creates the bank transfer provider.
func NewBankTransfer(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) Provider {
	return &bankTransfer{httpDisburser: newHTTPDisburser(baseURL, apiKey, timeout, log)}
}

func (p *bankTransfer) Method() types.PayoutMethod {
	return types.PayoutMethodBankTransfer
}

func (p *bankTransfer) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	resp, err := p.post(ctx, "/v2/payouts", map[string]any{
		"reference":      req.Reference,
		"amount":         req.Amount.StringFixed(2),
		"currency":       req.Currency,
		"account_number": req.Destination.AccountNumber,
		"account_name":   req.Destination.AccountName,
		"bank_code":      req.Destination.BankCode,
	})
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: resp.TransactionID}, nil
}

func (p *bankTransfer) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	return p.verify(ctx, fmt.Sprintf("/v2/payouts/%s", reference))
}
