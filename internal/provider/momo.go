package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// mtnMoMo disburses to MTN Mobile Money wallets.
type mtnMoMo struct {
	*httpDisburser
}

// NewMTNMoMo creates the MTN Mobile Money provider.
func NewMTNMoMo(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) Provider {
	return &mtnMoMo{httpDisburser: newHTTPDisburser(baseURL, apiKey, timeout, log)}
}

func (p *mtnMoMo) Method() types.PayoutMethod {
	return types.PayoutMethodMTNMoMo
}

func (p *mtnMoMo) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	resp, err := p.post(ctx, "/v1/disbursements", map[string]any{
		"external_reference": req.Reference,
		"amount":             req.Amount.StringFixed(2),
		"currency":           req.Currency,
		"msisdn":             req.Destination.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: resp.TransactionID}, nil
}

func (p *mtnMoMo) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	return p.verify(ctx, fmt.Sprintf("/v1/disbursements/%s", reference))
}
