package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// telecelCash disburses to Telecel Cash wallets.
type telecelCash struct {
	*httpDisburser
}

// NewTelecelCash creates the Telecel Cash provider.
func NewTelecelCash(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) Provider {
	return &telecelCash{httpDisburser: newHTTPDisburser(baseURL, apiKey, timeout, log)}
}

func (p *telecelCash) Method() types.PayoutMethod {
	return types.PayoutMethodTelecelCash
}

func (p *telecelCash) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	resp, err := p.post(ctx, "/api/transfers", map[string]any{
		"client_reference": req.Reference,
		"amount":           req.Amount.StringFixed(2),
		"currency":         req.Currency,
		"recipient_number": req.Destination.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: resp.TransactionID}, nil
}

func (p *telecelCash) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	return p.verify(ctx, fmt.Sprintf("/api/transfers/%s/status", reference))
}
