package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// ProcessRequest asks a provider to move money to a creator. Reference is
// the payout id; providers treat it as an idempotency reference so a
// replayed request after an unknown outcome does not double-send.
type ProcessRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Destination payout.Destination
}

// Result is a successful money movement.
type Result struct {
	TransactionID string
}

// VerifyResult reports the provider-side state of a previously submitted
// transfer.
type VerifyResult struct {
	Found         bool
	Completed     bool
	TransactionID string
}

// Provider is an external money-movement channel. Process blocks on
// latency-bearing I/O and must honor ctx cancellation; an explicit decline
// is returned marked ErrProviderFailure, a timeout or transport failure is
// marked ErrProviderTimeout (unknown outcome, never assume success or
// definitive failure). New providers slot in without touching the
// distributor.
type Provider interface {
	Method() types.PayoutMethod
	Process(ctx context.Context, req ProcessRequest) (*Result, error)
	// Verify re-derives the outcome of an earlier Process call by reference.
	// Used by the retry sweep before ever re-sending money.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Registry resolves providers by payout method.
type Registry struct {
	providers map[types.PayoutMethod]Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[types.PayoutMethod]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Method()] = p
	}
	return r
}

// Resolve returns the provider for a payout method.
func (r *Registry) Resolve(method types.PayoutMethod) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, ierr.NewError("no provider for payout method").
			WithHintf("No payout provider is registered for method %s", method).
			WithReportableDetails(map[string]any{
				"method": method,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return p, nil
}
