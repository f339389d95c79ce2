package testutil

import (
	"context"
	"sync"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// FakeProvider is a programmable payout provider. Tests set ProcessErr or
// VerifyResult to steer the outcome; every Process call is recorded.
type FakeProvider struct {
	mu sync.Mutex

	method types.PayoutMethod

	ProcessErr    error
	TransactionID string
	VerifyOutcome *provider.VerifyResult
	VerifyErr     error

	ProcessCalls []provider.ProcessRequest
	VerifyCalls  []string
}

// NewFakeProvider creates a provider that succeeds by default
func NewFakeProvider(method types.PayoutMethod) *FakeProvider {
	return &FakeProvider{
		method:        method,
		TransactionID: "ext_" + types.GenerateUUID(),
	}
}

func (f *FakeProvider) Method() types.PayoutMethod {
	return f.method
}

func (f *FakeProvider) Process(ctx context.Context, req provider.ProcessRequest) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ProcessCalls = append(f.ProcessCalls, req)
	if f.ProcessErr != nil {
		return nil, f.ProcessErr
	}
	return &provider.Result{TransactionID: f.TransactionID}, nil
}

func (f *FakeProvider) Verify(ctx context.Context, reference string) (*provider.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.VerifyCalls = append(f.VerifyCalls, reference)
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	if f.VerifyOutcome != nil {
		return f.VerifyOutcome, nil
	}
	return &provider.VerifyResult{Found: false}, nil
}

// ProcessCount returns how many disbursement attempts the provider has seen
func (f *FakeProvider) ProcessCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ProcessCalls)
}
