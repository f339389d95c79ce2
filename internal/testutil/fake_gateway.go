package testutil

import (
	"context"
	"sync"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/gateway"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// FakeGateway is a programmable payment gateway for tests.
type FakeGateway struct {
	mu sync.Mutex

	InitializeErr error
	VerifyStatus  gateway.ChargeStatus
	ValidSig      bool

	InitializeCalls []gateway.InitializeChargeRequest
}

// NewFakeGateway creates a gateway whose charges succeed by default
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		VerifyStatus: gateway.ChargeStatusSuccess,
		ValidSig:     true,
	}
}

func (f *FakeGateway) InitializeCharge(ctx context.Context, req gateway.InitializeChargeRequest) (*gateway.InitializeChargeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.InitializeCalls = append(f.InitializeCalls, req)
	if f.InitializeErr != nil {
		return nil, f.InitializeErr
	}
	return &gateway.InitializeChargeResponse{
		Reference:   "chg_" + types.GenerateUUID(),
		RedirectURL: "https://checkout.example.test/redirect",
	}, nil
}

func (f *FakeGateway) VerifyCharge(ctx context.Context, reference string) (*gateway.VerifyChargeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &gateway.VerifyChargeResponse{Status: f.VerifyStatus}, nil
}

func (f *FakeGateway) ValidateWebhookSignature(payload []byte, signature string) bool {
	return f.ValidSig
}
