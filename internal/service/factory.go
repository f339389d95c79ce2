package service

import (
	"github.com/RasParker/XclusiveAfrica-sub000/internal/config"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/proration"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/gateway"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/idempotency"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	SubRepo     subscription.Repository
	TierRepo    tier.Repository
	PaymentRepo payment.Repository
	PayoutRepo  payout.Repository

	// External collaborators
	Gateway   gateway.Gateway
	Providers *provider.Registry

	// Shared helpers
	ProrationCalc  proration.Calculator
	IdempotencyGen *idempotency.Generator
}

// NewServiceParams assembles the common dependency bag used by all services.
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	subRepo subscription.Repository,
	tierRepo tier.Repository,
	paymentRepo payment.Repository,
	payoutRepo payout.Repository,
	gw gateway.Gateway,
	providers *provider.Registry,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		DB:             db,
		SubRepo:        subRepo,
		TierRepo:       tierRepo,
		PaymentRepo:    paymentRepo,
		PayoutRepo:     payoutRepo,
		Gateway:        gw,
		Providers:      providers,
		ProrationCalc:  proration.NewCalculator(),
		IdempotencyGen: idempotency.NewGenerator(),
	}
}
