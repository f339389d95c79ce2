package repository

import (
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/postgres"
	postgresRepo "github.com/RasParker/XclusiveAfrica-sub000/internal/repository/postgres"
)

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewTierRepository(db *postgres.DB, logger *logger.Logger) tier.Repository {
	return postgresRepo.NewTierRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewPayoutRepository(db *postgres.DB, logger *logger.Logger) payout.Repository {
	return postgresRepo.NewPayoutRepository(db, logger)
}
