package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/testutil"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type EarningsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service EarningsService
	period  types.BillingPeriod
}

func TestEarningsService(t *testing.T) {
	suite.Run(t, new(EarningsServiceSuite))
}

func (s *EarningsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewEarningsService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		SubRepo:     s.GetStores().SubscriptionRepo,
		TierRepo:    s.GetStores().TierRepo,
		PaymentRepo: s.GetStores().PaymentRepo,
		PayoutRepo:  s.GetStores().PayoutRepo,
	})
	s.period = types.PreviousMonthlyPeriod(s.GetNow())
}

func (s *EarningsServiceSuite) createSubscription(id, creatorID string) {
	sub := &subscription.Subscription{
		ID:              id,
		FanID:           "fan_" + id,
		CreatorID:       creatorID,
		TierID:          "tier_1",
		Status:          types.SubscriptionStatusActive,
		StartedAt:       s.period.Start.AddDate(0, -1, 0),
		NextBillingDate: s.GetNow().AddDate(0, 0, 15),
		AutoRenew:       true,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
}

func (s *EarningsServiceSuite) recordTransaction(id, subscriptionID string, amount decimal.Decimal, status types.PaymentStatus, processedAt time.Time) {
	txn := &payment.Transaction{
		ID:             id,
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Currency:       "GHS",
		Status:         status,
		ProcessedAt:    &processedAt,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), txn))
}

func (s *EarningsServiceSuite) TestFeeDeductionOnGrossRevenue() {
	s.createSubscription("sub_1", "creator_1")
	// 1000 gross across the period: 15% platform fee and 3.5% gateway fee
	// leave 815 net.
	s.recordTransaction("txn_1", "sub_1", decimal.NewFromInt(600), types.PaymentStatusCompleted, s.period.Start.Add(24*time.Hour))
	s.recordTransaction("txn_2", "sub_1", decimal.NewFromInt(400), types.PaymentStatusCompleted, s.period.Start.Add(48*time.Hour))

	earnings, err := s.service.CalculateEarnings(s.GetContext(), "creator_1", s.period)
	s.NoError(err)
	s.True(earnings.Gross.Equal(decimal.NewFromInt(1000)))
	s.True(earnings.PlatformFee.Equal(decimal.NewFromInt(150)))
	s.True(earnings.GatewayFee.Equal(decimal.NewFromInt(35)))
	s.True(earnings.Net.Equal(decimal.NewFromInt(815)), "expected 815, got %s", earnings.Net)
	s.Equal(2, earnings.TransactionCount)
	s.Equal("GHS", earnings.Currency)
}

func (s *EarningsServiceSuite) TestOnlyCompletedTransactionsInPeriodCount() {
	s.createSubscription("sub_1", "creator_1")
	s.createSubscription("sub_2", "creator_2")

	s.recordTransaction("txn_in", "sub_1", decimal.NewFromInt(100), types.PaymentStatusCompleted, s.period.Start.Add(time.Hour))
	s.recordTransaction("txn_failed", "sub_1", decimal.NewFromInt(50), types.PaymentStatusFailed, s.period.Start.Add(time.Hour))
	s.recordTransaction("txn_refunded", "sub_1", decimal.NewFromInt(50), types.PaymentStatusRefunded, s.period.Start.Add(time.Hour))
	s.recordTransaction("txn_before", "sub_1", decimal.NewFromInt(50), types.PaymentStatusCompleted, s.period.Start.Add(-time.Hour))
	s.recordTransaction("txn_after", "sub_1", decimal.NewFromInt(50), types.PaymentStatusCompleted, s.period.End.Add(time.Hour))
	s.recordTransaction("txn_other_creator", "sub_2", decimal.NewFromInt(900), types.PaymentStatusCompleted, s.period.Start.Add(time.Hour))

	earnings, err := s.service.CalculateEarnings(s.GetContext(), "creator_1", s.period)
	s.NoError(err)
	s.True(earnings.Gross.Equal(decimal.NewFromInt(100)))
	s.Equal(1, earnings.TransactionCount)
}

func (s *EarningsServiceSuite) TestZeroRevenueCreator() {
	earnings, err := s.service.CalculateEarnings(s.GetContext(), "creator_quiet", s.period)
	s.NoError(err)
	s.True(earnings.Gross.IsZero())
	s.True(earnings.Net.IsZero())
	s.Equal(0, earnings.TransactionCount)
}

func (s *EarningsServiceSuite) TestNetNeverNegative() {
	// Misconfigured rates must clamp rather than produce a negative payout.
	s.GetConfig().Billing.CommissionRate = decimal.NewFromFloat(0.80)
	s.GetConfig().Billing.GatewayRate = decimal.NewFromFloat(0.30)
	defer func() {
		s.GetConfig().Billing.CommissionRate = decimal.NewFromFloat(0.15)
		s.GetConfig().Billing.GatewayRate = decimal.NewFromFloat(0.035)
	}()

	s.createSubscription("sub_1", "creator_1")
	s.recordTransaction("txn_1", "sub_1", decimal.NewFromInt(100), types.PaymentStatusCompleted, s.period.Start.Add(time.Hour))

	earnings, err := s.service.CalculateEarnings(s.GetContext(), "creator_1", s.period)
	s.NoError(err)
	s.True(earnings.Net.IsZero())
}

func (s *EarningsServiceSuite) TestInvalidInputs() {
	_, err := s.service.CalculateEarnings(s.GetContext(), "", s.period)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.CalculateEarnings(s.GetContext(), "creator_1", types.BillingPeriod{
		Start: s.period.End,
		End:   s.period.Start,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
