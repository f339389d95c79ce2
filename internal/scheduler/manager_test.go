package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payment"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/proration"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/idempotency"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/testutil"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type SchedulerManagerSuite struct {
	testutil.BaseServiceTestSuite
	manager *SchedulerManager
	momo    *testutil.FakeProvider
	period  types.BillingPeriod
}

func TestSchedulerManager(t *testing.T) {
	suite.Run(t, new(SchedulerManagerSuite))
}

func (s *SchedulerManagerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.momo = testutil.NewFakeProvider(types.PayoutMethodMTNMoMo)
	params := service.ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		SubRepo:        s.GetStores().SubscriptionRepo,
		TierRepo:       s.GetStores().TierRepo,
		PaymentRepo:    s.GetStores().PaymentRepo,
		PayoutRepo:     s.GetStores().PayoutRepo,
		Providers:      provider.NewRegistry(s.momo),
		ProrationCalc:  proration.NewCalculator(),
		IdempotencyGen: idempotency.NewGenerator(),
	}

	var err error
	s.manager, err = NewSchedulerManager(
		s.GetConfig(),
		s.GetLogger(),
		service.NewSubscriptionChangeService(params),
		service.NewEarningsService(params),
		service.NewPayoutService(params),
		s.GetStores().SubscriptionRepo,
	)
	s.Require().NoError(err)

	s.period = types.PreviousMonthlyPeriod(s.GetNow())
}

func (s *SchedulerManagerSuite) seedCreatorRevenue(creatorID string, amount decimal.Decimal) {
	sub := &subscription.Subscription{
		ID:              "sub_" + creatorID,
		FanID:           "fan_" + creatorID,
		CreatorID:       creatorID,
		TierID:          "tier_1",
		Status:          types.SubscriptionStatusActive,
		StartedAt:       s.period.Start.AddDate(0, -3, 0),
		NextBillingDate: s.GetNow().AddDate(0, 0, 20),
		AutoRenew:       true,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))

	processedAt := s.period.Start.Add(72 * time.Hour)
	txn := &payment.Transaction{
		ID:             "txn_" + creatorID,
		SubscriptionID: sub.ID,
		Amount:         amount,
		Currency:       "GHS",
		Status:         types.PaymentStatusCompleted,
		ProcessedAt:    &processedAt,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), txn))
}

func (s *SchedulerManagerSuite) seedSettings(creatorID string) {
	s.NoError(s.GetStores().PayoutRepo.UpsertSettings(s.GetContext(), &payout.Settings{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYOUT_SETTINGS),
		CreatorID:   creatorID,
		Method:      types.PayoutMethodMTNMoMo,
		PhoneNumber: "+233501234567",
		BaseModel:   types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *SchedulerManagerSuite) TestMonthlyRunPaysEligibleCreators() {
	s.seedCreatorRevenue("creator_1", decimal.NewFromInt(1000))
	s.seedSettings("creator_1")
	// creator_2 earned too little for a payout.
	s.seedCreatorRevenue("creator_2", decimal.NewFromInt(5))
	s.seedSettings("creator_2")

	paid, err := s.manager.RunMonthlyPayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, paid)

	payouts, err := s.GetStores().PayoutRepo.ListByCreator(s.GetContext(), "creator_1")
	s.NoError(err)
	s.Require().Len(payouts, 1)
	s.Equal(types.PayoutStatusCompleted, payouts[0].Status)
	// 1000 gross less 15% commission and 3.5% gateway fee.
	s.True(payouts[0].Amount.Equal(decimal.NewFromInt(815)),
		"expected 815, got %s", payouts[0].Amount)

	none, err := s.GetStores().PayoutRepo.ListByCreator(s.GetContext(), "creator_2")
	s.NoError(err)
	s.Empty(none)
}

func (s *SchedulerManagerSuite) TestMonthlyRunIsRepeatSafe() {
	s.seedCreatorRevenue("creator_1", decimal.NewFromInt(1000))
	s.seedSettings("creator_1")

	paid, err := s.manager.RunMonthlyPayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, paid)

	// A re-triggered run settles nothing and moves no money.
	paid, err = s.manager.RunMonthlyPayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, paid)
	s.Equal(1, s.momo.ProcessCount())
}

func (s *SchedulerManagerSuite) TestLifecycle() {
	s.Require().NoError(s.manager.RegisterJobs())

	s.False(s.manager.IsStarted())
	s.manager.Start()
	s.True(s.manager.IsStarted())

	s.NoError(s.manager.Stop())
	s.False(s.manager.IsStarted())
}
