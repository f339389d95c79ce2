package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/testutil"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type PayoutServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PayoutService
	momo     *testutil.FakeProvider
	period   types.BillingPeriod
	earnings *Earnings
}

func TestPayoutService(t *testing.T) {
	suite.Run(t, new(PayoutServiceSuite))
}

func (s *PayoutServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.momo = testutil.NewFakeProvider(types.PayoutMethodMTNMoMo)
	s.service = NewPayoutService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		SubRepo:     s.GetStores().SubscriptionRepo,
		TierRepo:    s.GetStores().TierRepo,
		PaymentRepo: s.GetStores().PaymentRepo,
		PayoutRepo:  s.GetStores().PayoutRepo,
		Providers:   provider.NewRegistry(s.momo),
	})

	s.period = types.PreviousMonthlyPeriod(s.GetNow())
	s.earnings = &Earnings{
		CreatorID:        "creator_1",
		Period:           s.period,
		Gross:            decimal.NewFromInt(1000),
		PlatformFee:      decimal.NewFromInt(150),
		GatewayFee:       decimal.NewFromFloat(35),
		Net:              decimal.NewFromInt(815),
		TransactionCount: 12,
		Currency:         "GHS",
	}

	s.NoError(s.GetStores().PayoutRepo.UpsertSettings(s.GetContext(), &payout.Settings{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYOUT_SETTINGS),
		CreatorID:   "creator_1",
		Method:      types.PayoutMethodMTNMoMo,
		PhoneNumber: "+233241234567",
		BaseModel:   types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *PayoutServiceSuite) TestSuccessfulPayout() {
	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.NotNil(p)
	s.Equal(types.PayoutStatusCompleted, p.Status)
	s.True(p.Amount.Equal(decimal.NewFromInt(815)))
	s.NotNil(p.ExternalTransactionID)
	s.NotNil(p.ProcessedAt)
	s.Equal(1, p.AttemptCount)

	s.Equal(1, s.momo.ProcessCount())
	req := s.momo.ProcessCalls[0]
	s.Equal(p.ID, req.Reference)
	s.True(req.Amount.Equal(decimal.NewFromInt(815)))
	s.Equal("+233241234567", req.Destination.PhoneNumber)

	stored, err := s.GetStores().PayoutRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatusCompleted, stored.Status)
}

func (s *PayoutServiceSuite) TestBelowMinimumIsNoOp() {
	s.earnings.Net = decimal.NewFromInt(5)

	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.Nil(p)
	s.Equal(0, s.momo.ProcessCount())

	payouts, err := s.GetStores().PayoutRepo.ListByCreator(s.GetContext(), "creator_1")
	s.NoError(err)
	s.Empty(payouts)
}

func (s *PayoutServiceSuite) TestCreatorThresholdOverridesPlatformMinimum() {
	settings, err := s.GetStores().PayoutRepo.GetSettings(s.GetContext(), "creator_1")
	s.NoError(err)
	settings.AutoWithdrawThreshold = decimal.NewFromInt(1000)
	s.NoError(s.GetStores().PayoutRepo.UpsertSettings(s.GetContext(), settings))

	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.Nil(p)
	s.Equal(0, s.momo.ProcessCount())
}

func (s *PayoutServiceSuite) TestMissingSettingsIsNoOp() {
	s.earnings.CreatorID = "creator_without_settings"

	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.Nil(p)
	s.Equal(0, s.momo.ProcessCount())
}

func (s *PayoutServiceSuite) TestDuplicatePeriodIsNoOp() {
	first, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.NotNil(first)

	second, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.Nil(second)

	// One provider call, one payout row, despite the re-run.
	s.Equal(1, s.momo.ProcessCount())
	payouts, err := s.GetStores().PayoutRepo.ListByCreator(s.GetContext(), "creator_1")
	s.NoError(err)
	s.Len(payouts, 1)
}

func (s *PayoutServiceSuite) TestProviderDeclineMarksFailed() {
	s.momo.ProcessErr = ierr.NewError("insufficient float").
		WithHint("The provider declined the transfer").
		Mark(ierr.ErrProviderFailure)

	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.NotNil(p)
	s.Equal(types.PayoutStatusFailed, p.Status)
	s.NotNil(p.FailureReason)
	s.Nil(p.ExternalTransactionID)
}

func (s *PayoutServiceSuite) TestProviderTimeoutLeavesPending() {
	s.momo.ProcessErr = ierr.NewError("request timed out").
		WithHint("The provider did not respond").
		Mark(ierr.ErrProviderTimeout)

	p, err := s.service.ProcessCreatorPayout(s.GetContext(), s.earnings)
	s.NoError(err)
	s.NotNil(p)
	// Unknown outcome: the money may have moved, so neither completed nor
	// failed is safe to record.
	s.Equal(types.PayoutStatusPending, p.Status)
	s.NotNil(p.FailureReason)

	stored, err := s.GetStores().PayoutRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatusPending, stored.Status)
}

func (s *PayoutServiceSuite) stalePayout(id string, status types.PayoutStatus, attempts int) *payout.Payout {
	p := &payout.Payout{
		ID:           id,
		CreatorID:    "creator_1",
		Amount:       decimal.NewFromInt(815),
		Currency:     "GHS",
		Status:       status,
		PeriodStart:  s.period.Start,
		PeriodEnd:    s.period.End,
		Method:       types.PayoutMethodMTNMoMo,
		AttemptCount: attempts,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	p.CreatedAt = s.GetNow().Add(-48 * time.Hour)
	s.NoError(s.GetStores().PayoutRepo.Create(s.GetContext(), p))
	return p
}

func (s *PayoutServiceSuite) TestRetryRecoversCompletedTransferWithoutResending() {
	p := s.stalePayout("payout_stale", types.PayoutStatusPending, 1)

	// The earlier attempt actually went through; the provider knows it.
	s.momo.VerifyOutcome = &provider.VerifyResult{
		Found:         true,
		Completed:     true,
		TransactionID: "ext_settled",
	}

	recovered, err := s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, recovered)
	// Verification alone resolved it; no second disbursement.
	s.Equal(0, s.momo.ProcessCount())

	stored, err := s.GetStores().PayoutRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatusCompleted, stored.Status)
	s.Equal("ext_settled", *stored.ExternalTransactionID)
}

func (s *PayoutServiceSuite) TestRetryResendsWhenProviderNeverSawTransfer() {
	p := s.stalePayout("payout_failed", types.PayoutStatusFailed, 1)

	recovered, err := s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, recovered)
	s.Equal(1, s.momo.ProcessCount())

	stored, err := s.GetStores().PayoutRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatusCompleted, stored.Status)
	s.Equal(2, stored.AttemptCount)
}

func (s *PayoutServiceSuite) TestRetrySkipsExhaustedPayouts() {
	s.stalePayout("payout_exhausted", types.PayoutStatusFailed, s.GetConfig().Scheduler.MaxPayoutRetries)

	recovered, err := s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, recovered)
	s.Equal(0, s.momo.ProcessCount())
}

func (s *PayoutServiceSuite) TestRetrySweepHandsOutEachPayoutOnce() {
	s.stalePayout("payout_contended", types.PayoutStatusPending, 1)

	s.momo.VerifyOutcome = &provider.VerifyResult{Found: true, Completed: false}

	// A manual trigger racing the weekly job: the first sweep claims the
	// payout, the second finds nothing left to examine.
	recovered, err := s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, recovered)

	recovered, err = s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, recovered)

	s.Len(s.momo.VerifyCalls, 1)
	s.Equal(0, s.momo.ProcessCount())
}

func (s *PayoutServiceSuite) TestRetryWaitsOnUnsettledTransfer() {
	p := s.stalePayout("payout_inflight", types.PayoutStatusPending, 1)

	s.momo.VerifyOutcome = &provider.VerifyResult{Found: true, Completed: false}

	recovered, err := s.service.RetryStalePayouts(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, recovered)
	s.Equal(0, s.momo.ProcessCount())

	stored, err := s.GetStores().PayoutRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PayoutStatusPending, stored.Status)
}
