package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/proration"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/idempotency"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/testutil"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type SubscriptionChangeServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  SubscriptionChangeService
	testData struct {
		basicTier   *tier.Tier
		premiumTier *tier.Tier
		sub         *subscription.Subscription
	}
}

func TestSubscriptionChangeService(t *testing.T) {
	suite.Run(t, new(SubscriptionChangeServiceSuite))
}

func (s *SubscriptionChangeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *SubscriptionChangeServiceSuite) setupService() {
	s.service = NewSubscriptionChangeService(ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		SubRepo:        s.GetStores().SubscriptionRepo,
		TierRepo:       s.GetStores().TierRepo,
		PaymentRepo:    s.GetStores().PaymentRepo,
		PayoutRepo:     s.GetStores().PayoutRepo,
		ProrationCalc:  proration.NewCalculator(),
		IdempotencyGen: idempotency.NewGenerator(),
	})
}

func (s *SubscriptionChangeServiceSuite) setupTestData() {
	s.testData.basicTier = &tier.Tier{
		ID:        "tier_basic",
		CreatorID: "creator_1",
		Name:      "Basic",
		Price:     decimal.NewFromInt(15),
		Currency:  "GHS",
		Active:    true,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), s.testData.basicTier))

	s.testData.premiumTier = &tier.Tier{
		ID:        "tier_premium",
		CreatorID: "creator_1",
		Name:      "Premium",
		Price:     decimal.NewFromInt(25),
		Currency:  "GHS",
		Active:    true,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), s.testData.premiumTier))

	// The extra hour keeps the whole-day count stable while the test runs.
	nextBilling := s.GetNow().Add(10*24*time.Hour + time.Hour)
	s.testData.sub = &subscription.Subscription{
		ID:              "sub_1",
		FanID:           "fan_1",
		CreatorID:       "creator_1",
		TierID:          s.testData.basicTier.ID,
		Status:          types.SubscriptionStatusActive,
		StartedAt:       s.GetNow().AddDate(0, -2, 0),
		NextBillingDate: nextBilling,
		AutoRenew:       true,
		ProrationCredit: decimal.Zero,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), s.testData.sub))
}

func (s *SubscriptionChangeServiceSuite) TestUpgradeRequiresProratedPayment() {
	outcome, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_premium")
	s.NoError(err)
	s.Equal(ChangeOutcomeRequiresPayment, outcome.Type)
	s.NotEmpty(outcome.AttemptToken)
	// (25 - 15) / 30 * 10 days remaining
	s.True(outcome.Amount.Equal(decimal.NewFromFloat(3.33)),
		"expected 3.33, got %s", outcome.Amount)

	// Nothing committed until the payment confirms.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("tier_basic", sub.TierID)
}

func (s *SubscriptionChangeServiceSuite) TestApplyTierSwitchCommitsUpgrade() {
	outcome, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_premium")
	s.NoError(err)

	updated, err := s.service.ApplyTierSwitch(s.GetContext(), ApplyTierSwitchRequest{
		SubscriptionID:  "sub_1",
		NewTierID:       "tier_premium",
		ProrationAmount: outcome.Amount,
		AttemptToken:    outcome.AttemptToken,
		ChangeType:      types.SubscriptionChangeTypeUpgrade,
		BillingImpact:   types.BillingImpactImmediate,
		Reason:          "fan upgraded",
	})
	s.NoError(err)
	s.Equal("tier_premium", updated.TierID)
	s.NotNil(updated.PreviousTierID)
	s.Equal("tier_basic", *updated.PreviousTierID)
	s.True(updated.ProrationCredit.IsZero())

	changes, err := s.GetStores().SubscriptionRepo.ListChanges(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Len(changes, 1)
	s.Equal(types.SubscriptionChangeTypeUpgrade, changes[0].ChangeType)
	s.True(changes[0].ProrationAmount.Equal(outcome.Amount))
}

func (s *SubscriptionChangeServiceSuite) TestApplyTierSwitchDefaultsAuditFields() {
	outcome, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_premium")
	s.NoError(err)

	// Callers that omit the change type and billing impact still get a
	// fully populated audit row.
	_, err = s.service.ApplyTierSwitch(s.GetContext(), ApplyTierSwitchRequest{
		SubscriptionID:  "sub_1",
		NewTierID:       "tier_premium",
		ProrationAmount: outcome.Amount,
		AttemptToken:    outcome.AttemptToken,
		Reason:          "tier switch confirmed",
	})
	s.NoError(err)

	changes, err := s.GetStores().SubscriptionRepo.ListChanges(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Len(changes, 1)
	s.Equal(types.SubscriptionChangeTypeUpgrade, changes[0].ChangeType)
	s.Equal(types.BillingImpactImmediate, changes[0].BillingImpact)
}

func (s *SubscriptionChangeServiceSuite) TestApplyTierSwitchIsIdempotent() {
	req := ApplyTierSwitchRequest{
		SubscriptionID:  "sub_1",
		NewTierID:       "tier_premium",
		ProrationAmount: decimal.NewFromFloat(3.33),
		AttemptToken:    "attempt_once",
		ChangeType:      types.SubscriptionChangeTypeUpgrade,
		BillingImpact:   types.BillingImpactImmediate,
		Reason:          "fan upgraded",
	}

	first, err := s.service.ApplyTierSwitch(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.ApplyTierSwitch(s.GetContext(), req)
	s.NoError(err)

	s.Equal(first.TierID, second.TierID)
	s.Equal("tier_premium", second.TierID)

	// Exactly one audit row despite the replay.
	changes, err := s.GetStores().SubscriptionRepo.ListChanges(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Len(changes, 1)
}

func (s *SubscriptionChangeServiceSuite) TestApplyTierSwitchRequiresAttemptToken() {
	_, err := s.service.ApplyTierSwitch(s.GetContext(), ApplyTierSwitchRequest{
		SubscriptionID: "sub_1",
		NewTierID:      "tier_premium",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionChangeServiceSuite) TestDowngradeIsScheduledNotImmediate() {
	// Move the fan up first so a downgrade exists.
	s.testData.sub.TierID = "tier_premium"
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

	outcome, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_basic")
	s.NoError(err)
	s.Equal(ChangeOutcomeScheduledDowngrade, outcome.Type)
	s.NotNil(outcome.EffectiveDate)
	s.True(outcome.EffectiveDate.Equal(s.testData.sub.NextBillingDate))
	s.True(outcome.CreditAmount.Equal(decimal.NewFromFloat(3.33)),
		"expected credit 3.33, got %s", outcome.CreditAmount)

	// Access keeps the higher tier until the scheduled date.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("tier_premium", sub.TierID)

	pending, err := s.GetStores().SubscriptionRepo.GetPendingBySubscription(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.PendingChangeStatusPending, pending.Status)
	s.Equal("tier_basic", pending.ToTierID)
}

func (s *SubscriptionChangeServiceSuite) TestNewDowngradeSupersedesPending() {
	midTier := &tier.Tier{
		ID:        "tier_mid",
		CreatorID: "creator_1",
		Name:      "Mid",
		Price:     decimal.NewFromInt(20),
		Currency:  "GHS",
		Active:    true,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), midTier))

	s.testData.sub.TierID = "tier_premium"
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

	_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_basic")
	s.NoError(err)
	first, err := s.GetStores().SubscriptionRepo.GetPendingBySubscription(s.GetContext(), "sub_1")
	s.NoError(err)

	_, err = s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_mid")
	s.NoError(err)

	// Only the newest intent survives.
	live, err := s.GetStores().SubscriptionRepo.GetPendingBySubscription(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("tier_mid", live.ToTierID)
	s.NotEqual(first.ID, live.ID)

	superseded, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), first.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusCancelled, superseded.Status)
}

func (s *SubscriptionChangeServiceSuite) TestApplyDueChangesAppliesScheduledDowngrade() {
	s.testData.sub.TierID = "tier_premium"
	s.testData.sub.NextBillingDate = s.GetNow().Add(-time.Hour)
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

	credit := decimal.NewFromFloat(3.33)
	pending := &subscription.PendingChange{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_CHANGE),
		SubscriptionID:  "sub_1",
		FromTierID:      "tier_premium",
		ToTierID:        "tier_basic",
		ChangeType:      types.SubscriptionChangeTypeDowngrade,
		ScheduledDate:   s.testData.sub.NextBillingDate,
		ProrationAmount: credit,
		Status:          types.PendingChangeStatusPending,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.CreatePending(s.GetContext(), pending))

	applied, err := s.service.ApplyDueChanges(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, applied)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("tier_basic", sub.TierID)
	s.True(sub.ProrationCredit.Equal(credit))

	done, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusApplied, done.Status)

	// A second sweep finds nothing due.
	applied, err = s.service.ApplyDueChanges(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, applied)
	sub, err = s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.True(sub.ProrationCredit.Equal(credit))
}

func (s *SubscriptionChangeServiceSuite) TestApplyDueChangesRecoversAbandonedClaim() {
	s.testData.sub.TierID = "tier_premium"
	s.testData.sub.NextBillingDate = s.GetNow().Add(-24 * time.Hour)
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

	// A sweep claimed this change a day ago and died before applying it.
	credit := decimal.NewFromFloat(3.33)
	pending := &subscription.PendingChange{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_CHANGE),
		SubscriptionID:  "sub_1",
		FromTierID:      "tier_premium",
		ToTierID:        "tier_basic",
		ChangeType:      types.SubscriptionChangeTypeDowngrade,
		ScheduledDate:   s.testData.sub.NextBillingDate,
		ProrationAmount: credit,
		Status:          types.PendingChangeStatusProcessing,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	pending.UpdatedAt = s.GetNow().Add(-24 * time.Hour)
	s.NoError(s.GetStores().SubscriptionRepo.CreatePending(s.GetContext(), pending))

	applied, err := s.service.ApplyDueChanges(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(1, applied)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("tier_basic", sub.TierID)
	s.True(sub.ProrationCredit.Equal(credit))

	done, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusApplied, done.Status)
}

func (s *SubscriptionChangeServiceSuite) TestApplyDueChangesLeavesFreshClaimsAlone() {
	pending := &subscription.PendingChange{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_CHANGE),
		SubscriptionID:  "sub_1",
		FromTierID:      "tier_premium",
		ToTierID:        "tier_basic",
		ChangeType:      types.SubscriptionChangeTypeDowngrade,
		ScheduledDate:   s.GetNow().Add(-time.Hour),
		ProrationAmount: decimal.NewFromFloat(3.33),
		Status:          types.PendingChangeStatusProcessing,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.CreatePending(s.GetContext(), pending))

	// The claim is recent; another sweep may still be working on it.
	applied, err := s.service.ApplyDueChanges(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, applied)

	claimed, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusProcessing, claimed.Status)
}

func (s *SubscriptionChangeServiceSuite) TestApplyDueChangesSkipsFutureChanges() {
	pending := &subscription.PendingChange{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_CHANGE),
		SubscriptionID:  "sub_1",
		FromTierID:      "tier_premium",
		ToTierID:        "tier_basic",
		ChangeType:      types.SubscriptionChangeTypeDowngrade,
		ScheduledDate:   s.GetNow().Add(48 * time.Hour),
		ProrationAmount: decimal.NewFromFloat(3.33),
		Status:          types.PendingChangeStatusPending,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.CreatePending(s.GetContext(), pending))

	applied, err := s.service.ApplyDueChanges(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(0, applied)
}

func (s *SubscriptionChangeServiceSuite) TestRequestTierChangeRejections() {
	s.Run("same tier is a no-op", func() {
		_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_basic")
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("equal price tier is a no-op", func() {
		samePrice := &tier.Tier{
			ID:        "tier_same_price",
			CreatorID: "creator_1",
			Name:      "Basic Annual Art",
			Price:     decimal.NewFromInt(15),
			Currency:  "GHS",
			Active:    true,
			BaseModel: types.GetDefaultBaseModel(s.GetContext()),
		}
		s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), samePrice))

		_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_same_price")
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("another creator's tier", func() {
		foreign := &tier.Tier{
			ID:        "tier_foreign",
			CreatorID: "creator_2",
			Name:      "Other",
			Price:     decimal.NewFromInt(30),
			Currency:  "GHS",
			Active:    true,
			BaseModel: types.GetDefaultBaseModel(s.GetContext()),
		}
		s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), foreign))

		_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_foreign")
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("inactive tier", func() {
		retired := &tier.Tier{
			ID:        "tier_retired",
			CreatorID: "creator_1",
			Name:      "Retired",
			Price:     decimal.NewFromInt(40),
			Currency:  "GHS",
			Active:    false,
			BaseModel: types.GetDefaultBaseModel(s.GetContext()),
		}
		s.NoError(s.GetStores().TierRepo.Create(s.GetContext(), retired))

		_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_retired")
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})

	s.Run("cancelled subscription", func() {
		s.testData.sub.Status = types.SubscriptionStatusCancelled
		s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

		_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_premium")
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))

		s.testData.sub.Status = types.SubscriptionStatusActive
		s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))
	})
}

func (s *SubscriptionChangeServiceSuite) TestCancelPendingChange() {
	s.testData.sub.TierID = "tier_premium"
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))

	_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_basic")
	s.NoError(err)
	pending, err := s.GetStores().SubscriptionRepo.GetPendingBySubscription(s.GetContext(), "sub_1")
	s.NoError(err)

	s.NoError(s.service.CancelPendingChange(s.GetContext(), pending.ID))

	cancelled, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusCancelled, cancelled.Status)

	// Cancelling again is rejected, not silently repeated.
	err = s.service.CancelPendingChange(s.GetContext(), pending.ID)
	s.Error(err)
	s.True(ierr.IsAlreadyProcessed(err))

	// The scheduled sweep must never pick it up.
	applied, err := s.service.ApplyDueChanges(s.GetContext(), s.GetNow().Add(30*24*time.Hour))
	s.NoError(err)
	s.Equal(0, applied)
}

func (s *SubscriptionChangeServiceSuite) TestCancelSubscription() {
	s.testData.sub.TierID = "tier_premium"
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), s.testData.sub))
	_, err := s.service.RequestTierChange(s.GetContext(), "sub_1", "tier_basic")
	s.NoError(err)
	pending, err := s.GetStores().SubscriptionRepo.GetPendingBySubscription(s.GetContext(), "sub_1")
	s.NoError(err)

	cancelled, err := s.service.CancelSubscription(s.GetContext(), "sub_1", "fan requested")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, cancelled.Status)
	s.False(cancelled.AutoRenew)

	// The deferred downgrade dies with the subscription.
	deadPending, err := s.GetStores().SubscriptionRepo.GetPending(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.PendingChangeStatusCancelled, deadPending.Status)

	_, err = s.service.CancelSubscription(s.GetContext(), "sub_1", "again")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionChangeServiceSuite) TestReactivateSubscription() {
	_, err := s.service.CancelSubscription(s.GetContext(), "sub_1", "fan requested")
	s.NoError(err)

	before := time.Now().UTC()
	reactivated, err := s.service.ReactivateSubscription(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, reactivated.Status)
	s.True(reactivated.AutoRenew)
	// Billing restarts a full cycle from reactivation.
	s.True(reactivated.NextBillingDate.After(before.AddDate(0, 0, 29)))

	_, err = s.service.ReactivateSubscription(s.GetContext(), "sub_1")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
