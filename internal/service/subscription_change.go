package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/proration"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/subscription"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/tier"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/idempotency"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// ChangeOutcomeType classifies what RequestTierChange decided.
type ChangeOutcomeType string

const (
	// ChangeOutcomeRequiresPayment means the caller must collect the
	// prorated amount through the payment gateway and, on confirmed
	// success, call ApplyTierSwitch with the returned attempt token.
	ChangeOutcomeRequiresPayment ChangeOutcomeType = "requires_payment"
	// ChangeOutcomeApplied means the switch was committed immediately with
	// zero charge.
	ChangeOutcomeApplied ChangeOutcomeType = "applied"
	// ChangeOutcomeScheduledDowngrade means a pending change was recorded
	// for the next billing date.
	ChangeOutcomeScheduledDowngrade ChangeOutcomeType = "scheduled_downgrade"
)

// ChangeOutcome is the result of a tier-change request.
type ChangeOutcome struct {
	Type ChangeOutcomeType `json:"type"`
	// Amount to collect for requires_payment.
	Amount decimal.Decimal `json:"amount"`
	// AttemptToken must be echoed into ApplyTierSwitch; it keys the
	// idempotent application of this particular change attempt.
	AttemptToken string `json:"attempt_token,omitempty"`
	// EffectiveDate and CreditAmount describe a scheduled downgrade.
	EffectiveDate *time.Time      `json:"effective_date,omitempty"`
	CreditAmount  decimal.Decimal `json:"credit_amount"`

	Subscription *subscription.Subscription `json:"subscription,omitempty"`
}

// ApplyTierSwitchRequest commits a tier switch. Safe to submit twice with
// identical arguments: the (subscription, tier, attempt token) triple keys
// exactly one audit row and one final tier value.
type ApplyTierSwitchRequest struct {
	SubscriptionID  string
	NewTierID       string
	ProrationAmount decimal.Decimal
	AttemptToken    string
	ChangeType      types.SubscriptionChangeType
	BillingImpact   types.BillingImpact
	Reason          string
}

// SubscriptionChangeService is the state machine governing tier changes:
// upgrades are immediate and paid, downgrades are deferred and credited.
type SubscriptionChangeService interface {
	RequestTierChange(ctx context.Context, subscriptionID, newTierID string) (*ChangeOutcome, error)
	ApplyTierSwitch(ctx context.Context, req ApplyTierSwitchRequest) (*subscription.Subscription, error)
	ApplyDueChanges(ctx context.Context, now time.Time) (int, error)
	CancelPendingChange(ctx context.Context, changeID string) error
	CancelSubscription(ctx context.Context, subscriptionID, reason string) (*subscription.Subscription, error)
	ReactivateSubscription(ctx context.Context, subscriptionID string) (*subscription.Subscription, error)
}

type subscriptionChangeService struct {
	ServiceParams
}

// NewSubscriptionChangeService creates the tier change coordinator.
func NewSubscriptionChangeService(params ServiceParams) SubscriptionChangeService {
	return &subscriptionChangeService{ServiceParams: params}
}

func (s *subscriptionChangeService) RequestTierChange(ctx context.Context, subscriptionID, newTierID string) (*ChangeOutcome, error) {
	sub, err := s.SubRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.Status != types.SubscriptionStatusActive {
		return nil, ierr.NewError("subscription is not active").
			WithHint("Only active subscriptions can change tiers").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if newTierID == sub.TierID {
		return nil, s.noOpChange(sub.ID, newTierID)
	}

	currentTier, err := s.TierRepo.Get(ctx, sub.TierID)
	if err != nil {
		return nil, err
	}
	newTier, err := s.TierRepo.Get(ctx, newTierID)
	if err != nil {
		return nil, err
	}

	if err := s.validateTargetTier(sub, currentTier, newTier); err != nil {
		return nil, err
	}

	// Equal-price tiers are a no-op: charging zero and churning state helps
	// nobody.
	if newTier.Price.Equal(currentTier.Price) {
		return nil, s.noOpChange(sub.ID, newTierID)
	}

	now := time.Now().UTC()
	result, err := s.ProrationCalc.Calculate(proration.Params{
		CurrentPrice:  currentTier.Price,
		NewPrice:      newTier.Price,
		DaysRemaining: types.DaysUntil(now, sub.NextBillingDate),
		CycleDays:     s.Config.Billing.CycleDays,
	})
	if err != nil {
		return nil, err
	}

	if result.IsUpgrade {
		return s.handleUpgrade(ctx, sub, newTier, result)
	}
	return s.handleDowngrade(ctx, sub, currentTier, newTier, result)
}

func (s *subscriptionChangeService) handleUpgrade(ctx context.Context, sub *subscription.Subscription, newTier *tier.Tier, result *proration.Result) (*ChangeOutcome, error) {
	attemptToken := types.GenerateUUID()

	if result.Amount.IsPositive() {
		s.Logger.Infow("upgrade requires payment",
			"subscription_id", sub.ID,
			"new_tier_id", newTier.ID,
			"amount", result.Amount,
			"attempt_token", attemptToken,
		)
		return &ChangeOutcome{
			Type:         ChangeOutcomeRequiresPayment,
			Amount:       result.Amount,
			AttemptToken: attemptToken,
		}, nil
	}

	// Mid-cycle edge case: no days remaining, nothing to collect. Apply
	// immediately with zero charge.
	updated, err := s.ApplyTierSwitch(ctx, ApplyTierSwitchRequest{
		SubscriptionID:  sub.ID,
		NewTierID:       newTier.ID,
		ProrationAmount: decimal.Zero,
		AttemptToken:    attemptToken,
		ChangeType:      types.SubscriptionChangeTypeUpgrade,
		BillingImpact:   types.BillingImpactImmediate,
		Reason:          "upgrade with no prorated charge",
	})
	if err != nil {
		return nil, err
	}

	return &ChangeOutcome{
		Type:         ChangeOutcomeApplied,
		Amount:       decimal.Zero,
		Subscription: updated,
	}, nil
}

func (s *subscriptionChangeService) handleDowngrade(ctx context.Context, sub *subscription.Subscription, currentTier, newTier *tier.Tier, result *proration.Result) (*ChangeOutcome, error) {
	credit := result.Credit()
	effectiveDate := sub.NextBillingDate

	pending := &subscription.PendingChange{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PENDING_CHANGE),
		SubscriptionID:  sub.ID,
		FromTierID:      currentTier.ID,
		ToTierID:        newTier.ID,
		ChangeType:      types.SubscriptionChangeTypeDowngrade,
		ScheduledDate:   effectiveDate,
		ProrationAmount: credit,
		Status:          types.PendingChangeStatusPending,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}

	// CreatePending supersedes any earlier pending change for this
	// subscription; the fan keeps current-tier access until the scheduled
	// date.
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.SubRepo.CreatePending(ctx, pending)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("downgrade scheduled",
		"subscription_id", sub.ID,
		"from_tier_id", currentTier.ID,
		"to_tier_id", newTier.ID,
		"effective_date", effectiveDate,
		"credit", credit,
	)

	return &ChangeOutcome{
		Type:          ChangeOutcomeScheduledDowngrade,
		EffectiveDate: &effectiveDate,
		CreditAmount:  credit,
	}, nil
}

func (s *subscriptionChangeService) ApplyTierSwitch(ctx context.Context, req ApplyTierSwitchRequest) (*subscription.Subscription, error) {
	if req.AttemptToken == "" {
		return nil, ierr.NewError("attempt token is required").
			WithHint("ApplyTierSwitch needs the attempt token from the change request").
			Mark(ierr.ErrValidation)
	}

	key := s.IdempotencyGen.GenerateKey(idempotency.ScopeTierChange, map[string]interface{}{
		"subscription_id": req.SubscriptionID,
		"to_tier_id":      req.NewTierID,
		"attempt_token":   req.AttemptToken,
	})

	// Fast path: this exact attempt already committed.
	if existing, err := s.SubRepo.GetChangeByIdempotencyKey(ctx, key); err == nil && existing != nil {
		s.Logger.Infow("tier switch replayed, returning committed state",
			"subscription_id", req.SubscriptionID,
			"idempotency_key", key,
		)
		return s.SubRepo.Get(ctx, req.SubscriptionID)
	} else if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	var updated *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		if _, err := s.TierRepo.Get(ctx, req.NewTierID); err != nil {
			return err
		}

		changeType := req.ChangeType
		if changeType == "" {
			if req.ProrationAmount.IsNegative() {
				changeType = types.SubscriptionChangeTypeDowngrade
			} else {
				changeType = types.SubscriptionChangeTypeUpgrade
			}
		}
		billingImpact := req.BillingImpact
		if billingImpact == "" {
			billingImpact = types.BillingImpactImmediate
		}

		change := &subscription.Change{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_CHANGE),
			SubscriptionID:  sub.ID,
			FromTierID:      types.ToNillableString(sub.TierID),
			ToTierID:        req.NewTierID,
			ChangeType:      changeType,
			ProrationAmount: req.ProrationAmount,
			EffectiveDate:   time.Now().UTC(),
			BillingImpact:   billingImpact,
			Reason:          req.Reason,
			IdempotencyKey:  key,
			BaseModel:       types.GetDefaultBaseModel(ctx),
		}

		// The unique idempotency key makes this insert the linearization
		// point: a concurrent replay loses here and we fall back to the
		// committed state.
		if err := s.SubRepo.CreateChange(ctx, change); err != nil {
			if ierr.IsAlreadyExists(err) {
				return nil
			}
			return err
		}

		oldTier := sub.TierID
		sub.PreviousTierID = types.ToNillableString(oldTier)
		sub.TierID = req.NewTierID
		if req.ProrationAmount.IsNegative() {
			sub.ProrationCredit = sub.ProrationCredit.Add(req.ProrationAmount.Neg())
		}
		sub.Touch(ctx)

		if err := sub.Validate(); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		s.Logger.Infow("tier switch applied",
			"subscription_id", sub.ID,
			"from_tier_id", oldTier,
			"to_tier_id", req.NewTierID,
			"proration_amount", req.ProrationAmount,
			"change_type", changeType,
		)

		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated == nil {
		// Lost the idempotency race; the other writer committed.
		return s.SubRepo.Get(ctx, req.SubscriptionID)
	}
	return updated, nil
}

// claimRecoveryWindow is how long a claimed change may sit in processing
// before a later sweep treats its claimer as dead and claims it again.
const claimRecoveryWindow = 15 * time.Minute

// ApplyDueChanges applies every pending change whose scheduled date has
// arrived. Safe to run concurrently with itself: due rows are claimed
// (flipped to processing) before any switch is applied. Claims abandoned by
// a crashed sweep are picked up again once they age past the recovery window.
func (s *subscriptionChangeService) ApplyDueChanges(ctx context.Context, now time.Time) (int, error) {
	const batchSize = 100

	reclaimBefore := now.Add(-claimRecoveryWindow)
	applied := 0
	for {
		var claimed []*subscription.PendingChange
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			var err error
			claimed, err = s.SubRepo.ClaimDuePending(ctx, now, reclaimBefore, batchSize)
			return err
		})
		if err != nil {
			return applied, err
		}
		if len(claimed) == 0 {
			return applied, nil
		}

		for _, pending := range claimed {
			if err := s.applyPendingChange(ctx, pending); err != nil {
				s.Logger.Errorw("failed to apply pending change",
					"pending_change_id", pending.ID,
					"subscription_id", pending.SubscriptionID,
					"error", err,
				)
				s.releasePendingChange(ctx, pending)
				continue
			}
			applied++
		}

		if len(claimed) < batchSize {
			return applied, nil
		}
	}
}

func (s *subscriptionChangeService) applyPendingChange(ctx context.Context, pending *subscription.PendingChange) error {
	// The pending change id doubles as the attempt token, so a re-applied
	// claim after a crash replays instead of double-crediting.
	_, err := s.ApplyTierSwitch(ctx, ApplyTierSwitchRequest{
		SubscriptionID:  pending.SubscriptionID,
		NewTierID:       pending.ToTierID,
		ProrationAmount: pending.ProrationAmount.Neg(),
		AttemptToken:    pending.ID,
		ChangeType:      pending.ChangeType,
		BillingImpact:   types.BillingImpactNextCycle,
		Reason:          "scheduled downgrade applied",
	})
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		pending.Status = types.PendingChangeStatusApplied
		pending.Touch(ctx)
		return s.SubRepo.UpdatePending(ctx, pending)
	})
}

// releasePendingChange puts a claimed change back for the next sweep.
func (s *subscriptionChangeService) releasePendingChange(ctx context.Context, pending *subscription.PendingChange) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		pending.Status = types.PendingChangeStatusPending
		pending.Touch(ctx)
		return s.SubRepo.UpdatePending(ctx, pending)
	})
	if err != nil {
		s.Logger.Errorw("failed to release claimed pending change",
			"pending_change_id", pending.ID,
			"error", err,
		)
	}
}

func (s *subscriptionChangeService) CancelPendingChange(ctx context.Context, changeID string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		pending, err := s.SubRepo.GetPending(ctx, changeID)
		if err != nil {
			return err
		}

		if pending.Status != types.PendingChangeStatusPending {
			return ierr.NewError("pending change already processed").
				WithHint("Only pending changes can be cancelled").
				WithReportableDetails(map[string]any{
					"pending_change_id": pending.ID,
					"status":            pending.Status,
				}).
				Mark(ierr.ErrAlreadyProcessed)
		}

		pending.Status = types.PendingChangeStatusCancelled
		pending.Touch(ctx)
		return s.SubRepo.UpdatePending(ctx, pending)
	})
}

func (s *subscriptionChangeService) CancelSubscription(ctx context.Context, subscriptionID, reason string) (*subscription.Subscription, error) {
	var cancelled *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetForUpdate(ctx, subscriptionID)
		if err != nil {
			return err
		}

		if sub.Status != types.SubscriptionStatusActive {
			return ierr.NewError("subscription is not active").
				WithHint("Only active subscriptions can be cancelled").
				WithReportableDetails(map[string]any{
					"subscription_id": sub.ID,
					"status":          sub.Status,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		// A live deferred downgrade dies with the subscription.
		if pending, err := s.SubRepo.GetPendingBySubscription(ctx, sub.ID); err == nil && pending != nil {
			pending.Status = types.PendingChangeStatusCancelled
			pending.Touch(ctx)
			if err := s.SubRepo.UpdatePending(ctx, pending); err != nil {
				return err
			}
		} else if err != nil && !ierr.IsNotFound(err) {
			return err
		}

		change := &subscription.Change{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_CHANGE),
			SubscriptionID: sub.ID,
			FromTierID:     types.ToNillableString(sub.TierID),
			ToTierID:       sub.TierID,
			ChangeType:     types.SubscriptionChangeTypeCancel,
			EffectiveDate:  time.Now().UTC(),
			BillingImpact:  types.BillingImpactImmediate,
			Reason:         reason,
			IdempotencyKey: s.IdempotencyGen.GenerateKey(idempotency.ScopeTierChange, map[string]interface{}{
				"subscription_id": sub.ID,
				"to_tier_id":      sub.TierID,
				"attempt_token":   types.GenerateUUID(),
			}),
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
		if err := s.SubRepo.CreateChange(ctx, change); err != nil {
			return err
		}

		sub.Status = types.SubscriptionStatusCancelled
		sub.AutoRenew = false
		sub.Touch(ctx)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		cancelled = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription cancelled",
		"subscription_id", cancelled.ID,
		"reason", reason,
	)
	return cancelled, nil
}

func (s *subscriptionChangeService) ReactivateSubscription(ctx context.Context, subscriptionID string) (*subscription.Subscription, error) {
	var reactivated *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetForUpdate(ctx, subscriptionID)
		if err != nil {
			return err
		}

		if sub.Status != types.SubscriptionStatusCancelled {
			return ierr.NewError("subscription is not cancelled").
				WithHint("Only cancelled subscriptions can be reactivated").
				WithReportableDetails(map[string]any{
					"subscription_id": sub.ID,
					"status":          sub.Status,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		now := time.Now().UTC()
		change := &subscription.Change{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_CHANGE),
			SubscriptionID: sub.ID,
			FromTierID:     types.ToNillableString(sub.TierID),
			ToTierID:       sub.TierID,
			ChangeType:     types.SubscriptionChangeTypeReactivate,
			EffectiveDate:  now,
			BillingImpact:  types.BillingImpactImmediate,
			Reason:         "subscription reactivated",
			IdempotencyKey: s.IdempotencyGen.GenerateKey(idempotency.ScopeTierChange, map[string]interface{}{
				"subscription_id": sub.ID,
				"to_tier_id":      sub.TierID,
				"attempt_token":   types.GenerateUUID(),
			}),
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
		if err := s.SubRepo.CreateChange(ctx, change); err != nil {
			return err
		}

		// A fresh active state, not a resurrection: billing restarts from
		// now.
		sub.Status = types.SubscriptionStatusActive
		sub.AutoRenew = true
		sub.NextBillingDate = now.AddDate(0, 0, s.Config.Billing.CycleDays)
		sub.Touch(ctx)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		reactivated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reactivated, nil
}

func (s *subscriptionChangeService) validateTargetTier(sub *subscription.Subscription, currentTier, newTier *tier.Tier) error {
	if newTier.CreatorID != sub.CreatorID {
		return ierr.NewError("tier belongs to another creator").
			WithHint("A subscription can only switch between its creator's tiers").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"tier_creator_id": newTier.CreatorID,
				"sub_creator_id":  sub.CreatorID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !newTier.Active {
		return ierr.NewError("tier is not active").
			WithHint("The target tier is no longer offered").
			WithReportableDetails(map[string]any{
				"tier_id": newTier.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if newTier.Currency != currentTier.Currency {
		return ierr.NewError("tier currency mismatch").
			WithHint("Cross-currency tier changes are not supported").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (s *subscriptionChangeService) noOpChange(subscriptionID, tierID string) error {
	return ierr.NewError("no-op tier change").
		WithHint("The subscription is already on this tier at this price").
		WithReportableDetails(map[string]any{
			"subscription_id": subscriptionID,
			"tier_id":         tierID,
		}).
		Mark(ierr.ErrInvalidOperation)
}
