package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/provider"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// PayoutService orchestrates provider selection, minimum-threshold
// enforcement and the payout record lifecycle. Money movement itself is
// delegated to the Provider registry.
type PayoutService interface {
	ProcessCreatorPayout(ctx context.Context, earnings *Earnings) (*payout.Payout, error)
	RetryStalePayouts(ctx context.Context, now time.Time) (int, error)
	ListPayouts(ctx context.Context, creatorID string) ([]*payout.Payout, error)
}

type payoutService struct {
	ServiceParams
}

// NewPayoutService creates the payout distributor.
func NewPayoutService(params ServiceParams) PayoutService {
	return &payoutService{ServiceParams: params}
}

// ProcessCreatorPayout settles one creator's earnings for a period. A nil
// payout with a nil error means the run was a deliberate no-op (below
// threshold, no settings, or already settled).
func (s *payoutService) ProcessCreatorPayout(ctx context.Context, earnings *Earnings) (*payout.Payout, error) {
	threshold := s.Config.Billing.MinimumPayout

	settings, err := s.PayoutRepo.GetSettings(ctx, earnings.CreatorID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("skipping payout, creator has no payout settings",
				"creator_id", earnings.CreatorID,
			)
			return nil, nil
		}
		return nil, err
	}

	if settings.AutoWithdrawThreshold.GreaterThan(threshold) {
		threshold = settings.AutoWithdrawThreshold
	}

	if earnings.Net.LessThan(threshold) {
		s.Logger.Infow("skipping payout, net earnings below minimum",
			"creator_id", earnings.CreatorID,
			"net", earnings.Net,
			"minimum", threshold,
		)
		return nil, nil
	}

	destination, err := settings.Destination()
	if err != nil {
		return nil, err
	}

	// Durable intent record, created before any provider call. The atomic
	// check-then-insert (overlap query + unique constraint) is what makes a
	// double-triggered run for the same period a no-op instead of a double
	// payment.
	p := &payout.Payout{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREATOR_PAYOUT),
		CreatorID:   earnings.CreatorID,
		Amount:      earnings.Net,
		Currency:    earnings.Currency,
		Status:      types.PayoutStatusPending,
		PeriodStart: earnings.Period.Start,
		PeriodEnd:   earnings.Period.End,
		Method:      settings.Method,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.PayoutRepo.Create(ctx, p)
	})
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("skipping payout, period already settled",
				"creator_id", earnings.CreatorID,
				"period_start", earnings.Period.Start,
				"period_end", earnings.Period.End,
			)
			return nil, nil
		}
		return nil, err
	}

	prov, err := s.Providers.Resolve(settings.Method)
	if err != nil {
		s.finalizeFailure(ctx, p, err)
		return p, err
	}

	// The provider call is blocking, latency-bearing I/O; it runs with no
	// row lock held. The payout row is already durable, so whatever happens
	// next is recoverable.
	s.dispatch(ctx, p, prov, destination)
	return p, nil
}

// dispatch performs one provider attempt and finalizes the payout row.
// On timeout the payout stays pending: the outcome is unknown and only the
// retry sweep may touch it again after verification.
func (s *payoutService) dispatch(ctx context.Context, p *payout.Payout, prov provider.Provider, destination payout.Destination) {
	now := time.Now().UTC()
	p.AttemptCount++
	p.LastAttemptAt = &now

	result, err := prov.Process(ctx, provider.ProcessRequest{
		Reference:   p.ID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Destination: destination,
	})

	switch {
	case err == nil:
		p.Status = types.PayoutStatusCompleted
		p.ExternalTransactionID = types.ToNillableString(result.TransactionID)
		processedAt := time.Now().UTC()
		p.ProcessedAt = &processedAt
		p.FailureReason = nil
		s.Logger.Infow("payout completed",
			"payout_id", p.ID,
			"creator_id", p.CreatorID,
			"amount", p.Amount,
			"method", p.Method,
			"external_transaction_id", result.TransactionID,
		)
	case ierr.IsProviderTimeout(err):
		// Unknown outcome: never mark completed, never mark failed. The
		// sweep verifies with the provider before any reattempt.
		p.FailureReason = types.ToNillableString(err.Error())
		s.Logger.Warnw("payout outcome unknown, leaving pending for retry sweep",
			"payout_id", p.ID,
			"creator_id", p.CreatorID,
			"error", err,
		)
	default:
		p.Status = types.PayoutStatusFailed
		p.FailureReason = types.ToNillableString(err.Error())
		s.Logger.Errorw("payout failed",
			"payout_id", p.ID,
			"creator_id", p.CreatorID,
			"error", err,
		)
	}

	s.persistFinalization(ctx, p)
}

func (s *payoutService) finalizeFailure(ctx context.Context, p *payout.Payout, cause error) {
	p.Status = types.PayoutStatusFailed
	p.FailureReason = types.ToNillableString(cause.Error())
	s.persistFinalization(ctx, p)
}

func (s *payoutService) persistFinalization(ctx context.Context, p *payout.Payout) {
	p.Touch(ctx)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.PayoutRepo.Update(ctx, p)
	})
	if err != nil {
		// The money may have moved but the terminal state did not stick.
		// The row is still pending, so the retry sweep will re-derive the
		// external transaction id from the provider rather than lose it.
		s.Logger.Errorw("failed to persist payout finalization",
			"payout_id", p.ID,
			"status", p.Status,
			"error", err,
		)
	}
}

// RetryStalePayouts re-examines failed payouts and pending payouts older
// than the grace window, verifying with the provider before ever re-sending
// money. Returns the number of payouts that reached completed. Stale rows
// are claimed (attempt-stamped) before any provider call, so a manual
// trigger racing the weekly job cannot double-dispatch.
func (s *payoutService) RetryStalePayouts(ctx context.Context, now time.Time) (int, error) {
	const batchSize = 50

	cutoff := now.Add(-s.Config.Scheduler.PayoutGraceWindow)
	stale, err := s.PayoutRepo.ClaimStale(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, p := range stale {
		if p.AttemptCount >= s.Config.Scheduler.MaxPayoutRetries {
			s.Logger.Warnw("payout exhausted retries, needs operator review",
				"payout_id", p.ID,
				"creator_id", p.CreatorID,
				"attempt_count", p.AttemptCount,
			)
			continue
		}

		if err := s.retryOne(ctx, p); err != nil {
			s.Logger.Errorw("payout retry failed",
				"payout_id", p.ID,
				"error", err,
			)
			continue
		}
		if p.Status == types.PayoutStatusCompleted {
			recovered++
		}
	}
	return recovered, nil
}

func (s *payoutService) retryOne(ctx context.Context, p *payout.Payout) error {
	prov, err := s.Providers.Resolve(p.Method)
	if err != nil {
		return err
	}

	// First re-derive the outcome of any earlier attempt. Verification is
	// read-only, so transient failures are retried with backoff.
	var verified *provider.VerifyResult
	verifyOp := func() error {
		var verr error
		verified, verr = prov.Verify(ctx, p.ID)
		return verr
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(verifyOp, backoff.WithContext(bo, ctx)); err != nil {
		// Provider unreachable; leave the payout for the next sweep.
		return err
	}

	if verified.Found && verified.Completed {
		p.Status = types.PayoutStatusCompleted
		p.ExternalTransactionID = types.ToNillableString(verified.TransactionID)
		processedAt := time.Now().UTC()
		p.ProcessedAt = &processedAt
		p.FailureReason = nil
		s.persistFinalization(ctx, p)
		s.Logger.Infow("payout recovered via provider verification",
			"payout_id", p.ID,
			"external_transaction_id", verified.TransactionID,
		)
		return nil
	}

	if verified.Found && !verified.Completed && p.Status == types.PayoutStatusPending {
		// The provider has the transfer but it has not settled; keep
		// waiting rather than risking a duplicate.
		return nil
	}

	settings, err := s.PayoutRepo.GetSettings(ctx, p.CreatorID)
	if err != nil {
		return err
	}
	destination, err := settings.Destination()
	if err != nil {
		return err
	}

	// The provider never saw (or rejected) the transfer; safe to re-send
	// under the same reference.
	p.Status = types.PayoutStatusPending
	s.dispatch(ctx, p, prov, destination)
	return nil
}

func (s *payoutService) ListPayouts(ctx context.Context, creatorID string) ([]*payout.Payout, error) {
	return s.PayoutRepo.ListByCreator(ctx, creatorID)
}
