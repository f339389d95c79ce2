// Package scheduler runs the billing platform's recurring jobs on a single
// gocron v2 scheduler: the due-change sweep, the monthly payout run and the
// weekly payout retry sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/config"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// SubscriptionLister is the slice of the subscription repository the payout
// run needs to enumerate creators.
type SubscriptionLister interface {
	ListCreatorIDs(ctx context.Context) ([]string, error)
}

// SchedulerManager owns the gocron scheduler and all registered jobs.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	cfg       *config.Configuration
	logger    *logger.Logger

	changeService service.SubscriptionChangeService
	earnings      service.EarningsService
	payouts       service.PayoutService
	subs          SubscriptionLister

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates the manager. Jobs run in UTC; billing periods
// are calendar months in UTC.
func NewSchedulerManager(
	cfg *config.Configuration,
	log *logger.Logger,
	changeService service.SubscriptionChangeService,
	earnings service.EarningsService,
	payouts service.PayoutService,
	subs SubscriptionLister,
) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler:     scheduler,
		cfg:           cfg,
		logger:        log,
		changeService: changeService,
		earnings:      earnings,
		payouts:       payouts,
		subs:          subs,
	}, nil
}

// RegisterJobs wires all recurring jobs. Call once before Start.
func (m *SchedulerManager) RegisterJobs() error {
	if err := m.registerDueChangeSweep(); err != nil {
		return err
	}
	if err := m.registerMonthlyPayoutRun(); err != nil {
		return err
	}
	return m.registerPayoutRetrySweep()
}

// registerDueChangeSweep applies scheduled downgrades as their billing dates
// arrive. Singleton mode keeps overlapping runs from stacking up; the claim
// query makes concurrent instances safe anyway.
func (m *SchedulerManager) registerDueChangeSweep() error {
	interval := m.cfg.Scheduler.DueChangeInterval

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runDueChangeSweep(ctx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("subscription", "due-changes"),
		gocron.WithName("due-change-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered due-change sweep", "interval", interval)
	return nil
}

func (m *SchedulerManager) runDueChangeSweep(ctx context.Context) {
	start := time.Now().UTC()
	applied, err := m.changeService.ApplyDueChanges(ctx, start)
	if err != nil {
		m.logger.Errorw("due-change sweep failed",
			"error", err,
			"applied", applied,
			"duration", time.Since(start),
		)
		return
	}
	if applied > 0 {
		m.logger.Infow("due changes applied",
			"count", applied,
			"duration", time.Since(start),
		)
	}
}

// registerMonthlyPayoutRun settles the previous calendar month for every
// creator on the 1st at 02:00 UTC.
func (m *SchedulerManager) registerMonthlyPayoutRun() error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("0 2 1 * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runMonthlyPayouts(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("payout", "monthly"),
		gocron.WithName("monthly-payout-run"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered monthly payout run", "schedule", "02:00 UTC on the 1st")
	return nil
}

// RunMonthlyPayouts settles the previous calendar month relative to now.
// Exposed for the cron HTTP trigger; safe to re-run, settled creators are
// skipped by the payout period guard.
func (m *SchedulerManager) RunMonthlyPayouts(ctx context.Context, now time.Time) (int, error) {
	period := types.PreviousMonthlyPeriod(now)

	creatorIDs, err := m.subs.ListCreatorIDs(ctx)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, creatorID := range creatorIDs {
		earnings, err := m.earnings.CalculateEarnings(ctx, creatorID, period)
		if err != nil {
			m.logger.Errorw("failed to calculate creator earnings",
				"creator_id", creatorID,
				"error", err,
			)
			continue
		}

		p, err := m.payouts.ProcessCreatorPayout(ctx, earnings)
		if err != nil {
			m.logger.Errorw("creator payout failed",
				"creator_id", creatorID,
				"error", err,
			)
			continue
		}
		if p != nil {
			paid++
		}
	}
	return paid, nil
}

func (m *SchedulerManager) runMonthlyPayouts(ctx context.Context) {
	start := time.Now().UTC()
	paid, err := m.RunMonthlyPayouts(ctx, start)
	if err != nil {
		m.logger.Errorw("monthly payout run failed",
			"error", err,
			"duration", time.Since(start),
		)
		return
	}

	m.logger.Infow("monthly payout run completed",
		"payouts", paid,
		"duration", time.Since(start),
	)
}

// registerPayoutRetrySweep re-examines stuck payouts once a week on the
// configured weekday at 03:00 UTC.
func (m *SchedulerManager) registerPayoutRetrySweep() error {
	cronExpr := fmt.Sprintf("0 3 * * %d", int(m.cfg.Scheduler.PayoutRetryDay))

	_, err := m.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runPayoutRetrySweep(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("payout", "retry"),
		gocron.WithName("payout-retry-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered payout retry sweep",
		"weekday", m.cfg.Scheduler.PayoutRetryDay,
		"hour", "03:00 UTC",
	)
	return nil
}

func (m *SchedulerManager) runPayoutRetrySweep(ctx context.Context) {
	start := time.Now().UTC()
	recovered, err := m.payouts.RetryStalePayouts(ctx, start)
	if err != nil {
		m.logger.Errorw("payout retry sweep failed",
			"error", err,
			"recovered", recovered,
			"duration", time.Since(start),
		)
		return
	}
	if recovered > 0 {
		m.logger.Infow("stale payouts recovered",
			"count", recovered,
			"duration", time.Since(start),
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted reports whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
