package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/scheduler"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
)

// BillingHandler exposes the scheduled jobs as HTTP triggers so operators
// can force a run out of band. Every job is safe to re-trigger.
type BillingHandler struct {
	changes service.SubscriptionChangeService
	payouts service.PayoutService
	manager *scheduler.SchedulerManager
	logger  *logger.Logger
}

// NewBillingHandler creates a new billing cron handler
func NewBillingHandler(
	changes service.SubscriptionChangeService,
	payouts service.PayoutService,
	manager *scheduler.SchedulerManager,
	logger *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		changes: changes,
		payouts: payouts,
		manager: manager,
		logger:  logger,
	}
}

// ApplyDueChanges applies all scheduled downgrades whose billing date has
// arrived.
func (h *BillingHandler) ApplyDueChanges(c *gin.Context) {
	h.logger.Infow("starting due-change cron job")

	applied, err := h.changes.ApplyDueChanges(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to apply due changes",
			"error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed due-change cron job", "applied", applied)
	c.JSON(http.StatusOK, gin.H{"status": "completed", "applied": applied})
}

// RunMonthlyPayouts settles the previous calendar month for every creator.
func (h *BillingHandler) RunMonthlyPayouts(c *gin.Context) {
	h.logger.Infow("starting monthly payout cron job")

	paid, err := h.manager.RunMonthlyPayouts(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to run monthly payouts",
			"error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed monthly payout cron job", "payouts", paid)
	c.JSON(http.StatusOK, gin.H{"status": "completed", "payouts": paid})
}

// RetryStalePayouts re-examines failed and stuck payouts.
func (h *BillingHandler) RetryStalePayouts(c *gin.Context) {
	h.logger.Infow("starting payout retry cron job")

	recovered, err := h.payouts.RetryStalePayouts(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to retry stale payouts",
			"error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed payout retry cron job", "recovered", recovered)
	c.JSON(http.StatusOK, gin.H{"status": "completed", "recovered": recovered})
}
