package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/api/dto"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type SubscriptionHandler struct {
	service service.SubscriptionChangeService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionChangeService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

// ChangeTier requests a tier change. Upgrades come back as requires_payment
// with an attempt token; downgrades are scheduled for the next billing date.
func (h *SubscriptionHandler) ChangeTier(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind change tier request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	outcome, err := h.service.RequestTierChange(c.Request.Context(), id, req.NewTierID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ChangeTierResponse{
		Outcome:       string(outcome.Type),
		Amount:        outcome.Amount,
		AttemptToken:  outcome.AttemptToken,
		EffectiveDate: outcome.EffectiveDate,
		CreditAmount:  outcome.CreditAmount,
		Subscription:  dto.NewSubscriptionResponse(outcome.Subscription),
	})
}

// ApplyTierSwitch commits an upgrade after the prorated charge succeeded.
// Replays with the same attempt token return the committed state.
func (h *SubscriptionHandler) ApplyTierSwitch(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.ApplyTierSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind apply switch request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	sub, err := h.service.ApplyTierSwitch(c.Request.Context(), service.ApplyTierSwitchRequest{
		SubscriptionID:  id,
		NewTierID:       req.NewTierID,
		ProrationAmount: req.ProrationAmount,
		AttemptToken:    req.AttemptToken,
		BillingImpact:   types.BillingImpactImmediate,
		Reason:          "tier switch confirmed",
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}

// CancelPendingChange withdraws a scheduled downgrade before it applies.
func (h *SubscriptionHandler) CancelPendingChange(c *gin.Context) {
	changeID := c.Param("changeId")
	if changeID == "" {
		c.Error(ierr.NewError("change id is required").
			WithHint("Pending change ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CancelPendingChange(c.Request.Context(), changeID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if req.Reason == "" {
		req.Reason = "fan requested cancellation"
	}

	sub, err := h.service.CancelSubscription(c.Request.Context(), id, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	sub, err := h.service.ReactivateSubscription(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubscriptionResponse(sub))
}
