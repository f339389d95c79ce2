package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/api/dto"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/gateway"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// HeaderGatewaySignature carries the gateway's HMAC over the raw body.
const HeaderGatewaySignature = "X-Gateway-Signature"

type WebhookHandler struct {
	gateway gateway.Gateway
	changes service.SubscriptionChangeService
	log     *logger.Logger
}

func NewWebhookHandler(gw gateway.Gateway, changes service.SubscriptionChangeService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gw, changes: changes, log: log}
}

// HandleGatewayEvent processes charge notifications from the payment
// gateway. Successful prorated-upgrade charges commit the tier switch the
// charge was initialized for.
func (h *WebhookHandler) HandleGatewayEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(HeaderGatewaySignature)
	if !h.gateway.ValidateWebhookSignature(body, signature) {
		h.log.Warnw("rejected gateway webhook with invalid signature",
			"remote_addr", c.ClientIP(),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "invalid signature"})
		return
	}

	var event dto.GatewayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	switch event.Event {
	case dto.WebhookEventChargeSuccess:
		h.handleChargeSuccess(c, event)
	case dto.WebhookEventChargeFailed:
		h.log.Infow("gateway charge failed",
			"reference", event.Reference,
			"subscription_id", event.Metadata["subscription_id"],
		)
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleChargeSuccess(c *gin.Context, event dto.GatewayWebhookEvent) {
	subscriptionID := event.Metadata["subscription_id"]
	newTierID := event.Metadata["new_tier_id"]
	attemptToken := event.Metadata["attempt_token"]
	if subscriptionID == "" || newTierID == "" || attemptToken == "" {
		// Not a tier-switch charge; nothing to commit.
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		return
	}

	amount := event.Amount
	if raw, ok := event.Metadata["proration_amount"]; ok {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			amount = parsed
		}
	}

	sub, err := h.changes.ApplyTierSwitch(c.Request.Context(), service.ApplyTierSwitchRequest{
		SubscriptionID:  subscriptionID,
		NewTierID:       newTierID,
		ProrationAmount: amount,
		AttemptToken:    attemptToken,
		ChangeType:      types.SubscriptionChangeTypeUpgrade,
		BillingImpact:   types.BillingImpactImmediate,
		Reason:          "prorated upgrade charge confirmed",
	})
	if err != nil {
		h.log.Errorw("failed to apply tier switch from webhook",
			"subscription_id", subscriptionID,
			"reference", event.Reference,
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "applied",
		"subscription_id": sub.ID,
		"tier_id":         sub.TierID,
	})
}
