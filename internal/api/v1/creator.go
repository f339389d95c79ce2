package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/api/dto"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/domain/payout"
	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/logger"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/service"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type CreatorHandler struct {
	earnings   service.EarningsService
	payouts    service.PayoutService
	payoutRepo payout.Repository
	log        *logger.Logger
}

func NewCreatorHandler(earnings service.EarningsService, payouts service.PayoutService, payoutRepo payout.Repository, log *logger.Logger) *CreatorHandler {
	return &CreatorHandler{earnings: earnings, payouts: payouts, payoutRepo: payoutRepo, log: log}
}

// GetEarnings returns a creator's settlement breakdown. Defaults to the
// previous calendar month; ?month=YYYY-MM selects another.
func (h *CreatorHandler) GetEarnings(c *gin.Context) {
	creatorID := c.Param("id")
	if creatorID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Creator ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	period := types.PreviousMonthlyPeriod(time.Now().UTC())
	if month := c.Query("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Month must be in YYYY-MM format").
				Mark(ierr.ErrValidation))
			return
		}
		period = types.MonthlyPeriodFor(t)
	}

	earnings, err := h.earnings.CalculateEarnings(c.Request.Context(), creatorID, period)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.EarningsResponse{
		CreatorID:        earnings.CreatorID,
		PeriodStart:      earnings.Period.Start,
		PeriodEnd:        earnings.Period.End,
		Gross:            earnings.Gross,
		PlatformFee:      earnings.PlatformFee,
		GatewayFee:       earnings.GatewayFee,
		Net:              earnings.Net,
		TransactionCount: earnings.TransactionCount,
		Currency:         earnings.Currency,
	})
}

func (h *CreatorHandler) ListPayouts(c *gin.Context) {
	creatorID := c.Param("id")
	if creatorID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Creator ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	payouts, err := h.payouts.ListPayouts(c.Request.Context(), creatorID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lo.Map(payouts, func(p *payout.Payout, _ int) *dto.PayoutResponse {
			return dto.NewPayoutResponse(p)
		}),
	})
}

func (h *CreatorHandler) UpsertPayoutSettings(c *gin.Context) {
	creatorID := c.Param("id")
	if creatorID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Creator ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpsertPayoutSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind payout settings request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	settings := &payout.Settings{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYOUT_SETTINGS),
		CreatorID:             creatorID,
		Method:                req.Method,
		PhoneNumber:           req.PhoneNumber,
		AccountNumber:         req.AccountNumber,
		AccountName:           req.AccountName,
		BankCode:              req.BankCode,
		AutoWithdrawThreshold: req.AutoWithdrawThreshold,
		BaseModel:             types.GetDefaultBaseModel(c.Request.Context()),
	}
	// Reject destinations the chosen method cannot use.
	if _, err := settings.Destination(); err != nil {
		c.Error(err)
		return
	}

	if err := h.payoutRepo.UpsertSettings(c.Request.Context(), settings); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
