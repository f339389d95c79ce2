package service

import (
	"context"

	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Earnings aggregates a creator's completed transactions over a period.
type Earnings struct {
	CreatorID        string              `json:"creator_id"`
	Period           types.BillingPeriod `json:"period"`
	Gross            decimal.Decimal     `json:"gross"`
	PlatformFee      decimal.Decimal     `json:"platform_fee"`
	GatewayFee       decimal.Decimal     `json:"gateway_fee"`
	Net              decimal.Decimal     `json:"net"`
	TransactionCount int                 `json:"transaction_count"`
	Currency         string              `json:"currency"`
}

// EarningsService computes creator earnings for a settlement period.
type EarningsService interface {
	CalculateEarnings(ctx context.Context, creatorID string, period types.BillingPeriod) (*Earnings, error)
}

type earningsService struct {
	ServiceParams
}

// NewEarningsService creates the payout calculator.
func NewEarningsService(params ServiceParams) EarningsService {
	return &earningsService{ServiceParams: params}
}

func (s *earningsService) CalculateEarnings(ctx context.Context, creatorID string, period types.BillingPeriod) (*Earnings, error) {
	if creatorID == "" {
		return nil, ierr.NewError("creator id is required").
			WithHint("Earnings need a creator").
			Mark(ierr.ErrValidation)
	}
	if !period.End.After(period.Start) {
		return nil, ierr.NewError("invalid earnings period").
			WithHint("Period end must be after period start").
			WithReportableDetails(map[string]any{
				"period_start": period.Start,
				"period_end":   period.End,
			}).
			Mark(ierr.ErrValidation)
	}

	total, err := s.PaymentRepo.SumCompletedForCreator(ctx, creatorID, period)
	if err != nil {
		return nil, err
	}

	gross := total.Gross
	platformFee := gross.Mul(s.Config.Billing.CommissionRate).Round(2)
	gatewayFee := gross.Mul(s.Config.Billing.GatewayRate).Round(2)

	// Net must never go negative, even under fee-rate misconfiguration.
	net := gross.Sub(platformFee).Sub(gatewayFee)
	if net.IsNegative() {
		s.Logger.Warnw("fee rates exceed gross revenue, clamping net to zero",
			"creator_id", creatorID,
			"gross", gross,
			"platform_fee", platformFee,
			"gateway_fee", gatewayFee,
		)
		net = decimal.Zero
	}

	return &Earnings{
		CreatorID:        creatorID,
		Period:           period,
		Gross:            gross,
		PlatformFee:      platformFee,
		GatewayFee:       gatewayFee,
		Net:              net,
		TransactionCount: total.TransactionCount,
		Currency:         s.Config.Billing.Currency,
	}, nil
}
