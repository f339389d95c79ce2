package proration

import (
	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
)

// Calculator computes the monetary delta of a mid-cycle tier change.
type Calculator interface {
	Calculate(params Params) (*Result, error)
}

// NewCalculator creates the day-based proration calculator.
func NewCalculator() Calculator {
	return &dayBasedCalculator{}
}

// dayBasedCalculator prorates on whole days over a fixed-length cycle.
type dayBasedCalculator struct{}

func (c *dayBasedCalculator) Calculate(params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	isUpgrade := params.NewPrice.GreaterThan(params.CurrentPrice)

	// Defensive clamp: a change requested on or after the cycle boundary
	// carries no prorated amount.
	daysRemaining := params.DaysRemaining
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > params.CycleDays {
		daysRemaining = params.CycleDays
	}

	dailyDelta := params.NewPrice.Sub(params.CurrentPrice).
		Div(decimal.NewFromInt(int64(params.CycleDays)))
	amount := dailyDelta.Mul(decimal.NewFromInt(int64(daysRemaining))).Round(2)

	return &Result{
		Amount:        amount,
		IsUpgrade:     isUpgrade,
		DaysRemaining: daysRemaining,
	}, nil
}

// validateParams checks if essential parameters are provided. Callers are
// expected to short-circuit equal-price changes before calling; the
// calculator rejects them so a no-op change can never churn state.
func validateParams(params Params) error {
	if params.CycleDays <= 0 {
		return ierr.NewError("invalid cycle length").
			WithHintf("cycle days must be positive, got %d", params.CycleDays).
			Mark(ierr.ErrValidation)
	}
	if params.CurrentPrice.IsNegative() || params.NewPrice.IsNegative() {
		return ierr.NewError("invalid tier price").
			WithHint("Tier prices must not be negative").
			WithReportableDetails(map[string]any{
				"current_price": params.CurrentPrice,
				"new_price":     params.NewPrice,
			}).
			Mark(ierr.ErrValidation)
	}
	if params.CurrentPrice.Equal(params.NewPrice) {
		return ierr.NewError("tier prices are equal").
			WithHint("Equal-price changes are a no-op and must not be prorated").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
