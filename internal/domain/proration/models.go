package proration

import (
	"github.com/shopspring/decimal"
)

// Params holds all necessary input for calculating a tier-change proration.
type Params struct {
	// CurrentPrice is the per-cycle price of the tier being left
	CurrentPrice decimal.Decimal
	// NewPrice is the per-cycle price of the tier being joined
	NewPrice decimal.Decimal
	// DaysRemaining is the number of days left in the current billing cycle.
	// Values at or below zero produce a zero amount.
	DaysRemaining int
	// CycleDays is the fixed billing cycle length (the platform bills on a
	// fixed 30-day cycle, not calendar months; a known simplification).
	CycleDays int
}

// Result holds the output of a proration calculation.
type Result struct {
	// Amount is signed: positive means the fan owes a prorated charge
	// (upgrade), negative means the fan is owed a credit (downgrade).
	Amount decimal.Decimal `json:"amount"`
	// IsUpgrade is true only when the new tier is strictly more expensive.
	IsUpgrade bool `json:"is_upgrade"`
	// DaysRemaining echoes the clamped day count used for the calculation.
	DaysRemaining int `json:"days_remaining"`
}

// Credit returns the absolute value of a downgrade credit, zero for
// upgrades.
func (r Result) Credit() decimal.Decimal {
	if r.Amount.IsNegative() {
		return r.Amount.Neg()
	}
	return decimal.Zero
}
