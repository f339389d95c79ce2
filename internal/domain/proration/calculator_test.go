package proration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
)

func TestDayBasedCalculator_Upgrade(t *testing.T) {
	calc := NewCalculator()

	// GHS 15 -> GHS 25 with 10 of 30 days remaining: (25-15)/30*10 = 3.33
	result, err := calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(15),
		NewPrice:      decimal.NewFromInt(25),
		DaysRemaining: 10,
		CycleDays:     30,
	})
	require.NoError(t, err)

	assert.True(t, result.IsUpgrade)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(3.33)),
		"expected 3.33, got %s", result.Amount)
	assert.Equal(t, 10, result.DaysRemaining)
	assert.True(t, result.Credit().IsZero())
}

func TestDayBasedCalculator_Downgrade(t *testing.T) {
	calc := NewCalculator()

	// GHS 25 -> GHS 15 with 10 of 30 days remaining: credit of 3.33
	result, err := calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(25),
		NewPrice:      decimal.NewFromInt(15),
		DaysRemaining: 10,
		CycleDays:     30,
	})
	require.NoError(t, err)

	assert.False(t, result.IsUpgrade)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(-3.33)),
		"expected -3.33, got %s", result.Amount)
	assert.True(t, result.Credit().Equal(decimal.NewFromFloat(3.33)))
}

func TestDayBasedCalculator_SignInvariants(t *testing.T) {
	calc := NewCalculator()

	cases := []struct {
		name    string
		current int64
		new     int64
	}{
		{"small upgrade", 5, 6},
		{"large upgrade", 10, 200},
		{"small downgrade", 6, 5},
		{"large downgrade", 200, 10},
		{"from free", 0, 50},
		{"to free", 50, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for days := 0; days <= 30; days++ {
				result, err := calc.Calculate(Params{
					CurrentPrice:  decimal.NewFromInt(tc.current),
					NewPrice:      decimal.NewFromInt(tc.new),
					DaysRemaining: days,
					CycleDays:     30,
				})
				require.NoError(t, err)

				if tc.new > tc.current {
					assert.True(t, result.IsUpgrade)
					assert.True(t, result.Amount.GreaterThanOrEqual(decimal.Zero))
				} else {
					assert.False(t, result.IsUpgrade)
					assert.True(t, result.Amount.LessThanOrEqual(decimal.Zero))
				}
			}
		})
	}
}

func TestDayBasedCalculator_NoDaysRemaining(t *testing.T) {
	calc := NewCalculator()

	for _, days := range []int{0, -1, -30} {
		result, err := calc.Calculate(Params{
			CurrentPrice:  decimal.NewFromInt(15),
			NewPrice:      decimal.NewFromInt(25),
			DaysRemaining: days,
			CycleDays:     30,
		})
		require.NoError(t, err)

		assert.True(t, result.Amount.IsZero(), "days=%d", days)
		assert.True(t, result.IsUpgrade)
		assert.Equal(t, 0, result.DaysRemaining)
	}
}

func TestDayBasedCalculator_DaysClampedToCycle(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(15),
		NewPrice:      decimal.NewFromInt(25),
		DaysRemaining: 45,
		CycleDays:     30,
	})
	require.NoError(t, err)

	// Clamped to a full cycle: the whole price delta
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 30, result.DaysRemaining)
}

func TestDayBasedCalculator_EqualPricesRejected(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(15),
		NewPrice:      decimal.NewFromInt(15),
		DaysRemaining: 10,
		CycleDays:     30,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}

func TestDayBasedCalculator_InvalidParams(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(15),
		NewPrice:      decimal.NewFromInt(25),
		DaysRemaining: 10,
		CycleDays:     0,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = calc.Calculate(Params{
		CurrentPrice:  decimal.NewFromInt(-1),
		NewPrice:      decimal.NewFromInt(25),
		DaysRemaining: 10,
		CycleDays:     30,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
