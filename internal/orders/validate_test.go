package orders

import (
	"testing"

	"marginfx/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestValidatePlaceParams(t *testing.T) {
	entry := decimal.RequireFromString("1.10")
	volume := decimal.RequireFromString("0.1")

	require.NoError(t, validatePlaceParams("EURUSD", types.OrderSideBuy, volume, entry, nil, nil))

	err := validatePlaceParams("", types.OrderSideBuy, volume, entry, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrderParameters)

	err = validatePlaceParams("EURUSD", types.OrderSide("hold"), volume, entry, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrderParameters)

	err = validatePlaceParams("EURUSD", types.OrderSideBuy, decimal.RequireFromString("0.005"), entry, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrderParameters)

	err = validatePlaceParams("EURUSD", types.OrderSideBuy, volume, decimal.Zero, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrderParameters)
}

func TestValidateStopsBuy(t *testing.T) {
	entry := decimal.RequireFromString("1.10")

	require.NoError(t, validateStops(types.OrderSideBuy, entry, dp("1.05"), dp("1.15")))

	// Stop loss must sit strictly below entry.
	assert.Error(t, validateStops(types.OrderSideBuy, entry, dp("1.10"), nil))
	assert.Error(t, validateStops(types.OrderSideBuy, entry, dp("1.12"), nil))

	// Take profit must sit strictly above entry.
	assert.Error(t, validateStops(types.OrderSideBuy, entry, nil, dp("1.10")))
	assert.Error(t, validateStops(types.OrderSideBuy, entry, nil, dp("1.08")))
}

func TestValidateStopsSell(t *testing.T) {
	entry := decimal.RequireFromString("1.10")

	require.NoError(t, validateStops(types.OrderSideSell, entry, dp("1.15"), dp("1.05")))

	// Inequalities invert for the sell side.
	assert.Error(t, validateStops(types.OrderSideSell, entry, dp("1.05"), nil))
	assert.Error(t, validateStops(types.OrderSideSell, entry, nil, dp("1.15")))
}

func TestValidateStopsRejectNonPositive(t *testing.T) {
	entry := decimal.RequireFromString("1.10")
	assert.Error(t, validateStops(types.OrderSideBuy, entry, dp("0"), nil))
	assert.Error(t, validateStops(types.OrderSideBuy, entry, nil, dp("-1")))
}

func TestApplyLevel(t *testing.T) {
	current := dp("1.05")

	// Absent field keeps the stored level.
	assert.Equal(t, current, applyLevel(current, nil))
	// Zero clears it.
	assert.Nil(t, applyLevel(current, dp("0")))
	// Any other value replaces it.
	next := applyLevel(current, dp("1.07"))
	require.NotNil(t, next)
	assert.True(t, next.Equal(decimal.RequireFromString("1.07")))
}
