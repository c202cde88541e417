package orders

import (
	"fmt"

	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

var minVolume = decimal.NewFromFloat(0.01)

func validatePlaceParams(symbol string, side types.OrderSide, volume, entryPrice decimal.Decimal, stopLoss, takeProfit *decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrderParameters)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrderParameters)
	}
	if volume.LessThan(minVolume) {
		return fmt.Errorf("%w: volume must be at least %s lots", ErrInvalidOrderParameters, minVolume.String())
	}
	if !entryPrice.IsPositive() {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidOrderParameters)
	}
	return validateStops(side, entryPrice, stopLoss, takeProfit)
}

// validateStops enforces the side-relative placement of protective levels:
// for a buy the stop loss sits strictly below the entry and the take profit
// strictly above; for a sell the inequalities invert.
func validateStops(side types.OrderSide, entryPrice decimal.Decimal, stopLoss, takeProfit *decimal.Decimal) error {
	if stopLoss != nil && !stopLoss.IsPositive() {
		return fmt.Errorf("%w: stop loss must be positive", ErrInvalidOrderParameters)
	}
	if takeProfit != nil && !takeProfit.IsPositive() {
		return fmt.Errorf("%w: take profit must be positive", ErrInvalidOrderParameters)
	}
	switch side {
	case types.OrderSideBuy:
		if stopLoss != nil && !stopLoss.LessThan(entryPrice) {
			return fmt.Errorf("%w: stop loss must be below entry price for a buy", ErrInvalidOrderParameters)
		}
		if takeProfit != nil && !takeProfit.GreaterThan(entryPrice) {
			return fmt.Errorf("%w: take profit must be above entry price for a buy", ErrInvalidOrderParameters)
		}
	case types.OrderSideSell:
		if stopLoss != nil && !stopLoss.GreaterThan(entryPrice) {
			return fmt.Errorf("%w: stop loss must be above entry price for a sell", ErrInvalidOrderParameters)
		}
		if takeProfit != nil && !takeProfit.LessThan(entryPrice) {
			return fmt.Errorf("%w: take profit must be below entry price for a sell", ErrInvalidOrderParameters)
		}
	}
	return nil
}
