package orders

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidOrderParameters covers bad volume, side, prices and
	// misplaced stop-loss/take-profit levels. Always user correctable.
	ErrInvalidOrderParameters = errors.New("invalid order parameters")

	ErrOrderNotFound = errors.New("order not found")
	ErrOrderNotOpen  = errors.New("order is not open")
)

// InsufficientMarginError reports the computed figures so the client can show
// a precise message.
type InsufficientMarginError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientMarginError) Error() string {
	return fmt.Sprintf("insufficient free margin: required %s, available %s", e.Required.String(), e.Available.String())
}
