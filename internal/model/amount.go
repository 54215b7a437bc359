package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrFractionalBaseUnits is returned when an amount has more precision than the currency.
var ErrFractionalBaseUnits = errors.New("amount is finer than the currency base unit")

// ToBaseUnits converts a human amount ("0.5") into integral base units.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (decimal.Decimal, error) {
	units := amount.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("%w: %s with %d decimals", ErrFractionalBaseUnits, amount, decimals)
	}
	return units.Truncate(0), nil
}

// FromBaseUnits is the inverse of ToBaseUnits, used for display only.
func FromBaseUnits(units decimal.Decimal, decimals int32) decimal.Decimal {
	return units.Shift(-decimals)
}
