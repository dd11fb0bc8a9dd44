// Package units converts reward amounts between display values and on-chain base units.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// RewardDecimals is the fixed-point precision of every reward token
const RewardDecimals int32 = 18

// ErrInvalidAmount is returned for empty, placeholder or non-numeric amounts
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a user or API supplied amount. Placeholders that leak from
// loosely typed callers ("undefined", "null", "NaN") are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "undefined", "null", "nan", "+inf", "-inf", "inf", "infinity":
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return d, nil
}

// ToBaseUnits converts amount to an integer count of base units with 18 decimals.
// Precision beyond 18 decimals is truncated.
func ToBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(RewardDecimals).Truncate(0).BigInt()
}

// FromBaseUnits converts an on-chain integer amount back to a display value
func FromBaseUnits(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -RewardDecimals)
}

// ParseBaseUnits parses raw and converts it to base units in one step
func ParseBaseUnits(raw string) (*big.Int, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, d.String())
	}
	return ToBaseUnits(d), nil
}
