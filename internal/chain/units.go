package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// maxDecimals bounds token precision; no ERC-20 in use goes beyond 36.
const maxDecimals = 36

// ParseUnits converts a decimal token amount into base units.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}
	if decimals < 0 || decimals > maxDecimals {
		return nil, fmt.Errorf("token decimals out of range: %d", decimals)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if !d.Equal(d.Truncate(int32(decimals))) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits renders base units as a decimal token amount.
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}
