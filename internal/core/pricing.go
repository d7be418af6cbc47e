package core

import (
	"math/big"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MinNameLength is the shortest mintable name, in characters.
const MinNameLength = 3

// Price tiers in the native currency of the required network.
var (
	PriceShort  = decimal.RequireFromString("0.5") // 3 characters
	PriceMedium = decimal.RequireFromString("0.3") // 4 characters
	PriceBase   = decimal.RequireFromString("0.1") // 5 or more
)

// NameLength counts characters, not bytes.
func NameLength(name string) int {
	return utf8.RuneCountInString(name)
}

// ValidateName rejects names that must never reach the registry.
func ValidateName(name string) error {
	switch n := NameLength(name); {
	case n == 0:
		return ErrEmptyName
	case n < MinNameLength:
		return ErrNameTooShort
	}
	return nil
}

// PriceFor returns the mint price of name. Names shorter than MinNameLength are priced at the
// highest tier; callers validate before pricing.
func PriceFor(name string) decimal.Decimal {
	switch n := NameLength(name); {
	case n <= 3:
		return PriceShort
	case n == 4:
		return PriceMedium
	default:
		return PriceBase
	}
}

// PriceWei returns PriceFor(name) in wei (18 decimals).
func PriceWei(name string) *big.Int {
	return PriceFor(name).Shift(18).BigInt()
}

// FormatWei renders a wei amount in whole units of the native currency.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}
