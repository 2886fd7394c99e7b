package billing

import (
	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	halfCent = decimal.NewFromFloat(0.5)
)

// Cents returns round(amount * 100) as a whole decimal, where halves round
// towards positive infinity. It has no upper bound.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred).Add(halfCent).Floor()
}

// ToCents converts an amount to integer cents. Amounts beyond int64 cents
// overflow; compare with Cents instead.
func ToCents(amount decimal.Decimal) int64 {
	return Cents(amount).IntPart()
}

// FromCents converts integer cents back to an amount with two decimals.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// RoundToCents rounds an amount to whole cents.
func RoundToCents(amount decimal.Decimal) decimal.Decimal {
	return Cents(amount).Shift(-2)
}
