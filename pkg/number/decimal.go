package number

import (
	"lever/core"

	"github.com/shopspring/decimal"
)

var (
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	// MaxValue largest representable monetary magnitude, decimal(32,16) storage
	MaxValue = decimal.New(1, 16)

	// MaxHealthFactor sentinel health factor for debt free obligations
	MaxHealthFactor = decimal.New(1, 9)

	// BasisPoints bps denominator
	BasisPoints = decimal.NewFromInt(10000)

	// One 1
	One = decimal.NewFromInt(1)
)

// Decimal decimal from string
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// Check bounds a computed monetary quantity. Results beyond the storage
// range fail instead of being truncated silently.
func Check(d decimal.Decimal) (decimal.Decimal, error) {
	if d.Abs().GreaterThanOrEqual(MaxValue) {
		return decimal.Zero, core.ErrArithmeticOverflow
	}

	return d, nil
}

// Add checked addition
func Add(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Check(a.Add(b))
}

// Mul checked multiplication
func Mul(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Check(a.Mul(b).Truncate(MaxPrecision))
}

// MulDiv a * b / denom in one step so the intermediate product keeps full
// width before dividing back down
func MulDiv(a, b, denom decimal.Decimal) (decimal.Decimal, error) {
	if denom.IsZero() {
		return decimal.Zero, core.ErrDivisionByZero
	}

	return Check(a.Mul(b).Div(denom).Truncate(MaxPrecision))
}

// PercentageOf amount * bps / 10000
func PercentageOf(amount decimal.Decimal, bps int64) (decimal.Decimal, error) {
	return MulDiv(amount, decimal.NewFromInt(bps), BasisPoints)
}

// GrowByIndex amount * newIndex / oldIndex, the accrued balance of a
// position whose raw amount was recorded at oldIndex
func GrowByIndex(amount, newIndex, oldIndex decimal.Decimal) (decimal.Decimal, error) {
	return MulDiv(amount, newIndex, oldIndex)
}

// Ceil ceil to precision
func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}
