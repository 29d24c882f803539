package model

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Amounts are BRL with centavo precision. The database stores integer
// centavos; the API speaks decimal strings ("12.50").

// MaxAmount is the largest single amount the platform accepts for a price,
// bid or wallet adjustment
var MaxAmount = decimal.NewFromInt(1_000_000_000)

// ErrAmountOutOfRange is returned when an amount has no int64 centavo form
var ErrAmountOutOfRange = errors.New("amount out of range")

// CentsOf converts a decimal amount to integer centavos, rounding half away
// from zero. Amounts whose centavos do not fit in an int64 are rejected.
func CentsOf(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if !c.BigInt().IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return c.IntPart(), nil
}

// ToCents is CentsOf for amounts already bounded by MaxAmount. Out of range
// values saturate instead of wrapping.
func ToCents(d decimal.Decimal) int64 {
	c, err := CentsOf(d)
	if err != nil {
		if d.IsNegative() {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return c
}

// FromCents converts integer centavos to a decimal amount
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// HasCentPrecision reports whether d has at most two decimal places
func HasCentPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// ValidAmount reports whether d is positive, has centavo precision and does
// not exceed MaxAmount
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && HasCentPrecision(d) && !d.GreaterThan(MaxAmount)
}

// PercentOf returns pct percent of amount, rounded down to the centavo
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100)).RoundFloor(2)
}

func validateAmount(field string, d decimal.Decimal, errs []FieldError) []FieldError {
	switch {
	case !d.IsPositive():
		errs = append(errs, FieldError{Field: field, Message: field + " must be positive"})
	case !HasCentPrecision(d):
		errs = append(errs, FieldError{Field: field, Message: field + " must have at most 2 decimal places"})
	case d.GreaterThan(MaxAmount):
		errs = append(errs, FieldError{Field: field, Message: field + " must not exceed " + MaxAmount.StringFixed(2)})
	}
	return errs
}
