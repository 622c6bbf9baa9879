package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by a minor unit.
const Scale = 2

// ErrInvalidAmount reports an amount that cannot be represented in minor units.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	minorFactor = decimal.New(1, Scale)
	maxMinor    = decimal.NewFromInt(math.MaxInt64)
	minMinor    = decimal.NewFromInt(math.MinInt64)
)

// FromDecimal converts a major-unit decimal (e.g. 300.25) into minor units.
func FromDecimal(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(minorFactor)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than %d fractional digits in %s", ErrInvalidAmount, Scale, d.String())
	}
	if scaled.GreaterThan(maxMinor) || scaled.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return scaled.IntPart(), nil
}

// Parse reads a major-unit amount such as "125000" or "12.50".
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return FromDecimal(d)
}

// ToDecimal renders minor units as a major-unit decimal.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// Format renders minor units with exactly Scale fractional digits.
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(Scale)
}
