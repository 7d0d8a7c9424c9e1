// Package money holds the currency arithmetic shared by the reporting engine.
// Amounts are decimal values with two fractional digits; floats only appear
// at the edges for percentages and ratings.
package money

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits of the smallest currency unit.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds an amount half away from zero to the smallest currency unit.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(Scale)
}

// Divide returns numerator/denominator rounded to the currency scale, or zero
// when the denominator is zero.
func Divide(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.DivRound(denominator, Scale)
}

// Percent returns part/whole*100 rounded to two digits, or 0 when whole is zero.
func Percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return ToFloat(part.Mul(hundred).DivRound(whole, Scale+4))
}

// ToFloat converts a decimal to a float64 rounded to two digits.
func ToFloat(value decimal.Decimal) float64 {
	f, _ := value.Round(Scale).Float64()
	return f
}

// RoundFloat rounds a ratio to two digits without going through decimal.
func RoundFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*100) / 100
}

// Format renders an amount with exactly two fractional digits.
func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// Parse reads a monetary value from a loosely typed payload field.
func Parse(raw any) (decimal.Decimal, bool) {
	switch value := raw.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return Round(value), true
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return decimal.Zero, false
		}
		return Round(decimal.NewFromFloat(value)), true
	case float32:
		return Parse(float64(value))
	case int:
		return decimal.NewFromInt(int64(value)), true
	case int32:
		return decimal.NewFromInt(int64(value)), true
	case int64:
		return decimal.NewFromInt(value), true
	case json.Number:
		return Parse(value.String())
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			if f, ferr := strconv.ParseFloat(trimmed, 64); ferr == nil {
				return Parse(f)
			}
			return decimal.Zero, false
		}
		return Round(parsed), true
	default:
		return decimal.Zero, false
	}
}
