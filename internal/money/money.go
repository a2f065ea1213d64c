// Package money holds the shared numeric conventions for amounts.
//
// Amounts are float64 and every comparison against zero goes through the
// fixed Epsilon instead of exact equality, absorbing floating-point and
// currency-rounding noise. Amounts are rounded to two decimals only on
// emission, via decimal arithmetic.
package money

import "github.com/shopspring/decimal"

// Epsilon is the uniform "negligible amount" threshold. Anything at or
// below it is treated as zero throughout the settlement subsystem.
const Epsilon = 0.01

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Negligible reports whether |v| is within Epsilon of zero.
func Negligible(v float64) bool {
	return v <= Epsilon && v >= -Epsilon
}
