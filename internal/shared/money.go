package shared

import "github.com/shopspring/decimal"

// BalanceTolerance absorbs rounding when comparing monetary sums.
var BalanceTolerance = decimal.New(1, -2) // 0.01

// WithinTolerance reports whether a and b differ by at most BalanceTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(BalanceTolerance)
}

// IsPositive reports whether d is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}
