package payment

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts an order total into the smallest currency unit of the
// charge: round(total * rate, 2) * 100. Initialization and every later
// reconciliation must go through this function so both sides agree.
func MinorUnits(total, rate decimal.Decimal) int64 {
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	return total.Mul(rate).Round(2).Mul(hundred).IntPart()
}

// Reconcile reports whether the charged amount matches the expected one.
// There is no tolerance band.
func Reconcile(expected, reported int64) bool {
	return expected == reported
}
