// internal/billing/money.go
package billing

import "math"

// RoundCurrency rounds a dollar amount to cents, half away from zero.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
