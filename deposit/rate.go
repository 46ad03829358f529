package deposit

import "github.com/shopspring/decimal"

// =============================================================================
// TENURE-BASED RATE DERIVATION
// =============================================================================

const (
	floorRatePct   = 4.0
	ceilingRatePct = 8.0
)

// RateForTenure derives the annual interest rate from tenure as a
// clamped linear step function of tenure-in-years:
//
//	years = ceil(tenureMonths / 12)
//	rate  = min(8.0, 4.0 + (years-1) x 1.0)     floor 4.0
//
// 12 months -> 4.0, 36 months -> 6.0, 60+ months -> 8.0. The function is
// deterministic and monotonic in tenure.
func RateForTenure(tenureMonths int) float64 {
	if tenureMonths <= 0 {
		return floorRatePct
	}
	years := (tenureMonths + 11) / 12
	rate := floorRatePct + float64(years-1)
	if rate > ceilingRatePct {
		return ceilingRatePct
	}
	return rate
}

var twelve = decimal.NewFromInt(12)
