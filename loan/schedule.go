/*
schedule.go - Reducing-balance EMI schedule generation

PURPOSE:
  Derives the ordered installment sequence from a loan's principal,
  tenure, and annual rate at approval time. Pure computation; the
  schedule is generated before the transactional write.

AMORTIZATION:
  monthlyRate = annualRate / 12 / 100
  installment = P x r x (1+r)^n / ((1+r)^n - 1)      (level EMI)

  Per installment:
    interest  = remainingPrincipal x monthlyRate
    principal = installment - interest
    remainingPrincipal -= principal

  remainingPrincipal is strictly decreasing and reaches exactly zero at
  installment n: the final installment's principal component absorbs the
  accumulated rounding residue (a few paise at most).

SEE ALSO:
  - loan.go: lifecycle transitions that consume the schedule
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlasbank/instrument-engine/engine"
)

// =============================================================================
// EMI PAYMENT - One installment in the schedule
// =============================================================================

type EmiStatus string

const (
	EmiPending EmiStatus = "Pending"
	EmiPaid    EmiStatus = "Paid"
	EmiOverdue EmiStatus = "Overdue"
	EmiSkipped EmiStatus = "Skipped"
)

type EmiPayment struct {
	EmiNumber          int
	DueDate            time.Time
	TotalAmount        engine.Money
	PrincipalComponent engine.Money
	InterestComponent  engine.Money
	RemainingPrincipal engine.Money // after this installment
	Status             EmiStatus

	PaidBy        *string
	PaidAt        *time.Time
	BalanceBefore *engine.Money
	BalanceAfter  *engine.Money
}

// IsDue reports whether a pending installment's due date has passed.
// The engine exposes the predicate; a periodic sweep is the driver.
func (e *EmiPayment) IsDue(now time.Time) bool {
	return e.Status == EmiPending && now.After(e.DueDate)
}

// =============================================================================
// GENERATION
// =============================================================================

var hundred = decimal.NewFromInt(100)
var twelve = decimal.NewFromInt(12)

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualRatePct float64) decimal.Decimal {
	return decimal.NewFromFloat(annualRatePct).Div(twelve).Div(hundred)
}

// Installment computes the level EMI for a reducing-balance loan,
// rounded to 2 decimal places.
func Installment(principal engine.Money, annualRatePct float64, tenureMonths int) engine.Money {
	r := MonthlyRate(annualRatePct)
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(tenureMonths))).Round2()
	}
	one := decimal.NewFromInt(1)
	pow := one.Add(r).Pow(decimal.NewFromInt(int64(tenureMonths)))
	// P x r x (1+r)^n / ((1+r)^n - 1)
	return principal.Mul(r).Mul(pow).Div(pow.Sub(one)).Round2()
}

// Generate produces the full schedule. Due dates are approvedAt plus
// emiNumber months.
func Generate(principal engine.Money, annualRatePct float64, tenureMonths int, approvedAt time.Time) ([]EmiPayment, error) {
	if !principal.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "loan principal must be positive"}
	}
	if tenureMonths <= 0 {
		return nil, &engine.InvalidAmountError{Reason: "loan tenure must be at least one month"}
	}
	if annualRatePct < 0 {
		return nil, &engine.InvalidAmountError{Reason: "loan rate must not be negative"}
	}

	installment := Installment(principal, annualRatePct, tenureMonths)
	r := MonthlyRate(annualRatePct)
	remaining := principal

	schedule := make([]EmiPayment, 0, tenureMonths)
	for n := 1; n <= tenureMonths; n++ {
		interest := remaining.Mul(r).Round2()
		principalPart := installment.Sub(interest)
		total := installment
		if n == tenureMonths {
			// Final installment absorbs the rounding residue so the
			// remaining principal lands exactly on zero.
			principalPart = remaining
			total = principalPart.Add(interest).Round2()
		}
		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, EmiPayment{
			EmiNumber:          n,
			DueDate:            approvedAt.AddDate(0, n, 0),
			TotalAmount:        total,
			PrincipalComponent: principalPart.Round2(),
			InterestComponent:  interest,
			RemainingPrincipal: remaining.Round2(),
			Status:             EmiPending,
		})
	}
	return schedule, nil
}
