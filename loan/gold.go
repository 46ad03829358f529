/*
gold.go - Gold loan collateral valuation

A gold loan is a Loan whose principal is backed by pledged gold. The
eligible amount is grams x ratePerGram x LTV, computed once from the
applicant's declaration and again from the admin's verification at
acceptance. Once verified figures are set they govern the disbursed
amount; the declared figures are kept for audit only.
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlasbank/instrument-engine/engine"
)

// DefaultLoanToValue is the fixed fraction of the collateral value that
// may be lent against pledged gold.
const DefaultLoanToValue = 0.75

// =============================================================================
// GOLD COLLATERAL
// =============================================================================

type GoldCollateral struct {
	GoldGrams       float64
	GoldRatePerGram engine.Money
	GoldValue       engine.Money // grams x rate, at declaration
	LoanToValue     float64

	VerifiedBy    *string
	VerifiedAt    *time.Time
	VerifiedGrams *float64
	VerifiedValue *engine.Money
}

// Valuation computes grams x ratePerGram.
func Valuation(grams float64, ratePerGram engine.Money) engine.Money {
	return ratePerGram.Mul(decimal.NewFromFloat(grams)).Round2()
}

// NewGoldCollateral values the applicant's declared gold.
func NewGoldCollateral(grams float64, ratePerGram engine.Money) (*GoldCollateral, error) {
	if grams <= 0 {
		return nil, &engine.InvalidAmountError{Reason: "gold weight must be positive"}
	}
	if !ratePerGram.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "gold rate must be positive"}
	}
	return &GoldCollateral{
		GoldGrams:       grams,
		GoldRatePerGram: ratePerGram,
		GoldValue:       Valuation(grams, ratePerGram),
		LoanToValue:     DefaultLoanToValue,
	}, nil
}

// EligibleAmount is the declared valuation times the loan-to-value ratio.
func (g *GoldCollateral) EligibleAmount() engine.Money {
	return g.GoldValue.Mul(decimal.NewFromFloat(g.LoanToValue)).Round2()
}

// Verify records the admin-assessed weight and value. Higher-trust
// verified figures govern the disbursed amount once set.
func (g *GoldCollateral) Verify(actor string, grams float64, ratePerGram engine.Money, now time.Time) error {
	if grams <= 0 || !ratePerGram.IsPositive() {
		return &engine.InvalidAmountError{Reason: "verified gold figures must be positive"}
	}
	value := Valuation(grams, ratePerGram)
	g.VerifiedBy = &actor
	g.VerifiedAt = &now
	g.VerifiedGrams = &grams
	g.VerifiedValue = &value
	return nil
}

// DisbursableAmount is the amount the loan may actually disburse:
// verified valuation x LTV when verification happened, otherwise the
// declared eligible amount.
func (g *GoldCollateral) DisbursableAmount() engine.Money {
	if g.VerifiedValue != nil {
		return g.VerifiedValue.Mul(decimal.NewFromFloat(g.LoanToValue)).Round2()
	}
	return g.EligibleAmount()
}

// =============================================================================
// GOLD LOAN CONSTRUCTION
// =============================================================================

// NewGold creates a Pending gold loan whose principal is the declared
// eligible amount. Verifying the collateral before approval re-bases the
// principal on the verified disbursable amount.
func NewGold(id, accountNumber string, grams float64, ratePerGram engine.Money, annualRatePct float64, tenureMonths int, now time.Time) (*Loan, error) {
	collateral, err := NewGoldCollateral(grams, ratePerGram)
	if err != nil {
		return nil, err
	}
	l, err := New(id, accountNumber, KindGold, collateral.EligibleAmount(), annualRatePct, tenureMonths, now)
	if err != nil {
		return nil, err
	}
	l.Collateral = collateral
	return l, nil
}

// VerifyCollateral applies the admin valuation to a Pending gold loan
// and re-bases the principal on the verified figures.
func (l *Loan) VerifyCollateral(actor string, grams float64, ratePerGram engine.Money, now time.Time) error {
	if l.Kind != KindGold || l.Collateral == nil {
		return l.illegal("verify collateral")
	}
	if l.Status != StatusPending {
		return l.illegal("verify collateral")
	}
	if err := l.Collateral.Verify(actor, grams, ratePerGram, now); err != nil {
		return err
	}
	l.Principal = l.Collateral.DisbursableAmount()
	return nil
}
