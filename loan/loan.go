/*
Package loan implements the loan lifecycle state machine and its EMI
schedule.

STATES:
  Pending -> {Approved, Rejected}
  Approved -> Paid          (schedule exhausted)
  Approved -> Foreclosed    (early full repayment with penalty)

APPROVAL:
  Approving a loan generates the reducing-balance EMI schedule (see
  schedule.go) and disburses the principal to the owning account.

PAYMENT ORDER:
  payEmi is legal only for the lowest-numbered Pending/Overdue
  installment; paying out of order is an IllegalTransition.

FORECLOSURE:
  foreclosureAmount = remainingPrincipal + remainingInterest
                    + charges (chargePct of remainingPrincipal)
                    + GST on the charges
  Foreclosing freezes the loan: unpaid installments become Skipped and a
  second foreclosure is an IllegalTransition that leaves every
  foreclosure field unchanged.
*/
package loan

import (
	"fmt"
	"time"

	"github.com/atlasbank/instrument-engine/engine"
)

// =============================================================================
// STATES AND KINDS
// =============================================================================

type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusForeclosed Status = "Foreclosed"
	StatusPaid       Status = "Paid"
)

type Kind string

const (
	KindPersonal  Kind = "personal"
	KindEducation Kind = "education"
	KindGold      Kind = "gold"
)

// =============================================================================
// LOAN
// =============================================================================

type Loan struct {
	ID            string
	AccountNumber string
	Kind          Kind
	Principal     engine.Money
	AnnualRatePct float64
	TenureMonths  int
	Status        Status

	AppliedAt  time.Time
	ApprovedBy *string
	ApprovedAt *time.Time

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string

	ForeclosedBy      *string
	ForeclosedAt      *time.Time
	ForeclosureAmount *engine.Money
	ForeclosureCharge *engine.Money
	ForeclosureGst    *engine.Money

	PaidAt *time.Time

	// Collateral is set only for gold loans.
	Collateral *GoldCollateral

	Schedule []EmiPayment
}

// New creates a Pending loan application.
func New(id, accountNumber string, kind Kind, principal engine.Money, annualRatePct float64, tenureMonths int, now time.Time) (*Loan, error) {
	if !principal.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "loan principal must be positive"}
	}
	if tenureMonths <= 0 {
		return nil, &engine.InvalidAmountError{Reason: "loan tenure must be at least one month"}
	}
	if annualRatePct < 0 {
		return nil, &engine.InvalidAmountError{Reason: "loan rate must not be negative"}
	}
	return &Loan{
		ID:            id,
		AccountNumber: accountNumber,
		Kind:          kind,
		Principal:     principal.Round2(),
		AnnualRatePct: annualRatePct,
		TenureMonths:  tenureMonths,
		Status:        StatusPending,
		AppliedAt:     now,
	}, nil
}

func (l *Loan) Guard() engine.StatusGuard {
	return engine.StatusGuard{Status: string(l.Status)}
}

func (l *Loan) illegal(requested string) error {
	return &engine.IllegalTransitionError{
		Instrument: "loan",
		ID:         l.ID,
		From:       string(l.Status),
		Requested:  requested,
	}
}

// =============================================================================
// APPROVAL
// =============================================================================

// Approve generates the EMI schedule and returns the disbursal credit
// for the owning account.
func (l *Loan) Approve(actor string, now time.Time) (engine.Effect, error) {
	if l.Status != StatusPending {
		return engine.Effect{}, l.illegal("approve")
	}
	schedule, err := Generate(l.Principal, l.AnnualRatePct, l.TenureMonths, now)
	if err != nil {
		return engine.Effect{}, err
	}
	l.Status = StatusApproved
	l.ApprovedBy = &actor
	l.ApprovedAt = &now
	l.Schedule = schedule
	return engine.Effect{
		AccountNumber:  l.AccountNumber,
		Delta:          l.Principal,
		Kind:           engine.KindLoanDisbursal,
		ReferenceID:    l.ID,
		Description:    "loan " + l.ID + " disbursed",
		Actor:          actor,
		IdempotencyKey: "loan-disburse-" + l.ID,
	}, nil
}

func (l *Loan) Reject(actor, reason string, now time.Time) error {
	if l.Status != StatusPending {
		return l.illegal("reject")
	}
	l.Status = StatusRejected
	l.RejectedBy = &actor
	l.RejectedAt = &now
	l.RejectionReason = &reason
	return nil
}

// =============================================================================
// EMI PAYMENT
// =============================================================================

// NextPayable returns the lowest-numbered Pending/Overdue installment,
// or nil when the schedule is exhausted.
func (l *Loan) NextPayable() *EmiPayment {
	for i := range l.Schedule {
		if l.Schedule[i].Status == EmiPending || l.Schedule[i].Status == EmiOverdue {
			return &l.Schedule[i]
		}
	}
	return nil
}

// PayEmi pays installment emiNumber and returns the debit for its total
// amount. Legal only for the lowest-numbered Pending/Overdue
// installment of an Approved loan. Paying the final installment
// transitions the loan to Paid.
func (l *Loan) PayEmi(emiNumber int, actor string, now time.Time) (engine.Effect, error) {
	if l.Status != StatusApproved {
		return engine.Effect{}, l.illegal(fmt.Sprintf("pay EMI %d", emiNumber))
	}
	next := l.NextPayable()
	if next == nil || next.EmiNumber != emiNumber {
		return engine.Effect{}, &engine.IllegalTransitionError{
			Instrument: "loan",
			ID:         l.ID,
			From:       string(l.Status),
			Requested:  fmt.Sprintf("pay EMI %d out of order", emiNumber),
		}
	}

	next.Status = EmiPaid
	next.PaidBy = &actor
	next.PaidAt = &now

	if l.NextPayable() == nil {
		l.Status = StatusPaid
		l.PaidAt = &now
	}

	return engine.Effect{
		AccountNumber:  l.AccountNumber,
		Delta:          next.TotalAmount.Neg(),
		Kind:           engine.KindEmiPayment,
		ReferenceID:    l.ID,
		Description:    fmt.Sprintf("loan %s EMI %d/%d", l.ID, emiNumber, l.TenureMonths),
		Actor:          actor,
		IdempotencyKey: fmt.Sprintf("loan-%s-emi-%d", l.ID, emiNumber),
	}, nil
}

// RecordEmiBalances stores the account balance around an EMI debit.
// Called by the applier inside the same store transaction as the debit.
func (l *Loan) RecordEmiBalances(emiNumber int, before, after engine.Money) {
	for i := range l.Schedule {
		if l.Schedule[i].EmiNumber == emiNumber {
			l.Schedule[i].BalanceBefore = &before
			l.Schedule[i].BalanceAfter = &after
			return
		}
	}
}

// MarkOverdue flips every Pending installment whose due date has passed
// to Overdue and returns how many changed. Idempotent: a second run in
// the same period marks nothing.
func (l *Loan) MarkOverdue(now time.Time) int {
	if l.Status != StatusApproved {
		return 0
	}
	marked := 0
	for i := range l.Schedule {
		if l.Schedule[i].IsDue(now) {
			l.Schedule[i].Status = EmiOverdue
			marked++
		}
	}
	return marked
}

// =============================================================================
// FORECLOSURE
// =============================================================================

// RemainingPrincipal sums the principal components of unpaid
// installments.
func (l *Loan) RemainingPrincipal() engine.Money {
	rem := engine.ZeroMoney()
	for i := range l.Schedule {
		if l.Schedule[i].Status == EmiPending || l.Schedule[i].Status == EmiOverdue {
			rem = rem.Add(l.Schedule[i].PrincipalComponent)
		}
	}
	return rem
}

// RemainingInterest sums the interest components of unpaid installments.
func (l *Loan) RemainingInterest() engine.Money {
	rem := engine.ZeroMoney()
	for i := range l.Schedule {
		if l.Schedule[i].Status == EmiPending || l.Schedule[i].Status == EmiOverdue {
			rem = rem.Add(l.Schedule[i].InterestComponent)
		}
	}
	return rem
}

// ForeclosureQuote is the frozen breakdown of an early full repayment.
type ForeclosureQuote struct {
	RemainingPrincipal engine.Money
	RemainingInterest  engine.Money
	Charges            engine.Money
	Gst                engine.Money
	Total              engine.Money
}

// QuoteForeclosure computes the foreclosure breakdown without mutating
// the loan. chargePct applies to the remaining principal; gstPct applies
// to the charges.
func (l *Loan) QuoteForeclosure(chargePct, gstPct float64) ForeclosureQuote {
	principal := l.RemainingPrincipal()
	interest := l.RemainingInterest()
	charges := principal.Percent(chargePct).Round2()
	gst := charges.Percent(gstPct).Round2()
	return ForeclosureQuote{
		RemainingPrincipal: principal,
		RemainingInterest:  interest,
		Charges:            charges,
		Gst:                gst,
		Total:              principal.Add(interest).Add(charges).Add(gst).Round2(),
	}
}

// Foreclose freezes the loan at the quoted amount and returns the debit.
// Unpaid installments become Skipped; no further EMIs are generated or
// payable. A second call is an IllegalTransition and leaves every
// foreclosure field unchanged.
func (l *Loan) Foreclose(actor string, chargePct, gstPct float64, now time.Time) (engine.Effect, error) {
	if l.Status != StatusApproved {
		return engine.Effect{}, l.illegal("foreclose")
	}
	quote := l.QuoteForeclosure(chargePct, gstPct)

	l.Status = StatusForeclosed
	l.ForeclosedBy = &actor
	l.ForeclosedAt = &now
	l.ForeclosureAmount = &quote.Total
	l.ForeclosureCharge = &quote.Charges
	l.ForeclosureGst = &quote.Gst
	for i := range l.Schedule {
		if l.Schedule[i].Status == EmiPending || l.Schedule[i].Status == EmiOverdue {
			l.Schedule[i].Status = EmiSkipped
		}
	}

	return engine.Effect{
		AccountNumber:  l.AccountNumber,
		Delta:          quote.Total.Neg(),
		Kind:           engine.KindLoanForeclosure,
		ReferenceID:    l.ID,
		Description:    "loan " + l.ID + " foreclosed",
		Actor:          actor,
		IdempotencyKey: "loan-foreclose-" + l.ID,
	}, nil
}
