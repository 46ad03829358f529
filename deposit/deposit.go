/*
Package deposit implements the fixed deposit state machine and its
monthly interest accrual.

STATES:
  PENDING -> {APPROVED, REJECTED}
  APPROVED -> ACTIVE               (placement debit of the principal)
  ACTIVE -> MATURED                (tenure served or maturity date reached)
  ACTIVE -> PREMATURE_CLOSED       (penalty-adjusted payout)

ACCRUAL:
  The FD carries a running accrual ledger (monthsInterestCredited,
  totalInterestCredited, lastInterestCreditDate) separate from the
  terminal status. Each cycle, iff the FD is ACTIVE and a full month has
  elapsed since the last credit, one month of interest
  (principal x rate/12/100) is added to the accrual ledger. The sweep is
  idempotent: running it twice in the same period credits nothing extra
  because lastInterestCreditDate has already advanced.

RATE:
  When the rate is not explicitly supplied it is derived from tenure (see
  rate.go). An explicitly assigned nonzero rate is never overwritten.
*/
package deposit

import (
	"fmt"
	"time"

	"github.com/atlasbank/instrument-engine/engine"
)

// =============================================================================
// STATES
// =============================================================================

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusActive          Status = "ACTIVE"
	StatusMatured         Status = "MATURED"
	StatusClosed          Status = "CLOSED"
	StatusPrematureClosed Status = "PREMATURE_CLOSED"
)

// =============================================================================
// FIXED DEPOSIT
// =============================================================================

type FixedDeposit struct {
	ID            string
	AccountNumber string
	Principal     engine.Money
	TenureMonths  int
	InterestRate  float64 // annual %; zero means "derive from tenure"
	Status        Status

	ApprovedBy *string
	ApprovedAt *time.Time

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string

	StartDate    *time.Time
	MaturityDate *time.Time

	// Running accrual ledger, distinct from the terminal status.
	MonthsInterestCredited int
	TotalInterestCredited  engine.Money
	LastInterestCreditDate *time.Time

	ClosedBy *string
	ClosedAt *time.Time

	CreatedAt time.Time
}

// New creates a PENDING deposit. A zero interest rate is derived from
// tenure; an explicit nonzero rate is kept as supplied.
func New(id, accountNumber string, principal engine.Money, tenureMonths int, interestRate float64, now time.Time) (*FixedDeposit, error) {
	if !principal.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "deposit principal must be positive"}
	}
	if tenureMonths <= 0 {
		return nil, &engine.InvalidAmountError{Reason: "deposit tenure must be at least one month"}
	}
	fd := &FixedDeposit{
		ID:                    id,
		AccountNumber:         accountNumber,
		Principal:             principal.Round2(),
		TenureMonths:          tenureMonths,
		InterestRate:          interestRate,
		Status:                StatusPending,
		TotalInterestCredited: engine.ZeroMoney(),
		CreatedAt:             now,
	}
	fd.EnsureRate()
	return fd, nil
}

// EnsureRate derives the interest rate from tenure when none was
// explicitly set. Idempotent once set: a nonzero rate is never
// recomputed.
func (fd *FixedDeposit) EnsureRate() {
	if fd.InterestRate == 0 {
		fd.InterestRate = RateForTenure(fd.TenureMonths)
	}
}

// UpdateTerms changes principal/tenure on a PENDING deposit. The rate is
// re-derived only when it is zero.
func (fd *FixedDeposit) UpdateTerms(principal engine.Money, tenureMonths int, interestRate float64) error {
	if fd.Status != StatusPending {
		return fd.illegal("update terms")
	}
	if !principal.IsPositive() || tenureMonths <= 0 {
		return &engine.InvalidAmountError{Reason: "deposit terms must be positive"}
	}
	fd.Principal = principal.Round2()
	fd.TenureMonths = tenureMonths
	fd.InterestRate = interestRate
	fd.EnsureRate()
	return nil
}

func (fd *FixedDeposit) Guard() engine.StatusGuard {
	return engine.StatusGuard{Status: string(fd.Status)}
}

func (fd *FixedDeposit) illegal(requested string) error {
	return &engine.IllegalTransitionError{
		Instrument: "fixed_deposit",
		ID:         fd.ID,
		From:       string(fd.Status),
		Requested:  requested,
	}
}

// =============================================================================
// APPROVAL
// =============================================================================

func (fd *FixedDeposit) Approve(actor string, now time.Time) error {
	if fd.Status != StatusPending {
		return fd.illegal("approve")
	}
	fd.Status = StatusApproved
	fd.ApprovedBy = &actor
	fd.ApprovedAt = &now
	return nil
}

func (fd *FixedDeposit) Reject(actor, reason string, now time.Time) error {
	if fd.Status != StatusPending {
		return fd.illegal("reject")
	}
	fd.Status = StatusRejected
	fd.RejectedBy = &actor
	fd.RejectedAt = &now
	fd.RejectionReason = &reason
	return nil
}

// Activate places the deposit: the principal is debited from the owning
// account and the maturity clock starts.
func (fd *FixedDeposit) Activate(actor string, now time.Time) (engine.Effect, error) {
	if fd.Status != StatusApproved {
		return engine.Effect{}, fd.illegal("activate")
	}
	maturity := now.AddDate(0, fd.TenureMonths, 0)
	fd.Status = StatusActive
	fd.StartDate = &now
	fd.MaturityDate = &maturity
	fd.LastInterestCreditDate = &now
	return engine.Effect{
		AccountNumber:  fd.AccountNumber,
		Delta:          fd.Principal.Neg(),
		Kind:           engine.KindFdPlacement,
		ReferenceID:    fd.ID,
		Description:    "fixed deposit " + fd.ID + " placed",
		Actor:          actor,
		IdempotencyKey: "fd-place-" + fd.ID,
	}, nil
}

// =============================================================================
// MONTHLY ACCRUAL
// =============================================================================

// MonthlyInterest is one month of interest: principal x rate/12/100.
func (fd *FixedDeposit) MonthlyInterest() engine.Money {
	return fd.Principal.Percent(fd.InterestRate).Div(twelve).Round2()
}

// CreditMonthlyInterest advances the accrual ledger by one month iff the
// deposit is ACTIVE and a full month has elapsed since the last credit.
// It returns true when a month was credited and false when nothing is
// due yet; a non-ACTIVE deposit is an IllegalTransition. Callers loop
// until false to catch up after downtime.
func (fd *FixedDeposit) CreditMonthlyInterest(now time.Time) (bool, error) {
	if fd.Status != StatusActive {
		return false, fd.illegal("credit monthly interest")
	}
	if fd.MonthsInterestCredited >= fd.TenureMonths {
		return false, nil
	}
	last := fd.CreatedAt
	if fd.LastInterestCreditDate != nil {
		last = *fd.LastInterestCreditDate
	}
	if engine.MonthsElapsed(last, now) < 1 {
		return false, nil
	}

	fd.TotalInterestCredited = fd.TotalInterestCredited.Add(fd.MonthlyInterest())
	fd.MonthsInterestCredited++
	next := last.AddDate(0, 1, 0)
	fd.LastInterestCreditDate = &next
	return true, nil
}

// IsMature reports whether the maturity transition is due: the full
// tenure has been credited, or the maturity date has been reached.
func (fd *FixedDeposit) IsMature(now time.Time) bool {
	if fd.Status != StatusActive {
		return false
	}
	if fd.MonthsInterestCredited >= fd.TenureMonths {
		return true
	}
	return fd.MaturityDate != nil && !now.Before(*fd.MaturityDate)
}

// Mature pays out principal plus accrued interest and closes the clock.
func (fd *FixedDeposit) Mature(now time.Time) (engine.Effect, error) {
	if !fd.IsMature(now) {
		return engine.Effect{}, fd.illegal("mature")
	}
	fd.Status = StatusMatured
	fd.ClosedAt = &now
	payout := fd.Principal.Add(fd.TotalInterestCredited).Round2()
	return engine.Effect{
		AccountNumber:  fd.AccountNumber,
		Delta:          payout,
		Kind:           engine.KindFdMaturity,
		ReferenceID:    fd.ID,
		Description:    fmt.Sprintf("fixed deposit %s matured after %d months", fd.ID, fd.MonthsInterestCredited),
		IdempotencyKey: "fd-mature-" + fd.ID,
	}, nil
}

// =============================================================================
// PREMATURE CLOSURE
// =============================================================================

// ClosePrematurely ends an ACTIVE deposit before maturity. The payout is
// principal + accrued interest so far - penalty, where the penalty is
// penaltyPct of the principal.
func (fd *FixedDeposit) ClosePrematurely(actor string, penaltyPct float64, now time.Time) (engine.Effect, error) {
	if fd.Status != StatusActive {
		return engine.Effect{}, fd.illegal("close prematurely")
	}
	if penaltyPct < 0 {
		return engine.Effect{}, &engine.InvalidAmountError{Reason: "penalty percentage must not be negative"}
	}
	penalty := fd.Principal.Percent(penaltyPct).Round2()
	payout := fd.Principal.Add(fd.TotalInterestCredited).Sub(penalty).Round2()
	if payout.IsNegative() {
		return engine.Effect{}, &engine.InvalidAmountError{Reason: "premature closure payout would be negative"}
	}

	fd.Status = StatusPrematureClosed
	fd.ClosedBy = &actor
	fd.ClosedAt = &now
	return engine.Effect{
		AccountNumber:  fd.AccountNumber,
		Delta:          payout,
		Kind:           engine.KindFdPrematureClose,
		ReferenceID:    fd.ID,
		Description:    fmt.Sprintf("fixed deposit %s closed early (penalty %s)", fd.ID, penalty),
		Actor:          actor,
		IdempotencyKey: "fd-close-" + fd.ID,
	}, nil
}
