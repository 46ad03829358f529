/*
Package bank orchestrates the instrument state machines against the
ledger.

PURPOSE:
  The Service is the engine's single entry point for lifecycle
  operations. Each operation:

    1. loads the instrument inside a store transaction,
    2. captures its status guard,
    3. runs the pure state-machine transition (validation + accrual
       computation, no I/O),
    4. persists the instrument with the guard (optimistic CAS),
    5. applies each ledger effect: one balance delta + one transaction
       record per account touched.

  Every step runs inside TxStore.WithTx: a failure at any point leaves
  the instrument status and the account balance at their pre-transition
  values. That atomicity is the core correctness contract.

RETRY:
  ConcurrentModification is retried once by re-reading state (the only
  class of failure where a retry can help). Precondition failures are
  returned to the caller untouched.

SEE ALSO:
  - store.go: the guarded persistence contracts
  - sweep.go: idempotent scheduled sweeps
*/
package bank

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Params are the configured percentages the engine applies.
type Params struct {
	FdPenaltyPct         float64 // premature FD closure, % of principal
	ForeclosureChargePct float64 // loan foreclosure charges, % of remaining principal
	GstPct               float64 // GST applied to foreclosure charges
}

func DefaultParams() Params {
	return Params{
		FdPenaltyPct:         1.0,
		ForeclosureChargePct: 4.0,
		GstPct:               18.0,
	}
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store  TxStore
	IDs    *engine.IDGenerator
	Clock  engine.Clock
	Params Params
	Log    *zap.Logger
}

func NewService(store TxStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:  store,
		IDs:    engine.NewIDGenerator(),
		Clock:  engine.SystemClock{},
		Params: DefaultParams(),
		Log:    log,
	}
}

// withRetry runs fn, retrying exactly once when the optimistic guard
// lost the race. All other failures pass through.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err != nil && engine.IsRetryable(err) {
		s.Log.Debug("optimistic guard lost race, retrying once")
		err = fn()
	}
	return err
}

// applyEffect turns one Effect into exactly one balance delta and one
// transaction record. Must be called inside a unit of work.
func (s *Service) applyEffect(ctx context.Context, tx Store, eff engine.Effect, now time.Time) (*engine.TransactionRecord, error) {
	before, after, err := tx.ApplyDelta(ctx, eff.AccountNumber, eff.Delta)
	if err != nil {
		return nil, err
	}
	rec := engine.TransactionRecord{
		ID:             s.IDs.NextWithPrefix("txn"),
		AccountNumber:  eff.AccountNumber,
		Amount:         eff.Delta.Round2(),
		Kind:           eff.Kind,
		ReferenceID:    eff.ReferenceID,
		Description:    eff.Description,
		BalanceBefore:  before,
		BalanceAfter:   after,
		Actor:          eff.Actor,
		IdempotencyKey: eff.IdempotencyKey,
		CreatedAt:      now,
	}
	if err := tx.AppendTransaction(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Service) OpenAccount(ctx context.Context, holderID string, openingBalance engine.Money) (*engine.Account, error) {
	if openingBalance.IsNegative() {
		return nil, &engine.InvalidAmountError{Reason: "opening balance must not be negative"}
	}
	a := &engine.Account{
		Number:    s.IDs.NextWithPrefix("acc"),
		HolderID:  holderID,
		Balance:   openingBalance.Round2(),
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Store.PutAccount(ctx, a); err != nil {
		return nil, err
	}
	s.Log.Info("account opened", zap.String("account", a.Number), zap.String("holder", holderID))
	return a, nil
}

// =============================================================================
// CHEQUES
// =============================================================================

func (s *Service) IssueCheque(ctx context.Context, accountNumber string, amount engine.Money) (*cheque.Cheque, error) {
	if _, err := s.Store.Account(ctx, accountNumber); err != nil {
		return nil, err
	}
	c, err := cheque.New(s.IDs.NextWithPrefix("chq"), accountNumber, amount, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutCheque(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// chequeTransition loads, transitions, and CAS-saves a cheque atomically.
func (s *Service) chequeTransition(ctx context.Context, number string, op func(*cheque.Cheque) error) (*cheque.Cheque, error) {
	var out *cheque.Cheque
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			c, err := tx.Cheque(ctx, number)
			if err != nil {
				return err
			}
			guard := c.Guard()
			if err := op(c); err != nil {
				return err
			}
			if err := tx.SaveCheque(ctx, c, guard); err != nil {
				return err
			}
			out = c
			return nil
		})
	})
	return out, err
}

func (s *Service) RequestChequeDraw(ctx context.Context, number, actor string) (*cheque.Cheque, error) {
	return s.chequeTransition(ctx, number, func(c *cheque.Cheque) error {
		return c.RequestDraw(actor, s.Clock.Now())
	})
}

func (s *Service) ApproveChequeDraw(ctx context.Context, number, actor string) (*cheque.Cheque, error) {
	return s.chequeTransition(ctx, number, func(c *cheque.Cheque) error {
		return c.ApproveRequest(actor, s.Clock.Now())
	})
}

func (s *Service) RejectChequeDraw(ctx context.Context, number, actor, reason string) (*cheque.Cheque, error) {
	return s.chequeTransition(ctx, number, func(c *cheque.Cheque) error {
		return c.RejectRequest(actor, reason, s.Clock.Now())
	})
}

// DrawCheque marks the cheque DRAWN and debits its amount, atomically.
func (s *Service) DrawCheque(ctx context.Context, number, actor string) (*cheque.Cheque, *engine.TransactionRecord, error) {
	var out *cheque.Cheque
	var rec *engine.TransactionRecord
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			c, err := tx.Cheque(ctx, number)
			if err != nil {
				return err
			}
			guard := c.Guard()
			now := s.Clock.Now()
			eff, err := c.Draw(actor, now)
			if err != nil {
				return err
			}
			if err := tx.SaveCheque(ctx, c, guard); err != nil {
				return err
			}
			r, err := s.applyEffect(ctx, tx, eff, now)
			if err != nil {
				return err
			}
			out, rec = c, r
			return nil
		})
	})
	if err == nil {
		s.Log.Info("cheque drawn",
			zap.String("cheque", number),
			zap.String("actor", actor),
			zap.String("amount", out.Amount.String()))
	}
	return out, rec, err
}

func (s *Service) CancelCheque(ctx context.Context, number, actor, reason string) (*cheque.Cheque, error) {
	return s.chequeTransition(ctx, number, func(c *cheque.Cheque) error {
		return c.Cancel(actor, reason, s.Clock.Now())
	})
}

func (s *Service) BounceCheque(ctx context.Context, number, actor, reason string) (*cheque.Cheque, error) {
	return s.chequeTransition(ctx, number, func(c *cheque.Cheque) error {
		return c.Bounce(actor, reason, s.Clock.Now())
	})
}

// =============================================================================
// TRANSFERS
// =============================================================================

// SubmitTransfer creates a transfer and settles it immediately: both
// legs and the Completed status land in one unit of work.
func (s *Service) SubmitTransfer(ctx context.Context, from, to string, amount engine.Money, transferType transfer.Type) (*transfer.Transfer, error) {
	now := s.Clock.Now()
	t, err := transfer.New(s.IDs.NextWithPrefix("trf"), from, to, amount, transferType, now)
	if err != nil {
		return nil, err
	}
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.Account(ctx, from); err != nil {
			return err
		}
		if _, err := tx.Account(ctx, to); err != nil {
			return err
		}
		effects, err := t.Complete(now)
		if err != nil {
			return err
		}
		if err := tx.PutTransfer(ctx, t); err != nil {
			return err
		}
		for _, eff := range effects {
			if _, err := s.applyEffect(ctx, tx, eff, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CancelTransfer recalls a completed NEFT transfer inside its window,
// reversing both legs atomically. The failure mode distinguishes an
// expired window from a wrong status or wrong rail.
func (s *Service) CancelTransfer(ctx context.Context, id, actor string) (*transfer.Transfer, error) {
	var out *transfer.Transfer
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			t, err := tx.Transfer(ctx, id)
			if err != nil {
				return err
			}
			guard := t.Guard()
			now := s.Clock.Now()
			effects, err := t.Cancel(actor, now)
			if err != nil {
				return err
			}
			if err := tx.SaveTransfer(ctx, t, guard); err != nil {
				return err
			}
			for _, eff := range effects {
				if _, err := s.applyEffect(ctx, tx, eff, now); err != nil {
					return err
				}
			}
			out = t
			return nil
		})
	})
	return out, err
}

// =============================================================================
// FIXED DEPOSITS
// =============================================================================

func (s *Service) OpenFixedDeposit(ctx context.Context, accountNumber string, principal engine.Money, tenureMonths int, interestRate float64) (*deposit.FixedDeposit, error) {
	if _, err := s.Store.Account(ctx, accountNumber); err != nil {
		return nil, err
	}
	fd, err := deposit.New(s.IDs.NextWithPrefix("fd"), accountNumber, principal, tenureMonths, interestRate, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutFixedDeposit(ctx, fd); err != nil {
		return nil, err
	}
	return fd, nil
}

func (s *Service) fdTransition(ctx context.Context, id string, op func(*deposit.FixedDeposit) (*engine.Effect, error)) (*deposit.FixedDeposit, error) {
	var out *deposit.FixedDeposit
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			fd, err := tx.FixedDeposit(ctx, id)
			if err != nil {
				return err
			}
			guard := fd.Guard()
			eff, err := op(fd)
			if err != nil {
				return err
			}
			if err := tx.SaveFixedDeposit(ctx, fd, guard); err != nil {
				return err
			}
			if eff != nil {
				if _, err := s.applyEffect(ctx, tx, *eff, s.Clock.Now()); err != nil {
					return err
				}
			}
			out = fd
			return nil
		})
	})
	return out, err
}

func (s *Service) ApproveFixedDeposit(ctx context.Context, id, actor string) (*deposit.FixedDeposit, error) {
	return s.fdTransition(ctx, id, func(fd *deposit.FixedDeposit) (*engine.Effect, error) {
		return nil, fd.Approve(actor, s.Clock.Now())
	})
}

func (s *Service) RejectFixedDeposit(ctx context.Context, id, actor, reason string) (*deposit.FixedDeposit, error) {
	return s.fdTransition(ctx, id, func(fd *deposit.FixedDeposit) (*engine.Effect, error) {
		return nil, fd.Reject(actor, reason, s.Clock.Now())
	})
}

// ActivateFixedDeposit places an approved deposit, debiting the
// principal from the owning account.
func (s *Service) ActivateFixedDeposit(ctx context.Context, id, actor string) (*deposit.FixedDeposit, error) {
	return s.fdTransition(ctx, id, func(fd *deposit.FixedDeposit) (*engine.Effect, error) {
		eff, err := fd.Activate(actor, s.Clock.Now())
		if err != nil {
			return nil, err
		}
		return &eff, nil
	})
}

// CreditFdInterest catches the deposit's accrual ledger up to now,
// crediting one month per elapsed cycle, then applies the maturity
// payout if the deposit has served its tenure. Idempotent: a second run
// in the same period credits nothing.
func (s *Service) CreditFdInterest(ctx context.Context, id string) (*deposit.FixedDeposit, int, error) {
	credited := 0
	var out *deposit.FixedDeposit
	err := s.withRetry(ctx, func() error {
		credited = 0
		return s.Store.WithTx(ctx, func(tx Store) error {
			fd, err := tx.FixedDeposit(ctx, id)
			if err != nil {
				return err
			}
			guard := fd.Guard()
			now := s.Clock.Now()
			for {
				ok, err := fd.CreditMonthlyInterest(now)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				credited++
			}
			var maturityEffect *engine.Effect
			if fd.IsMature(now) {
				eff, err := fd.Mature(now)
				if err != nil {
					return err
				}
				maturityEffect = &eff
			}
			if credited == 0 && maturityEffect == nil {
				out = fd
				return nil // nothing due; leave the row untouched
			}
			if err := tx.SaveFixedDeposit(ctx, fd, guard); err != nil {
				return err
			}
			if maturityEffect != nil {
				if _, err := s.applyEffect(ctx, tx, *maturityEffect, now); err != nil {
					return err
				}
			}
			out = fd
			return nil
		})
	})
	return out, credited, err
}

// CloseFdPrematurely ends an active deposit at the penalty-adjusted
// payout.
func (s *Service) CloseFdPrematurely(ctx context.Context, id, actor string) (*deposit.FixedDeposit, error) {
	return s.fdTransition(ctx, id, func(fd *deposit.FixedDeposit) (*engine.Effect, error) {
		eff, err := fd.ClosePrematurely(actor, s.Params.FdPenaltyPct, s.Clock.Now())
		if err != nil {
			return nil, err
		}
		return &eff, nil
	})
}

// =============================================================================
// LOANS
// =============================================================================

func (s *Service) ApplyForLoan(ctx context.Context, accountNumber string, kind loan.Kind, principal engine.Money, annualRatePct float64, tenureMonths int) (*loan.Loan, error) {
	if _, err := s.Store.Account(ctx, accountNumber); err != nil {
		return nil, err
	}
	l, err := loan.New(s.IDs.NextWithPrefix("loan"), accountNumber, kind, principal, annualRatePct, tenureMonths, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutLoan(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ApplyForGoldLoan(ctx context.Context, accountNumber string, grams float64, ratePerGram engine.Money, annualRatePct float64, tenureMonths int) (*loan.Loan, error) {
	if _, err := s.Store.Account(ctx, accountNumber); err != nil {
		return nil, err
	}
	l, err := loan.NewGold(s.IDs.NextWithPrefix("gold"), accountNumber, grams, ratePerGram, annualRatePct, tenureMonths, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutLoan(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) loanTransition(ctx context.Context, id string, op func(*loan.Loan) (*engine.Effect, error)) (*loan.Loan, *engine.TransactionRecord, error) {
	var out *loan.Loan
	var rec *engine.TransactionRecord
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			l, err := tx.Loan(ctx, id)
			if err != nil {
				return err
			}
			guard := l.Guard()
			eff, err := op(l)
			if err != nil {
				return err
			}
			var r *engine.TransactionRecord
			if eff != nil {
				r, err = s.applyEffect(ctx, tx, *eff, s.Clock.Now())
				if err != nil {
					return err
				}
			}
			if err := tx.SaveLoan(ctx, l, guard); err != nil {
				return err
			}
			out, rec = l, r
			return nil
		})
	})
	return out, rec, err
}

// VerifyGoldCollateral applies the admin valuation to a pending gold
// loan.
func (s *Service) VerifyGoldCollateral(ctx context.Context, id, actor string, grams float64, ratePerGram engine.Money) (*loan.Loan, error) {
	l, _, err := s.loanTransition(ctx, id, func(l *loan.Loan) (*engine.Effect, error) {
		return nil, l.VerifyCollateral(actor, grams, ratePerGram, s.Clock.Now())
	})
	return l, err
}

// ApproveLoan generates the EMI schedule and disburses the principal.
func (s *Service) ApproveLoan(ctx context.Context, id, actor string) (*loan.Loan, *engine.TransactionRecord, error) {
	return s.loanTransition(ctx, id, func(l *loan.Loan) (*engine.Effect, error) {
		eff, err := l.Approve(actor, s.Clock.Now())
		if err != nil {
			return nil, err
		}
		return &eff, nil
	})
}

func (s *Service) RejectLoan(ctx context.Context, id, actor, reason string) (*loan.Loan, error) {
	l, _, err := s.loanTransition(ctx, id, func(l *loan.Loan) (*engine.Effect, error) {
		return nil, l.Reject(actor, reason, s.Clock.Now())
	})
	return l, err
}

// PayEmi pays the given installment, debiting its total amount and
// recording the balance before/after on the installment row.
func (s *Service) PayEmi(ctx context.Context, id string, emiNumber int, actor string) (*loan.Loan, *engine.TransactionRecord, error) {
	var out *loan.Loan
	var rec *engine.TransactionRecord
	err := s.withRetry(ctx, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			l, err := tx.Loan(ctx, id)
			if err != nil {
				return err
			}
			guard := l.Guard()
			now := s.Clock.Now()
			eff, err := l.PayEmi(emiNumber, actor, now)
			if err != nil {
				return err
			}
			r, err := s.applyEffect(ctx, tx, eff, now)
			if err != nil {
				return err
			}
			l.RecordEmiBalances(emiNumber, r.BalanceBefore, r.BalanceAfter)
			if err := tx.SaveLoan(ctx, l, guard); err != nil {
				return err
			}
			out, rec = l, r
			return nil
		})
	})
	return out, rec, err
}

// ForecloseLoan freezes the loan at the quoted amount and debits it.
func (s *Service) ForecloseLoan(ctx context.Context, id, actor string) (*loan.Loan, *engine.TransactionRecord, error) {
	return s.loanTransition(ctx, id, func(l *loan.Loan) (*engine.Effect, error) {
		eff, err := l.Foreclose(actor, s.Params.ForeclosureChargePct, s.Params.GstPct, s.Clock.Now())
		if err != nil {
			return nil, err
		}
		return &eff, nil
	})
}

// QuoteForeclosure returns the foreclosure breakdown without mutating
// anything.
func (s *Service) QuoteForeclosure(ctx context.Context, id string) (*loan.ForeclosureQuote, error) {
	l, err := s.Store.Loan(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != loan.StatusApproved {
		return nil, &engine.IllegalTransitionError{
			Instrument: "loan", ID: id, From: string(l.Status), Requested: "quote foreclosure",
		}
	}
	q := l.QuoteForeclosure(s.Params.ForeclosureChargePct, s.Params.GstPct)
	return &q, nil
}
