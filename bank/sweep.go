package bank

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
)

// =============================================================================
// SCHEDULED SWEEPS
// =============================================================================
//
// Sweeps are idempotent: running one twice in the same period changes
// nothing the second time. Each instrument is processed in its own unit
// of work so one bad row never blocks the rest of the batch.

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Scanned int
	Changed int
	Errors  int
}

// RunFdAccrualSweep credits every due monthly interest cycle on active
// deposits and pays out the ones that have reached maturity.
func (s *Service) RunFdAccrualSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	active, err := s.Store.ListFixedDepositsByStatus(ctx, deposit.StatusActive)
	if err != nil {
		return report, err
	}

	for _, fd := range active {
		report.Scanned++
		updated, credited, err := s.CreditFdInterest(ctx, fd.ID)
		if err != nil {
			if errors.Is(err, engine.ErrConcurrentModification) {
				// Another worker got there first; its result stands.
				continue
			}
			report.Errors++
			s.Log.Warn("fd accrual failed",
				zap.String("fd", fd.ID),
				zap.Error(err))
			continue
		}
		if credited > 0 || updated.Status != deposit.StatusActive {
			report.Changed++
			s.Log.Info("fd accrual applied",
				zap.String("fd", fd.ID),
				zap.Int("months_credited", credited),
				zap.String("status", string(updated.Status)))
		}
	}
	return report, nil
}

// RunEmiOverdueSweep flips past-due pending installments on approved
// loans to Overdue.
func (s *Service) RunEmiOverdueSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	approved, err := s.Store.ListLoansByStatus(ctx, loan.StatusApproved)
	if err != nil {
		return report, err
	}

	for _, stale := range approved {
		report.Scanned++
		id := stale.ID
		err := s.withRetry(ctx, func() error {
			return s.Store.WithTx(ctx, func(tx Store) error {
				l, err := tx.Loan(ctx, id)
				if err != nil {
					return err
				}
				guard := l.Guard()
				flipped := l.MarkOverdue(s.Clock.Now())
				if flipped == 0 {
					return nil
				}
				if err := tx.SaveLoan(ctx, l, guard); err != nil {
					return err
				}
				report.Changed++
				s.Log.Info("emi installments marked overdue",
					zap.String("loan", id),
					zap.Int("count", flipped))
				return nil
			})
		})
		if err != nil {
			report.Errors++
			s.Log.Warn("overdue sweep failed", zap.String("loan", id), zap.Error(err))
		}
	}
	return report, nil
}
