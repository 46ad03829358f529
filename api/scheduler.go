/*
scheduler.go - Background sweep scheduler

PURPOSE:
  Periodically runs the engine's idempotent sweeps:
  - FD accrual: credits due monthly interest and matures deposits
  - EMI overdue: flips past-due pending installments to Overdue

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps are idempotent, so overlapping manual/scheduled runs are safe
  - One failing instrument never blocks the rest of the batch

USAGE:
  scheduler := NewSweepScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - bank/sweep.go: The sweep implementations
  - handlers.go: Manual sweep endpoints under /api/admin
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlasbank/instrument-engine/bank"
)

// SweepScheduler runs the periodic sweeps.
type SweepScheduler struct {
	Service       *bank.Service
	CheckInterval time.Duration
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSweepScheduler(svc *bank.Service, log *zap.Logger) *SweepScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.log.Info("sweep scheduler disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)
	go ss.run()

	ss.log.Info("sweep scheduler started", zap.Duration("interval", ss.CheckInterval))
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker == nil {
		return
	}
	ss.ticker.Stop()
	close(ss.stop)
	ss.wg.Wait()
	ss.ticker = nil
	ss.log.Info("sweep scheduler stopped")
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Immediate first pass so a restart catches up right away.
	ss.RunOnce(context.Background())

	for {
		select {
		case <-ss.ticker.C:
			ss.RunOnce(context.Background())
		case <-ss.stop:
			return
		}
	}
}

// RunOnce executes both sweeps a single time.
func (ss *SweepScheduler) RunOnce(ctx context.Context) {
	if report, err := ss.Service.RunFdAccrualSweep(ctx); err != nil {
		ss.log.Error("fd accrual sweep failed", zap.Error(err))
	} else if report.Changed > 0 || report.Errors > 0 {
		ss.log.Info("fd accrual sweep done",
			zap.Int("scanned", report.Scanned),
			zap.Int("changed", report.Changed),
			zap.Int("errors", report.Errors))
	}

	if report, err := ss.Service.RunEmiOverdueSweep(ctx); err != nil {
		ss.log.Error("emi overdue sweep failed", zap.Error(err))
	} else if report.Changed > 0 || report.Errors > 0 {
		ss.log.Info("emi overdue sweep done",
			zap.Int("scanned", report.Scanned),
			zap.Int("changed", report.Changed),
			zap.Int("errors", report.Errors))
	}
}
