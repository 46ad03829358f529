package bank_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasbank/instrument-engine/bank"
	"github.com/atlasbank/instrument-engine/bank/store"
	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

var t0 = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

// newTestService wires the service to the in-memory store and a fixed
// clock so time-driven behavior is deterministic.
func newTestService(t *testing.T) (*bank.Service, *engine.FixedClock) {
	t.Helper()
	clk := engine.NewFixedClock(t0)
	svc := bank.NewService(store.NewTxMemory(), zap.NewNop())
	svc.Clock = clk
	return svc, clk
}

func openAccount(t *testing.T, svc *bank.Service, balance string) *engine.Account {
	t.Helper()
	a, err := svc.OpenAccount(context.Background(), "holder-1", engine.MustMoney(balance))
	require.NoError(t, err)
	return a
}

func balanceOf(t *testing.T, svc *bank.Service, number string) string {
	t.Helper()
	a, err := svc.Store.Account(context.Background(), number)
	require.NoError(t, err)
	return a.Balance.String()
}

// =============================================================================
// CHEQUES
// =============================================================================

func TestService_DrawCheque_DebitsAndRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc := openAccount(t, svc, "50000.00")

	c, err := svc.IssueCheque(ctx, acc.Number, engine.MustMoney("2000.00"))
	require.NoError(t, err)
	_, err = svc.RequestChequeDraw(ctx, c.Number, "payee")
	require.NoError(t, err)
	_, err = svc.ApproveChequeDraw(ctx, c.Number, "boss")
	require.NoError(t, err)

	// WHEN the approved cheque is drawn
	drawn, rec, err := svc.DrawCheque(ctx, c.Number, "payee")
	require.NoError(t, err)

	// THEN the account is debited and the movement is recorded
	assert.Equal(t, cheque.StatusDrawn, drawn.Status)
	assert.Equal(t, "48000.00", balanceOf(t, svc, acc.Number))
	require.NotNil(t, rec)
	assert.Equal(t, engine.KindChequeDraw, rec.Kind)
	assert.Equal(t, "50000.00", rec.BalanceBefore.String())
	assert.Equal(t, "48000.00", rec.BalanceAfter.String())
	assert.Equal(t, "cheque-draw-"+c.Number, rec.IdempotencyKey)
}

func TestService_DrawCheque_InsufficientFunds_RollsBack(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc := openAccount(t, svc, "1000.00")

	c, err := svc.IssueCheque(ctx, acc.Number, engine.MustMoney("2500.00"))
	require.NoError(t, err)
	_, err = svc.RequestChequeDraw(ctx, c.Number, "payee")
	require.NoError(t, err)
	_, err = svc.ApproveChequeDraw(ctx, c.Number, "boss")
	require.NoError(t, err)

	// WHEN the draw fails on the funds guard
	_, _, err = svc.DrawCheque(ctx, c.Number, "payee")
	require.ErrorIs(t, err, engine.ErrInsufficientFunds)

	// THEN the whole unit of work rolled back: status, balance, ledger
	reloaded, err := svc.Store.Cheque(ctx, c.Number)
	require.NoError(t, err)
	assert.Equal(t, cheque.StatusActive, reloaded.Status)
	assert.Equal(t, "1000.00", balanceOf(t, svc, acc.Number))
	records, err := svc.Store.TransactionsByAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.Empty(t, records)

	// AND the draw can be retried once the account is funded
	funded, err := svc.Store.Account(ctx, acc.Number)
	require.NoError(t, err)
	funded.Balance = engine.MustMoney("5000.00")
	require.NoError(t, svc.Store.PutAccount(ctx, funded))
	_, _, err = svc.DrawCheque(ctx, c.Number, "payee")
	require.NoError(t, err)
	assert.Equal(t, "2500.00", balanceOf(t, svc, acc.Number))
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestService_SubmitTransfer_MovesBothBalances(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	from := openAccount(t, svc, "50000.00")
	to := openAccount(t, svc, "10000.00")

	trf, err := svc.SubmitTransfer(ctx, from.Number, to.Number, engine.MustMoney("12000.00"), transfer.TypeNEFT)
	require.NoError(t, err)

	assert.Equal(t, transfer.StatusCompleted, trf.Status)
	assert.Equal(t, "38000.00", balanceOf(t, svc, from.Number))
	assert.Equal(t, "22000.00", balanceOf(t, svc, to.Number))

	outLegs, err := svc.Store.TransactionsByAccount(ctx, from.Number)
	require.NoError(t, err)
	require.Len(t, outLegs, 1)
	assert.Equal(t, engine.KindTransferDebit, outLegs[0].Kind)
	inLegs, err := svc.Store.TransactionsByAccount(ctx, to.Number)
	require.NoError(t, err)
	require.Len(t, inLegs, 1)
	assert.Equal(t, engine.KindTransferCredit, inLegs[0].Kind)
}

func TestService_SubmitTransfer_InsufficientFunds_LeavesBothUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	from := openAccount(t, svc, "5000.00")
	to := openAccount(t, svc, "10000.00")

	_, err := svc.SubmitTransfer(ctx, from.Number, to.Number, engine.MustMoney("12000.00"), transfer.TypeNEFT)
	require.ErrorIs(t, err, engine.ErrInsufficientFunds)

	assert.Equal(t, "5000.00", balanceOf(t, svc, from.Number))
	assert.Equal(t, "10000.00", balanceOf(t, svc, to.Number))
}

func TestService_CancelTransfer_InsideWindow_RestoresBalances(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	from := openAccount(t, svc, "50000.00")
	to := openAccount(t, svc, "10000.00")

	trf, err := svc.SubmitTransfer(ctx, from.Number, to.Number, engine.MustMoney("12000.00"), transfer.TypeNEFT)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	cancelled, err := svc.CancelTransfer(ctx, trf.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, transfer.StatusCancelled, cancelled.Status)
	assert.Equal(t, "50000.00", balanceOf(t, svc, from.Number))
	assert.Equal(t, "10000.00", balanceOf(t, svc, to.Number))
}

func TestService_CancelTransfer_AfterWindow_Fails(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	from := openAccount(t, svc, "50000.00")
	to := openAccount(t, svc, "10000.00")

	trf, err := svc.SubmitTransfer(ctx, from.Number, to.Number, engine.MustMoney("12000.00"), transfer.TypeNEFT)
	require.NoError(t, err)

	clk.Advance(3*time.Minute + time.Second)
	_, err = svc.CancelTransfer(ctx, trf.ID, "alice")
	require.ErrorIs(t, err, engine.ErrWindowExpired)

	// the settled legs stand
	assert.Equal(t, "38000.00", balanceOf(t, svc, from.Number))
	reloaded, err := svc.Store.Transfer(ctx, trf.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusCompleted, reloaded.Status)
}

// =============================================================================
// FIXED DEPOSITS
// =============================================================================

func TestService_FixedDeposit_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	acc := openAccount(t, svc, "200000.00")

	// 3 months at the derived 4% rate: 400 per month
	fd, err := svc.OpenFixedDeposit(ctx, acc.Number, engine.MustMoney("120000.00"), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, fd.InterestRate)

	_, err = svc.ApproveFixedDeposit(ctx, fd.ID, "boss")
	require.NoError(t, err)
	active, err := svc.ActivateFixedDeposit(ctx, fd.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusActive, active.Status)
	assert.Equal(t, "80000.00", balanceOf(t, svc, acc.Number), "placement debits the principal")

	// WHEN three monthly cycles elapse
	clk.Set(t0.AddDate(0, 3, 0).Add(time.Hour))
	matured, credited, err := svc.CreditFdInterest(ctx, fd.ID)
	require.NoError(t, err)

	// THEN the catch-up credits every due month and pays out maturity
	assert.Equal(t, 3, credited)
	assert.Equal(t, deposit.StatusMatured, matured.Status)
	assert.Equal(t, "1200.00", matured.TotalInterestCredited.String())
	assert.Equal(t, "201200.00", balanceOf(t, svc, acc.Number))

	// AND a rerun credits nothing further
	_, credited, err = svc.CreditFdInterest(ctx, fd.ID)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
	assert.Equal(t, 0, credited)
}

func TestService_CloseFdPrematurely(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	acc := openAccount(t, svc, "200000.00")

	fd, err := svc.OpenFixedDeposit(ctx, acc.Number, engine.MustMoney("120000.00"), 12, 0)
	require.NoError(t, err)
	_, err = svc.ApproveFixedDeposit(ctx, fd.ID, "boss")
	require.NoError(t, err)
	_, err = svc.ActivateFixedDeposit(ctx, fd.ID, "alice")
	require.NoError(t, err)

	clk.Set(t0.AddDate(0, 2, 0).Add(time.Hour))
	_, credited, err := svc.CreditFdInterest(ctx, fd.ID)
	require.NoError(t, err)
	require.Equal(t, 2, credited)

	// payout = 120000 + 800 accrued - 1200 penalty (1% of principal)
	closed, err := svc.CloseFdPrematurely(ctx, fd.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusPrematureClosed, closed.Status)
	assert.Equal(t, "199600.00", balanceOf(t, svc, acc.Number))
}

// =============================================================================
// LOANS
// =============================================================================

func TestService_Loan_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	acc := openAccount(t, svc, "10000.00")

	// zero-rate keeps the numbers round: twelve 10,000 installments
	l, err := svc.ApplyForLoan(ctx, acc.Number, loan.KindPersonal, engine.MustMoney("120000.00"), 0, 12)
	require.NoError(t, err)

	approved, rec, err := svc.ApproveLoan(ctx, l.ID, "boss")
	require.NoError(t, err)
	assert.Equal(t, loan.StatusApproved, approved.Status)
	require.NotNil(t, rec)
	assert.Equal(t, engine.KindLoanDisbursal, rec.Kind)
	assert.Equal(t, "130000.00", balanceOf(t, svc, acc.Number))

	// WHEN the first installment is paid
	clk.Set(t0.AddDate(0, 1, 0))
	paid, emiRec, err := svc.PayEmi(ctx, l.ID, 1, "alice")
	require.NoError(t, err)

	assert.Equal(t, "120000.00", balanceOf(t, svc, acc.Number))
	assert.Equal(t, engine.KindEmiPayment, emiRec.Kind)
	// the balances around the debit land on the schedule row
	require.NotNil(t, paid.Schedule[0].BalanceBefore)
	assert.Equal(t, "130000.00", paid.Schedule[0].BalanceBefore.String())
	assert.Equal(t, "120000.00", paid.Schedule[0].BalanceAfter.String())

	// AND foreclosing settles the rest in one debit
	quote, err := svc.QuoteForeclosure(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "115192.00", quote.Total.String()) // 110000 + 4400 + 792

	foreclosed, fRec, err := svc.ForecloseLoan(ctx, l.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, loan.StatusForeclosed, foreclosed.Status)
	assert.Equal(t, engine.KindLoanForeclosure, fRec.Kind)
	assert.Equal(t, "4808.00", balanceOf(t, svc, acc.Number))
}

func TestService_GoldLoan_VerifyThenApprove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	acc := openAccount(t, svc, "0.00")

	l, err := svc.ApplyForGoldLoan(ctx, acc.Number, 100, engine.MustMoney("6000.00"), 9.0, 24)
	require.NoError(t, err)
	assert.Equal(t, "450000.00", l.Principal.String())

	verified, err := svc.VerifyGoldCollateral(ctx, l.ID, "assayer", 90, engine.MustMoney("5900.00"))
	require.NoError(t, err)
	assert.Equal(t, "398250.00", verified.Principal.String())

	_, _, err = svc.ApproveLoan(ctx, l.ID, "boss")
	require.NoError(t, err)
	assert.Equal(t, "398250.00", balanceOf(t, svc, acc.Number))
}

// =============================================================================
// SWEEPS
// =============================================================================

func TestService_RunFdAccrualSweep_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	acc := openAccount(t, svc, "500000.00")

	for i := 0; i < 2; i++ {
		fd, err := svc.OpenFixedDeposit(ctx, acc.Number, engine.MustMoney("120000.00"), 12, 0)
		require.NoError(t, err)
		_, err = svc.ApproveFixedDeposit(ctx, fd.ID, "boss")
		require.NoError(t, err)
		_, err = svc.ActivateFixedDeposit(ctx, fd.ID, "alice")
		require.NoError(t, err)
	}

	clk.Set(t0.AddDate(0, 1, 0).Add(time.Hour))
	report, err := svc.RunFdAccrualSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Changed)
	assert.Equal(t, 0, report.Errors)

	// a second run in the same period changes nothing
	report, err = svc.RunFdAccrualSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 0, report.Changed)
}

func TestService_RunEmiOverdueSweep_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t)
	acc := openAccount(t, svc, "0.00")

	l, err := svc.ApplyForLoan(ctx, acc.Number, loan.KindPersonal, engine.MustMoney("120000.00"), 0, 12)
	require.NoError(t, err)
	_, _, err = svc.ApproveLoan(ctx, l.ID, "boss")
	require.NoError(t, err)

	clk.Set(t0.AddDate(0, 1, 0).Add(24 * time.Hour))
	report, err := svc.RunEmiOverdueSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)

	reloaded, err := svc.Store.Loan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.EmiOverdue, reloaded.Schedule[0].Status)

	report, err = svc.RunEmiOverdueSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Changed)
}
