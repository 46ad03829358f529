package loan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
)

// approvedLoan builds a zero-rate loan so the schedule math stays
// obvious: 120,000 over 12 months is twelve 10,000 installments.
func approvedLoan(t *testing.T) *loan.Loan {
	t.Helper()
	l, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 0, 12, t0)
	require.NoError(t, err)
	_, err = l.Approve("boss", t0)
	require.NoError(t, err)
	return l
}

// =============================================================================
// APPLICATION AND APPROVAL
// =============================================================================

func TestLoan_New_StartsPending(t *testing.T) {
	l, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 12.0, 12, t0)
	require.NoError(t, err)

	assert.Equal(t, loan.StatusPending, l.Status)
	assert.Empty(t, l.Schedule, "schedule is generated at approval, not application")
}

func TestLoan_Approve_GeneratesScheduleAndDisburses(t *testing.T) {
	l, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 12.0, 12, t0)
	require.NoError(t, err)

	// WHEN the loan is approved
	eff, err := l.Approve("boss", t0)
	require.NoError(t, err)

	// THEN the schedule exists and the principal is credited
	assert.Equal(t, loan.StatusApproved, l.Status)
	require.Len(t, l.Schedule, 12)
	assert.Equal(t, "120000.00", eff.Delta.String())
	assert.Equal(t, engine.KindLoanDisbursal, eff.Kind)
	assert.Equal(t, "loan-disburse-loan-1", eff.IdempotencyKey)

	// AND a second approval is illegal
	_, err = l.Approve("boss", t0)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestLoan_Reject(t *testing.T) {
	l, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 12.0, 12, t0)
	require.NoError(t, err)

	require.NoError(t, l.Reject("boss", "income not verifiable", t0))
	assert.Equal(t, loan.StatusRejected, l.Status)
	require.NotNil(t, l.RejectionReason)
	assert.Equal(t, "income not verifiable", *l.RejectionReason)

	_, err = l.Approve("boss", t0)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

// =============================================================================
// EMI PAYMENT
// =============================================================================

func TestLoan_PayEmi_InOrder(t *testing.T) {
	l := approvedLoan(t)

	eff, err := l.PayEmi(1, "alice", t0.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "-10000.00", eff.Delta.String())
	assert.Equal(t, engine.KindEmiPayment, eff.Kind)
	assert.Equal(t, "loan-loan-1-emi-1", eff.IdempotencyKey)
	assert.Equal(t, loan.EmiPaid, l.Schedule[0].Status)

	next := l.NextPayable()
	require.NotNil(t, next)
	assert.Equal(t, 2, next.EmiNumber)
}

func TestLoan_PayEmi_OutOfOrder_Illegal(t *testing.T) {
	l := approvedLoan(t)

	// EMI 2 before EMI 1
	_, err := l.PayEmi(2, "alice", t0.AddDate(0, 1, 0))
	require.ErrorIs(t, err, engine.ErrIllegalTransition)

	// paying EMI 1 twice lands out of order as well
	_, err = l.PayEmi(1, "alice", t0.AddDate(0, 1, 0))
	require.NoError(t, err)
	_, err = l.PayEmi(1, "alice", t0.AddDate(0, 1, 0))
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestLoan_PayEmi_LastInstallmentClosesLoan(t *testing.T) {
	l := approvedLoan(t)

	for n := 1; n <= 12; n++ {
		_, err := l.PayEmi(n, "alice", t0.AddDate(0, n, 0))
		require.NoError(t, err)
	}

	assert.Equal(t, loan.StatusPaid, l.Status)
	require.NotNil(t, l.PaidAt)
	assert.Nil(t, l.NextPayable())

	_, err := l.PayEmi(12, "alice", t0.AddDate(0, 13, 0))
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestLoan_MarkOverdue_Idempotent(t *testing.T) {
	l := approvedLoan(t)

	// two installments past due
	now := t0.AddDate(0, 2, 0).Add(24 * time.Hour)
	assert.Equal(t, 2, l.MarkOverdue(now))
	assert.Equal(t, loan.EmiOverdue, l.Schedule[0].Status)
	assert.Equal(t, loan.EmiOverdue, l.Schedule[1].Status)
	assert.Equal(t, loan.EmiPending, l.Schedule[2].Status)

	// a second sweep in the same period marks nothing
	assert.Equal(t, 0, l.MarkOverdue(now))

	// overdue installments stay payable, lowest number first
	_, err := l.PayEmi(1, "alice", now)
	require.NoError(t, err)
}

// =============================================================================
// FORECLOSURE
// =============================================================================

func TestLoan_QuoteForeclosure(t *testing.T) {
	l := approvedLoan(t)
	for n := 1; n <= 2; n++ {
		_, err := l.PayEmi(n, "alice", t0.AddDate(0, n, 0))
		require.NoError(t, err)
	}

	// 100,000 outstanding, 4% charge, 18% GST on the charge
	quote := l.QuoteForeclosure(4.0, 18.0)
	assert.Equal(t, "100000.00", quote.RemainingPrincipal.String())
	assert.Equal(t, "0.00", quote.RemainingInterest.String())
	assert.Equal(t, "4000.00", quote.Charges.String())
	assert.Equal(t, "720.00", quote.Gst.String())
	assert.Equal(t, "104720.00", quote.Total.String())
}

func TestLoan_Foreclose_FreezesSchedule(t *testing.T) {
	l := approvedLoan(t)
	_, err := l.PayEmi(1, "alice", t0.AddDate(0, 1, 0))
	require.NoError(t, err)

	eff, err := l.Foreclose("alice", 4.0, 18.0, t0.AddDate(0, 2, 0))
	require.NoError(t, err)

	assert.Equal(t, loan.StatusForeclosed, l.Status)
	require.NotNil(t, l.ForeclosureAmount)
	assert.Equal(t, "115192.00", l.ForeclosureAmount.String()) // 110000 + 4400 + 792
	assert.Equal(t, "-115192.00", eff.Delta.String())
	assert.Equal(t, engine.KindLoanForeclosure, eff.Kind)

	// unpaid installments are frozen, not payable
	for _, emi := range l.Schedule[1:] {
		assert.Equal(t, loan.EmiSkipped, emi.Status)
	}
	assert.Equal(t, loan.EmiPaid, l.Schedule[0].Status)
	_, err = l.PayEmi(2, "alice", t0.AddDate(0, 2, 0))
	require.ErrorIs(t, err, engine.ErrIllegalTransition)

	// AND a second foreclosure changes nothing
	before := *l.ForeclosureAmount
	_, err = l.Foreclose("alice", 4.0, 18.0, t0.AddDate(0, 3, 0))
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
	assert.True(t, l.ForeclosureAmount.Equal(before))
}

func TestLoan_Foreclose_RequiresApproved(t *testing.T) {
	l, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 0, 12, t0)
	require.NoError(t, err)

	_, err = l.Foreclose("alice", 4.0, 18.0, t0)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

// =============================================================================
// GOLD LOANS
// =============================================================================

func TestGoldLoan_New_PrincipalFromDeclaredCollateral(t *testing.T) {
	// 100g at 6,000/g is 600,000; at 75% LTV the loan is 450,000
	l, err := loan.NewGold("loan-g1", "acc-1", 100, engine.MustMoney("6000.00"), 9.0, 24, t0)
	require.NoError(t, err)

	assert.Equal(t, loan.KindGold, l.Kind)
	require.NotNil(t, l.Collateral)
	assert.Equal(t, "600000.00", l.Collateral.GoldValue.String())
	assert.Equal(t, "450000.00", l.Principal.String())
}

func TestGoldLoan_VerifyCollateral_RebasesPrincipal(t *testing.T) {
	l, err := loan.NewGold("loan-g1", "acc-1", 100, engine.MustMoney("6000.00"), 9.0, 24, t0)
	require.NoError(t, err)

	// the assayer finds 90g at a lower rate
	require.NoError(t, l.VerifyCollateral("assayer", 90, engine.MustMoney("5900.00"), t0))

	// 90 x 5900 x 0.75 = 398,250
	assert.Equal(t, "398250.00", l.Principal.String())
	require.NotNil(t, l.Collateral.VerifiedBy)
	assert.Equal(t, "assayer", *l.Collateral.VerifiedBy)

	// the declared figures are kept for audit
	assert.Equal(t, float64(100), l.Collateral.GoldGrams)
	assert.Equal(t, "600000.00", l.Collateral.GoldValue.String())

	// disbursal follows the verified principal
	eff, err := l.Approve("boss", t0)
	require.NoError(t, err)
	assert.Equal(t, "398250.00", eff.Delta.String())
}

func TestGoldLoan_VerifyCollateral_OnlyPendingGoldLoans(t *testing.T) {
	personal, err := loan.New("loan-1", "acc-1", loan.KindPersonal, engine.MustMoney("120000.00"), 0, 12, t0)
	require.NoError(t, err)
	err = personal.VerifyCollateral("assayer", 10, engine.MustMoney("6000.00"), t0)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)

	gold, err := loan.NewGold("loan-g1", "acc-1", 100, engine.MustMoney("6000.00"), 9.0, 24, t0)
	require.NoError(t, err)
	_, err = gold.Approve("boss", t0)
	require.NoError(t, err)
	err = gold.VerifyCollateral("assayer", 90, engine.MustMoney("5900.00"), t0)
	require.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestGoldCollateral_RejectsBadFigures(t *testing.T) {
	var invalid *engine.InvalidAmountError

	_, err := loan.NewGoldCollateral(0, engine.MustMoney("6000.00"))
	require.ErrorAs(t, err, &invalid)

	_, err = loan.NewGoldCollateral(100, engine.ZeroMoney())
	require.ErrorAs(t, err, &invalid)

	_, err = loan.NewGold("loan-g1", "acc-1", -5, engine.MustMoney("6000.00"), 9.0, 24, t0)
	require.ErrorAs(t, err, &invalid)
}
