package loan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
)

var t0 = time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

// =============================================================================
// SCHEDULE GENERATION
// =============================================================================

func TestGenerate_ReducingBalance(t *testing.T) {
	// GIVEN a 120,000 principal at 12% over 12 months
	principal := engine.MustMoney("120000.00")
	schedule, err := loan.Generate(principal, 12.0, 12, t0)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	installment := loan.Installment(principal, 12.0, 12)

	prev := principal
	for i, emi := range schedule {
		// THEN every row carries the level installment, except the last
		// which absorbs the rounding residue
		if i < len(schedule)-1 {
			assert.True(t, emi.TotalAmount.Equal(installment), "EMI %d total", emi.EmiNumber)
		} else {
			assert.True(t, emi.TotalAmount.WithinTolerance(installment, 0.05), "final EMI total")
		}

		// AND components sum to the total
		sum := emi.PrincipalComponent.Add(emi.InterestComponent).Round2()
		assert.True(t, sum.Equal(emi.TotalAmount), "EMI %d components %s != %s", emi.EmiNumber, sum, emi.TotalAmount)

		// AND the remaining principal strictly decreases
		assert.True(t, emi.RemainingPrincipal.LessThan(prev), "EMI %d remaining", emi.EmiNumber)
		prev = emi.RemainingPrincipal

		assert.Equal(t, t0.AddDate(0, emi.EmiNumber, 0), emi.DueDate)
		assert.Equal(t, loan.EmiPending, emi.Status)
	}

	// AND the schedule lands exactly on zero
	assert.Equal(t, "0.00", schedule[len(schedule)-1].RemainingPrincipal.String())
}

func TestGenerate_PrincipalComponentsSumToPrincipal(t *testing.T) {
	principal := engine.MustMoney("350000.00")
	schedule, err := loan.Generate(principal, 9.5, 36, t0)
	require.NoError(t, err)

	sum := engine.ZeroMoney()
	for _, emi := range schedule {
		sum = sum.Add(emi.PrincipalComponent)
	}
	assert.True(t, sum.Round2().Equal(principal), "principal components sum to %s, want %s", sum, principal)
}

func TestGenerate_ZeroRate_SplitsPrincipalEvenly(t *testing.T) {
	schedule, err := loan.Generate(engine.MustMoney("120000.00"), 0, 12, t0)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for _, emi := range schedule {
		assert.Equal(t, "10000.00", emi.TotalAmount.String())
		assert.Equal(t, "0.00", emi.InterestComponent.String())
	}
	assert.Equal(t, "0.00", schedule[11].RemainingPrincipal.String())
}

func TestGenerate_RejectsBadTerms(t *testing.T) {
	var invalid *engine.InvalidAmountError

	_, err := loan.Generate(engine.ZeroMoney(), 12.0, 12, t0)
	require.ErrorAs(t, err, &invalid)

	_, err = loan.Generate(engine.MustMoney("1000.00"), 12.0, 0, t0)
	require.ErrorAs(t, err, &invalid)

	_, err = loan.Generate(engine.MustMoney("1000.00"), -1.0, 12, t0)
	require.ErrorAs(t, err, &invalid)
}

// =============================================================================
// DUE PREDICATE
// =============================================================================

func TestEmiPayment_IsDue(t *testing.T) {
	schedule, err := loan.Generate(engine.MustMoney("12000.00"), 10.0, 3, t0)
	require.NoError(t, err)

	first := schedule[0]
	assert.False(t, first.IsDue(first.DueDate), "not due exactly at the due date")
	assert.True(t, first.IsDue(first.DueDate.Add(time.Second)))

	first.Status = loan.EmiPaid
	assert.False(t, first.IsDue(first.DueDate.Add(24*time.Hour)), "paid installments are never due")
}
