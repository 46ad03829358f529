package transfer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/transfer"
)

var t0 = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func completedNEFT(t *testing.T) *transfer.Transfer {
	t.Helper()
	tr, err := transfer.New("trf-1", "acc-1", "acc-2", engine.MustMoney("1000.00"), transfer.TypeNEFT, t0)
	require.NoError(t, err)
	_, err = tr.Complete(t0)
	require.NoError(t, err)
	return tr
}

// =============================================================================
// CREATION AND SETTLEMENT
// =============================================================================

func TestTransfer_New_NEFTCancellable_RTGSNot(t *testing.T) {
	neft, err := transfer.New("trf-1", "acc-1", "acc-2", engine.MustMoney("100.00"), transfer.TypeNEFT, t0)
	require.NoError(t, err)
	assert.True(t, neft.IsCancellable)

	rtgs, err := transfer.New("trf-2", "acc-1", "acc-2", engine.MustMoney("100.00"), transfer.TypeRTGS, t0)
	require.NoError(t, err)
	assert.False(t, rtgs.IsCancellable)
}

func TestTransfer_New_RejectsSameEndpoints(t *testing.T) {
	_, err := transfer.New("trf-1", "acc-1", "acc-1", engine.MustMoney("100.00"), transfer.TypeNEFT, t0)
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
}

func TestTransfer_Complete_ProducesBothLegs(t *testing.T) {
	tr, err := transfer.New("trf-1", "acc-1", "acc-2", engine.MustMoney("1000.00"), transfer.TypeNEFT, t0)
	require.NoError(t, err)

	effects, err := tr.Complete(t0)

	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, "acc-1", effects[0].AccountNumber)
	assert.True(t, effects[0].Delta.Equal(engine.MustMoney("-1000.00")))
	assert.Equal(t, "acc-2", effects[1].AccountNumber)
	assert.True(t, effects[1].Delta.Equal(engine.MustMoney("1000.00")))
	assert.Equal(t, transfer.StatusCompleted, tr.Status)
}

func TestTransfer_Fail_OnlyFromPending(t *testing.T) {
	tr := completedNEFT(t)

	err := tr.Fail("beneficiary bank timeout", t0)

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

// =============================================================================
// CANCELLATION WINDOW
// =============================================================================

func TestTransfer_Cancel_InsideWindow_ReversesBothLegs(t *testing.T) {
	// GIVEN: A completed NEFT transfer created at T
	// WHEN: Cancelled at T+2m59s
	// THEN: Sender is refunded, recipient is recalled

	tr := completedNEFT(t)

	effects, err := tr.Cancel("alice", t0.Add(2*time.Minute+59*time.Second))

	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, "acc-1", effects[0].AccountNumber)
	assert.True(t, effects[0].Delta.Equal(engine.MustMoney("1000.00")), "sender refunded")
	assert.Equal(t, "acc-2", effects[1].AccountNumber)
	assert.True(t, effects[1].Delta.Equal(engine.MustMoney("-1000.00")), "recipient recalled")
	assert.Equal(t, engine.KindTransferReversal, effects[0].Kind)
	assert.Equal(t, transfer.StatusCancelled, tr.Status)
}

func TestTransfer_Cancel_AfterWindow_WindowExpired(t *testing.T) {
	tr := completedNEFT(t)

	_, err := tr.Cancel("alice", t0.Add(3*time.Minute+time.Second))

	assert.ErrorIs(t, err, engine.ErrWindowExpired)
	var weErr *engine.WindowExpiredError
	require.ErrorAs(t, err, &weErr)
	assert.Equal(t, t0.Add(transfer.CancellationWindow), weErr.Deadline)
	assert.Equal(t, transfer.StatusCompleted, tr.Status, "a refused cancel mutates nothing")
}

func TestTransfer_Cancel_ExactlyAtDeadline_WindowExpired(t *testing.T) {
	// The window is [created, created+3m): the boundary instant is out.
	tr := completedNEFT(t)

	_, err := tr.Cancel("alice", t0.Add(transfer.CancellationWindow))

	assert.ErrorIs(t, err, engine.ErrWindowExpired)
}

func TestTransfer_Cancel_RTGS_IllegalNotExpired(t *testing.T) {
	// Wrong rail is an illegal transition, never a window error.
	tr, err := transfer.New("trf-2", "acc-1", "acc-2", engine.MustMoney("500.00"), transfer.TypeRTGS, t0)
	require.NoError(t, err)
	_, err = tr.Complete(t0)
	require.NoError(t, err)

	_, err = tr.Cancel("alice", t0.Add(time.Minute))

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
	assert.NotErrorIs(t, err, engine.ErrWindowExpired)
}

func TestTransfer_Cancel_Pending_Illegal(t *testing.T) {
	tr, err := transfer.New("trf-3", "acc-1", "acc-2", engine.MustMoney("500.00"), transfer.TypeNEFT, t0)
	require.NoError(t, err)

	_, err = tr.Cancel("alice", t0.Add(time.Minute))

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestTransfer_Cancel_Twice_Illegal(t *testing.T) {
	tr := completedNEFT(t)
	_, err := tr.Cancel("alice", t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = tr.Cancel("alice", t0.Add(time.Minute+time.Second))

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestTransfer_CanBeCancelled(t *testing.T) {
	tr := completedNEFT(t)

	assert.True(t, tr.CanBeCancelled(t0.Add(time.Minute)))
	assert.False(t, tr.CanBeCancelled(t0.Add(transfer.CancellationWindow)))
}
