package cheque_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/engine"
)

func newActiveCheque(t *testing.T) *cheque.Cheque {
	t.Helper()
	c, err := cheque.New("chq-1", "acc-1", engine.MustMoney("2500.00"), time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return c
}

// =============================================================================
// ISSUANCE
// =============================================================================

func TestCheque_New_StartsActiveWithNoRequest(t *testing.T) {
	c := newActiveCheque(t)

	assert.Equal(t, cheque.StatusActive, c.Status)
	assert.Equal(t, cheque.RequestNone, c.RequestStatus)
}

func TestCheque_New_RejectsNonPositiveAmount(t *testing.T) {
	_, err := cheque.New("chq-1", "acc-1", engine.MustMoney("0.00"), time.Now())
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)

	_, err = cheque.New("chq-2", "acc-1", engine.MustMoney("-10.00"), time.Now())
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
}

// =============================================================================
// DRAW REQUEST WORKFLOW
// =============================================================================

func TestCheque_RequestDraw_MovesToPending(t *testing.T) {
	c := newActiveCheque(t)
	now := time.Now().UTC()

	err := c.RequestDraw("alice", now)

	require.NoError(t, err)
	assert.Equal(t, cheque.RequestPending, c.RequestStatus)
	require.NotNil(t, c.RequestedBy)
	assert.Equal(t, "alice", *c.RequestedBy)
}

func TestCheque_RequestDraw_AllowedAgainAfterRejection(t *testing.T) {
	// GIVEN: A draw request was rejected
	// WHEN: The customer requests again
	// THEN: A fresh pending request opens

	c := newActiveCheque(t)
	now := time.Now().UTC()
	require.NoError(t, c.RequestDraw("alice", now))
	require.NoError(t, c.RejectRequest("boss", "signature mismatch", now))

	err := c.RequestDraw("alice", now.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, cheque.RequestPending, c.RequestStatus)
}

func TestCheque_RequestDraw_RejectedWhilePending(t *testing.T) {
	c := newActiveCheque(t)
	require.NoError(t, c.RequestDraw("alice", time.Now()))

	err := c.RequestDraw("alice", time.Now())

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
	var itErr *engine.IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, "cheque", itErr.Instrument)
}

func TestCheque_ApproveRequest_RequiresPending(t *testing.T) {
	c := newActiveCheque(t)

	err := c.ApproveRequest("boss", time.Now())

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestCheque_RejectRequest_RecordsReason(t *testing.T) {
	c := newActiveCheque(t)
	require.NoError(t, c.RequestDraw("alice", time.Now()))

	err := c.RejectRequest("boss", "signature mismatch", time.Now())

	require.NoError(t, err)
	assert.Equal(t, cheque.RequestRejected, c.RequestStatus)
	require.NotNil(t, c.RejectionReason)
	assert.Equal(t, "signature mismatch", *c.RejectionReason)
}

// =============================================================================
// DRAW
// =============================================================================

func TestCheque_Draw_RequiresApprovedRequest(t *testing.T) {
	c := newActiveCheque(t)

	_, err := c.Draw("teller", time.Now())
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	require.NoError(t, c.RequestDraw("alice", time.Now()))
	_, err = c.Draw("teller", time.Now())
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestCheque_Draw_ProducesDebitEffect(t *testing.T) {
	// GIVEN: An approved draw request on an active cheque
	// WHEN: The cheque is drawn
	// THEN: Status is DRAWN and the effect debits the full amount once

	c := newActiveCheque(t)
	now := time.Now().UTC()
	require.NoError(t, c.RequestDraw("alice", now))
	require.NoError(t, c.ApproveRequest("boss", now))

	eff, err := c.Draw("teller", now)

	require.NoError(t, err)
	assert.Equal(t, cheque.StatusDrawn, c.Status)
	assert.Equal(t, "acc-1", eff.AccountNumber)
	assert.True(t, eff.Delta.Equal(engine.MustMoney("-2500.00")), "delta %s", eff.Delta)
	assert.Equal(t, engine.KindChequeDraw, eff.Kind)
	assert.Equal(t, "cheque-draw-chq-1", eff.IdempotencyKey)
	require.NotNil(t, c.UsedDate)
}

func TestCheque_Draw_Twice_Illegal(t *testing.T) {
	c := newActiveCheque(t)
	now := time.Now().UTC()
	require.NoError(t, c.RequestDraw("alice", now))
	require.NoError(t, c.ApproveRequest("boss", now))
	_, err := c.Draw("teller", now)
	require.NoError(t, err)

	_, err = c.Draw("teller", now)

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

func TestCheque_Cancel_OnlyFromActive(t *testing.T) {
	c := newActiveCheque(t)

	require.NoError(t, c.Cancel("alice", "lost book", time.Now()))
	assert.Equal(t, cheque.StatusCancelled, c.Status)

	err := c.Cancel("alice", "again", time.Now())
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestCheque_Cancel_WithPendingRequest_VoidsLeaf(t *testing.T) {
	// Cancelling is legal from ACTIVE even with an open draw request;
	// the request dies with the leaf and a later draw fails the guard.
	c := newActiveCheque(t)
	require.NoError(t, c.RequestDraw("alice", time.Now()))

	require.NoError(t, c.Cancel("alice", "changed mind", time.Now()))

	_, err := c.Draw("teller", time.Now())
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}

func TestCheque_Bounce_FromActive(t *testing.T) {
	c := newActiveCheque(t)

	err := c.Bounce("system", "insufficient funds at presentment", time.Now())

	require.NoError(t, err)
	assert.Equal(t, cheque.StatusBounced, c.Status)
	require.NotNil(t, c.BounceReason)
}

func TestCheque_Bounce_FromDrawn_Illegal(t *testing.T) {
	c := newActiveCheque(t)
	now := time.Now().UTC()
	require.NoError(t, c.RequestDraw("alice", now))
	require.NoError(t, c.ApproveRequest("boss", now))
	_, err := c.Draw("teller", now)
	require.NoError(t, err)

	err = c.Bounce("system", "late", now)

	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
}
