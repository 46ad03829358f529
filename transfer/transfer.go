/*
Package transfer implements the transfer record state machine and its
cancellation window.

STATES:
  Pending -> {Completed, Failed}
  Completed -> Cancelled   (NEFT only, within 3 minutes of creation)

CANCELLATION:
  A transfer is cancellable iff its isCancellable flag is set, it is
  Completed, its rail is NEFT, and fewer than 3 minutes have passed since
  createdAt at evaluation time. The deadline is a hard real-time check
  against the supplied clock value, never a persisted flag alone.
  Failures are distinguishable: wrong status and wrong rail are
  IllegalTransition; a missed deadline is WindowExpired.

  Cancellation reverses the original ledger effect on both legs: credit
  back to the sender, debit from the recipient.
*/
package transfer

import (
	"fmt"
	"time"

	"github.com/atlasbank/instrument-engine/engine"
)

// CancellationWindow is how long after creation a completed NEFT
// transfer may still be recalled.
const CancellationWindow = 3 * time.Minute

// =============================================================================
// STATES AND RAILS
// =============================================================================

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

type Type string

const (
	TypeNEFT Type = "NEFT"
	TypeRTGS Type = "RTGS"
)

// =============================================================================
// TRANSFER
// =============================================================================

type Transfer struct {
	ID            string
	FromAccount   string
	ToAccount     string
	Amount        engine.Money
	TransferType  Type
	Status        Status
	IsCancellable bool

	CreatedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	FailReason  *string
	CancelledBy *string
	CancelledAt *time.Time
}

// New creates a Pending transfer. NEFT transfers are cancellable by
// default; RTGS settles with finality and is not.
func New(id, from, to string, amount engine.Money, transferType Type, now time.Time) (*Transfer, error) {
	if !amount.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "transfer amount must be positive"}
	}
	if from == to {
		return nil, &engine.InvalidAmountError{Reason: "transfer endpoints must differ"}
	}
	return &Transfer{
		ID:            id,
		FromAccount:   from,
		ToAccount:     to,
		Amount:        amount.Round2(),
		TransferType:  transferType,
		Status:        StatusPending,
		IsCancellable: transferType == TypeNEFT,
		CreatedAt:     now,
	}, nil
}

func (t *Transfer) Guard() engine.StatusGuard {
	return engine.StatusGuard{Status: string(t.Status)}
}

func (t *Transfer) illegal(requested string) error {
	return &engine.IllegalTransitionError{
		Instrument: "transfer",
		ID:         t.ID,
		From:       fmt.Sprintf("%s/%s", t.Status, t.TransferType),
		Requested:  requested,
	}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// Complete settles a Pending transfer and returns both ledger legs:
// debit the sender, credit the recipient.
func (t *Transfer) Complete(now time.Time) ([]engine.Effect, error) {
	if t.Status != StatusPending {
		return nil, t.illegal("complete")
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return []engine.Effect{
		{
			AccountNumber:  t.FromAccount,
			Delta:          t.Amount.Neg(),
			Kind:           engine.KindTransferDebit,
			ReferenceID:    t.ID,
			Description:    "transfer " + t.ID + " sent",
			IdempotencyKey: "transfer-out-" + t.ID,
		},
		{
			AccountNumber:  t.ToAccount,
			Delta:          t.Amount,
			Kind:           engine.KindTransferCredit,
			ReferenceID:    t.ID,
			Description:    "transfer " + t.ID + " received",
			IdempotencyKey: "transfer-in-" + t.ID,
		},
	}, nil
}

// Fail marks a Pending transfer Failed. No ledger effect (nothing moved).
func (t *Transfer) Fail(reason string, now time.Time) error {
	if t.Status != StatusPending {
		return t.illegal("fail")
	}
	t.Status = StatusFailed
	t.FailedAt = &now
	t.FailReason = &reason
	return nil
}

// =============================================================================
// CANCELLATION WINDOW
// =============================================================================

// Deadline is the instant after which cancellation is no longer legal.
func (t *Transfer) Deadline() time.Time {
	return t.CreatedAt.Add(CancellationWindow)
}

// CanBeCancelled reports whether cancellation is legal at the given time.
// Callers needing the reason for a refusal use Cancel and inspect the
// returned error.
func (t *Transfer) CanBeCancelled(now time.Time) bool {
	return t.IsCancellable &&
		t.Status == StatusCompleted &&
		t.TransferType == TypeNEFT &&
		now.Sub(t.CreatedAt) < CancellationWindow
}

// Cancel reverses a completed NEFT transfer within the window, returning
// the two reversal legs: credit back to the sender, debit the recipient.
// Refusals are distinguishable: wrong status or wrong rail is an
// IllegalTransitionError; an elapsed window is a WindowExpiredError.
func (t *Transfer) Cancel(actor string, now time.Time) ([]engine.Effect, error) {
	if t.Status != StatusCompleted || !t.IsCancellable {
		return nil, t.illegal("cancel")
	}
	if t.TransferType != TypeNEFT {
		return nil, t.illegal("cancel")
	}
	if now.Sub(t.CreatedAt) >= CancellationWindow {
		return nil, &engine.WindowExpiredError{
			Instrument: "transfer",
			ID:         t.ID,
			Deadline:   t.Deadline(),
			At:         now,
		}
	}

	t.Status = StatusCancelled
	t.CancelledBy = &actor
	t.CancelledAt = &now
	return []engine.Effect{
		{
			AccountNumber:  t.FromAccount,
			Delta:          t.Amount,
			Kind:           engine.KindTransferReversal,
			ReferenceID:    t.ID,
			Description:    "transfer " + t.ID + " cancelled: refund to sender",
			Actor:          actor,
			IdempotencyKey: "transfer-cancel-out-" + t.ID,
		},
		{
			AccountNumber:  t.ToAccount,
			Delta:          t.Amount.Neg(),
			Kind:           engine.KindTransferReversal,
			ReferenceID:    t.ID,
			Description:    "transfer " + t.ID + " cancelled: recall from recipient",
			Actor:          actor,
			IdempotencyKey: "transfer-cancel-in-" + t.ID,
		},
	}, nil
}
