/*
Package cheque implements the cheque state machine.

STATES:
  status:        ACTIVE -> {DRAWN, BOUNCED, CANCELLED}
  requestStatus: NONE -> PENDING -> {APPROVED, REJECTED}   (nested in ACTIVE)

  A cheque is DRAWN only from ACTIVE with requestStatus APPROVED. Drawing
  produces a ledger debit for the cheque amount; cancelling and bouncing
  move no money (a bounced cheque never moved money).

GUARDS:
  Every operation validates the transition against the current state and
  returns a typed IllegalTransitionError when it is not legal. There are
  no silent no-ops: callers that want to probe a precondition use the
  CanX predicates.

TIMESTAMPS:
  Exactly one actor+timestamp pair is populated per terminal transition;
  the others stay nil. Time is an explicit input, never read from the
  wall clock here.

SEE ALSO:
  - bank/service.go: atomic application of Draw's ledger debit
*/
package cheque

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
	StatusActive    Status = "ACTIVE"
	StatusDrawn     Status = "DRAWN"
	StatusBounced   Status = "BOUNCED"
	StatusCancelled Status = "CANCELLED"
)

type RequestStatus string

const (
	RequestNone     RequestStatus = "NONE"
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// =============================================================================
// CHEQUE
// =============================================================================

type Cheque struct {
	Number        string
	AccountNumber string
	Amount        engine.Money
	Status        Status
	RequestStatus RequestStatus

	RequestedBy *string
	RequestedAt *time.Time

	ApprovedBy *string
	ApprovedAt *time.Time

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string

	DrawnBy  *string
	UsedDate *time.Time

	CancelledBy  *string
	CancelledAt  *time.Time
	CancelReason *string

	BouncedBy    *string
	BouncedAt    *time.Time
	BounceReason *string

	CreatedAt time.Time
}

// New issues an ACTIVE cheque. Amount must be positive.
func New(number, accountNumber string, amount engine.Money, now time.Time) (*Cheque, error) {
	if !amount.IsPositive() {
		return nil, &engine.InvalidAmountError{Reason: "cheque amount must be positive"}
	}
	return &Cheque{
		Number:        number,
		AccountNumber: accountNumber,
		Amount:        amount.Round2(),
		Status:        StatusActive,
		RequestStatus: RequestNone,
		CreatedAt:     now,
	}, nil
}

// Guard captures the current state for optimistic concurrency. Callers
// take the guard before invoking a transition and hand it to the store.
func (c *Cheque) Guard() engine.StatusGuard {
	return engine.StatusGuard{Status: string(c.Status), SubStatus: string(c.RequestStatus)}
}

func (c *Cheque) illegal(requested string) error {
	return &engine.IllegalTransitionError{
		Instrument: "cheque",
		ID:         c.Number,
		From:       fmt.Sprintf("%s/%s", c.Status, c.RequestStatus),
		Requested:  requested,
	}
}

// =============================================================================
// DRAW-REQUEST SUB-WORKFLOW
// =============================================================================

// CanRequestDraw reports whether a draw request is currently legal.
func (c *Cheque) CanRequestDraw() bool {
	return c.Status == StatusActive &&
		(c.RequestStatus == RequestNone || c.RequestStatus == RequestRejected)
}

// RequestDraw opens the draw-request sub-workflow. Legal iff the cheque
// is ACTIVE with requestStatus NONE or REJECTED (a rejected request may
// be resubmitted).
func (c *Cheque) RequestDraw(actor string, now time.Time) error {
	if !c.CanRequestDraw() {
		return c.illegal("request draw")
	}
	c.RequestStatus = RequestPending
	c.RequestedBy = &actor
	c.RequestedAt = &now
	return nil
}

// ApproveRequest approves a pending draw request.
func (c *Cheque) ApproveRequest(actor string, now time.Time) error {
	if c.Status != StatusActive || c.RequestStatus != RequestPending {
		return c.illegal("approve draw request")
	}
	c.RequestStatus = RequestApproved
	c.ApprovedBy = &actor
	c.ApprovedAt = &now
	return nil
}

// RejectRequest rejects a pending draw request with a reason. The cheque
// stays ACTIVE and the request may be resubmitted.
func (c *Cheque) RejectRequest(actor, reason string, now time.Time) error {
	if c.Status != StatusActive || c.RequestStatus != RequestPending {
		return c.illegal("reject draw request")
	}
	c.RequestStatus = RequestRejected
	c.RejectedBy = &actor
	c.RejectedAt = &now
	c.RejectionReason = &reason
	return nil
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// Draw marks the cheque DRAWN and returns the ledger debit for the
// cheque amount. Legal iff ACTIVE with an APPROVED draw request.
func (c *Cheque) Draw(actor string, now time.Time) (engine.Effect, error) {
	if c.Status != StatusActive || c.RequestStatus != RequestApproved {
		return engine.Effect{}, c.illegal("draw")
	}
	c.Status = StatusDrawn
	c.DrawnBy = &actor
	c.UsedDate = &now
	return engine.Effect{
		AccountNumber:  c.AccountNumber,
		Delta:          c.Amount.Neg(),
		Kind:           engine.KindChequeDraw,
		ReferenceID:    c.Number,
		Description:    "cheque " + c.Number + " drawn",
		Actor:          actor,
		IdempotencyKey: "cheque-draw-" + c.Number,
	}, nil
}

// Cancel voids an ACTIVE cheque. No ledger effect.
func (c *Cheque) Cancel(actor, reason string, now time.Time) error {
	if c.Status != StatusActive {
		return c.illegal("cancel")
	}
	c.Status = StatusCancelled
	c.CancelledBy = &actor
	c.CancelledAt = &now
	c.CancelReason = &reason
	return nil
}

// Bounce marks an ACTIVE cheque BOUNCED. No ledger effect.
func (c *Cheque) Bounce(actor, reason string, now time.Time) error {
	if c.Status != StatusActive {
		return c.illegal("bounce")
	}
	c.Status = StatusBounced
	c.BouncedBy = &actor
	c.BouncedAt = &now
	c.BounceReason = &reason
	return nil
}
