/*
transaction.go - Ledger records and balance-moving effects

PURPOSE:
  A successful instrument transition that moves money is expressed as an
  Effect: one signed balance delta against one account. The ledger
  applier turns each Effect into exactly one TransactionRecord appended
  alongside the balance mutation, inside the same store transaction as
  the instrument's status write.

CRITICAL INVARIANTS:
  1. One Effect = one balance delta + one transaction record, or neither.
  2. TransactionRecords are append-only; corrections are new records.
  3. Idempotency keys reject double-application on retries.

SEE ALSO:
  - bank/service.go: applies effects atomically with status guards
  - store/sqlite: persistence with a unique idempotency index
*/
package engine

import "time"

// =============================================================================
// TRANSACTION KINDS
// =============================================================================

type TransactionKind string

const (
	KindChequeDraw       TransactionKind = "cheque_draw"
	KindTransferDebit    TransactionKind = "transfer_debit"
	KindTransferCredit   TransactionKind = "transfer_credit"
	KindTransferReversal TransactionKind = "transfer_reversal"
	KindFdPlacement      TransactionKind = "fd_placement"
	KindFdMaturity       TransactionKind = "fd_maturity"
	KindFdPrematureClose TransactionKind = "fd_premature_close"
	KindLoanDisbursal    TransactionKind = "loan_disbursal"
	KindEmiPayment       TransactionKind = "emi_payment"
	KindLoanForeclosure  TransactionKind = "loan_foreclosure"
)

// =============================================================================
// TRANSACTION RECORD - Immutable ledger entry
// =============================================================================

type TransactionRecord struct {
	ID             string
	AccountNumber  string
	Amount         Money // signed delta: positive credit, negative debit
	Kind           TransactionKind
	ReferenceID    string // the instrument that caused this record
	Description    string
	BalanceBefore  Money
	BalanceAfter   Money
	Actor          string
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// EFFECT - A pending balance mutation produced by a state machine
// =============================================================================

// Effect describes the monetary consequence of a transition before it is
// applied. State machines return Effects; they never touch balances.
type Effect struct {
	AccountNumber  string
	Delta          Money // signed: positive credit, negative debit
	Kind           TransactionKind
	ReferenceID    string
	Description    string
	Actor          string
	IdempotencyKey string
}

// =============================================================================
// STATUS GUARD - Optimistic concurrency token
// =============================================================================

// StatusGuard captures an instrument's status (and sub-status, for the
// cheque request workflow) as read before a transition. Stores compare
// it against the persisted row at write time; a mismatch means another
// writer won the race and the save fails with ErrConcurrentModification.
type StatusGuard struct {
	Status    string
	SubStatus string // empty when the instrument has no sub-workflow
}
