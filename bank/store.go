/*
store.go - Persistence contracts for the lifecycle engine

PURPOSE:
  Defines the interface between the engine and the database. The Store
  persists accounts, instruments, and the append-only transaction log;
  TxStore adds the atomic unit of work every money-moving transition
  runs inside.

OPTIMISTIC CONCURRENCY:
  Every instrument save takes a StatusGuard captured before the
  transition ran. The store compares the guard against the persisted
  row; a mismatch fails with ErrConcurrentModification and nothing is
  written. Two requests racing to transition the same instrument are
  therefore resolved so exactly one proceeds.

BALANCE SAFETY:
  ApplyDelta is the only balance mutator. It runs under the store's
  write serialization, checks the funds guard, and returns the balance
  before and after so the caller can record them on the transaction.

IMPLEMENTATIONS:
  - bank/store:   in-memory, snapshot rollback (tests/dev)
  - store/sqlite: production SQLite with guarded UPDATEs

SEE ALSO:
  - service.go: runs transitions inside WithTx
*/
package bank

import (
	"context"

	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// Store persists accounts, instruments, and the transaction log.
//
// Save* methods are guarded compare-and-set writes: the guard must match
// the persisted status or the save fails with ErrConcurrentModification.
// Put* methods insert new rows. Getters return ErrNotFound for missing
// rows.
type Store interface {
	// Accounts
	Account(ctx context.Context, number string) (*engine.Account, error)
	PutAccount(ctx context.Context, a *engine.Account) error

	// ApplyDelta mutates an account balance under the funds guard and
	// returns (balanceBefore, balanceAfter). A debit past zero fails
	// with InsufficientFundsError and writes nothing.
	ApplyDelta(ctx context.Context, number string, delta engine.Money) (engine.Money, engine.Money, error)

	// AppendTransaction appends to the immutable ledger. A duplicate
	// idempotency key fails with ErrDuplicateIdempotencyKey.
	AppendTransaction(ctx context.Context, rec engine.TransactionRecord) error
	TransactionsByAccount(ctx context.Context, number string) ([]engine.TransactionRecord, error)

	// Cheques
	Cheque(ctx context.Context, number string) (*cheque.Cheque, error)
	PutCheque(ctx context.Context, c *cheque.Cheque) error
	SaveCheque(ctx context.Context, c *cheque.Cheque, guard engine.StatusGuard) error

	// Transfers
	Transfer(ctx context.Context, id string) (*transfer.Transfer, error)
	PutTransfer(ctx context.Context, t *transfer.Transfer) error
	SaveTransfer(ctx context.Context, t *transfer.Transfer, guard engine.StatusGuard) error

	// Fixed deposits
	FixedDeposit(ctx context.Context, id string) (*deposit.FixedDeposit, error)
	PutFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit) error
	SaveFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit, guard engine.StatusGuard) error
	ListFixedDepositsByStatus(ctx context.Context, status deposit.Status) ([]*deposit.FixedDeposit, error)

	// Loans (schedule rows travel with the loan)
	Loan(ctx context.Context, id string) (*loan.Loan, error)
	PutLoan(ctx context.Context, l *loan.Loan) error
	SaveLoan(ctx context.Context, l *loan.Loan, guard engine.StatusGuard) error
	ListLoansByStatus(ctx context.Context, status loan.Status) ([]*loan.Loan, error)
}

// TxStore wraps Store with an atomic unit of work. Every state change
// that moves money runs inside WithTx: the instrument status write, the
// balance delta, and the transaction record succeed or fail together.
type TxStore interface {
	Store

	// WithTx executes fn atomically. If fn returns an error the unit is
	// rolled back and no mutation is observable.
	WithTx(ctx context.Context, fn func(Store) error) error
}
