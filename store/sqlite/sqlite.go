/*
Package sqlite provides a SQLite-backed implementation of bank.TxStore.

PURPOSE:
  Persists accounts, instruments, and the append-only transaction log
  in SQLite. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transactions table is the immutable ledger:
  - No UPDATE statements on transactions
  - No DELETE statements on transactions
  - Corrections via reversal records only

OPTIMISTIC CONCURRENCY:
  Save* methods run guarded UPDATEs: WHERE id = ? AND status = ?.
  Zero rows affected with an existing row means another writer won the
  race, surfaced as ErrConcurrentModification. This is the engine's
  serialization point for instrument transitions.

KEY TABLES:
  accounts:        Balances (mutated only through ApplyDelta)
  transactions:    Immutable ledger, UNIQUE idempotency_key
  cheques:         Cheque leaves with the nested draw-request workflow
  transfers:       Fund transfers and their cancellation window state
  fixed_deposits:  FD terms plus the running accrual ledger
  loans:           Loan terms, gold collateral, foreclosure freeze
  emi_payments:    Schedule rows, keyed (loan_id, emi_number)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/bank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := bank.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - bank/store.go: Interface definitions
  - bank/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atlasbank/instrument-engine/bank"
	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// Store implements bank.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ bank.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps SQLite writes serialized and makes
	// :memory: databases behave under the connection pool.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (balance mutated only through ApplyDelta)
	CREATE TABLE IF NOT EXISTS accounts (
		number TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		reference_id TEXT,
		description TEXT,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		actor TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_number, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Cheques
	CREATE TABLE IF NOT EXISTS cheques (
		number TEXT PRIMARY KEY,
		account_number TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		request_status TEXT NOT NULL,
		requested_by TEXT,
		requested_at TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejected_at TEXT,
		rejection_reason TEXT,
		drawn_by TEXT,
		used_date TEXT,
		cancelled_by TEXT,
		cancelled_at TEXT,
		cancel_reason TEXT,
		bounced_by TEXT,
		bounced_at TEXT,
		bounce_reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cheques_account
		ON cheques(account_number);

	-- Transfers
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		from_account TEXT NOT NULL,
		to_account TEXT NOT NULL,
		amount TEXT NOT NULL,
		transfer_type TEXT NOT NULL,
		status TEXT NOT NULL,
		is_cancellable INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		failed_at TEXT,
		fail_reason TEXT,
		cancelled_by TEXT,
		cancelled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_status
		ON transfers(status);

	-- Fixed deposits
	CREATE TABLE IF NOT EXISTS fixed_deposits (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL,
		principal TEXT NOT NULL,
		tenure_months INTEGER NOT NULL,
		interest_rate REAL NOT NULL,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejected_at TEXT,
		rejection_reason TEXT,
		start_date TEXT,
		maturity_date TEXT,
		months_interest_credited INTEGER NOT NULL DEFAULT 0,
		total_interest_credited TEXT NOT NULL,
		last_interest_credit_date TEXT,
		closed_by TEXT,
		closed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fixed_deposits_status
		ON fixed_deposits(status);
	CREATE INDEX IF NOT EXISTS idx_fixed_deposits_account
		ON fixed_deposits(account_number);

	-- Loans (gold collateral columns NULL for unsecured kinds)
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL,
		kind TEXT NOT NULL,
		principal TEXT NOT NULL,
		annual_rate_pct REAL NOT NULL,
		tenure_months INTEGER NOT NULL,
		status TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejected_at TEXT,
		rejection_reason TEXT,
		foreclosed_by TEXT,
		foreclosed_at TEXT,
		foreclosure_amount TEXT,
		foreclosure_charge TEXT,
		foreclosure_gst TEXT,
		paid_at TEXT,
		gold_grams REAL,
		gold_rate_per_gram TEXT,
		gold_value TEXT,
		loan_to_value REAL,
		gold_verified_by TEXT,
		gold_verified_at TEXT,
		gold_verified_grams REAL,
		gold_verified_value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_loans_status
		ON loans(status);
	CREATE INDEX IF NOT EXISTS idx_loans_account
		ON loans(account_number);

	-- EMI schedule rows travel with their loan
	CREATE TABLE IF NOT EXISTS emi_payments (
		loan_id TEXT NOT NULL,
		emi_number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		principal_component TEXT NOT NULL,
		interest_component TEXT NOT NULL,
		remaining_principal TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_by TEXT,
		paid_at TEXT,
		balance_before TEXT,
		balance_after TEXT,
		PRIMARY KEY (loan_id, emi_number)
	);

	CREATE INDEX IF NOT EXISTS idx_emi_payments_due
		ON emi_payments(status, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS AND THE LEDGER
// =============================================================================

func (s *Store) Account(ctx context.Context, number string) (*engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, number)
}

func getAccount(ctx context.Context, db dbtx, number string) (*engine.Account, error) {
	var (
		a         engine.Account
		balance   string
		createdAt string
	)
	err := db.QueryRowContext(ctx,
		`SELECT number, holder_id, balance, created_at FROM accounts WHERE number = ?`,
		number,
	).Scan(&a.Number, &a.HolderID, &balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if a.Balance, err = engine.MoneyFromString(balance); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (s *Store) PutAccount(ctx context.Context, a *engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putAccount(ctx, s.db, a)
}

func putAccount(ctx context.Context, db dbtx, a *engine.Account) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (number, holder_id, balance, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(number) DO UPDATE SET holder_id = excluded.holder_id`,
		a.Number, a.HolderID, a.Balance.String(), formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

func (s *Store) ApplyDelta(ctx context.Context, number string, delta engine.Money) (engine.Money, engine.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyDelta(ctx, s.db, number, delta)
}

func applyDelta(ctx context.Context, db dbtx, number string, delta engine.Money) (engine.Money, engine.Money, error) {
	a, err := getAccount(ctx, db, number)
	if err != nil {
		return engine.Money{}, engine.Money{}, err
	}
	before := a.Balance
	after := before.Add(delta)
	if after.IsNegative() {
		return engine.Money{}, engine.Money{}, &engine.InsufficientFundsError{
			AccountNumber: number,
			Available:     before,
			Requested:     delta.Abs(),
		}
	}
	_, err = db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE number = ?`,
		after.String(), number,
	)
	if err != nil {
		return engine.Money{}, engine.Money{}, fmt.Errorf("failed to apply delta: %w", err)
	}
	return before, after, nil
}

func (s *Store) AppendTransaction(ctx context.Context, rec engine.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, rec)
}

func appendTransaction(ctx context.Context, db dbtx, rec engine.TransactionRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, account_number, amount, kind, reference_id, description,
		  balance_before, balance_after, actor, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.AccountNumber,
		rec.Amount.String(),
		string(rec.Kind),
		nullString(rec.ReferenceID),
		nullString(rec.Description),
		rec.BalanceBefore.String(),
		rec.BalanceAfter.String(),
		nullString(rec.Actor),
		nullString(rec.IdempotencyKey),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) TransactionsByAccount(ctx context.Context, number string) ([]engine.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByAccount(ctx, s.db, number)
}

func transactionsByAccount(ctx context.Context, db dbtx, number string) ([]engine.TransactionRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, account_number, amount, kind, reference_id, description,
		        balance_before, balance_after, actor, idempotency_key, created_at
		 FROM transactions
		 WHERE account_number = ?
		 ORDER BY created_at ASC, id ASC`,
		number,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []engine.TransactionRecord
	for rows.Next() {
		var (
			rec            engine.TransactionRecord
			amount         string
			kind           string
			referenceID    sql.NullString
			description    sql.NullString
			balanceBefore  string
			balanceAfter   string
			actor          sql.NullString
			idempotencyKey sql.NullString
			createdAt      string
		)
		if err := rows.Scan(
			&rec.ID, &rec.AccountNumber, &amount, &kind, &referenceID, &description,
			&balanceBefore, &balanceAfter, &actor, &idempotencyKey, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if rec.Amount, err = engine.MoneyFromString(amount); err != nil {
			return nil, err
		}
		if rec.BalanceBefore, err = engine.MoneyFromString(balanceBefore); err != nil {
			return nil, err
		}
		if rec.BalanceAfter, err = engine.MoneyFromString(balanceAfter); err != nil {
			return nil, err
		}
		rec.Kind = engine.TransactionKind(kind)
		rec.ReferenceID = referenceID.String
		rec.Description = description.String
		rec.Actor = actor.String
		rec.IdempotencyKey = idempotencyKey.String
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// CHEQUES
// =============================================================================

const chequeColumns = `number, account_number, amount, status, request_status,
	requested_by, requested_at, approved_by, approved_at,
	rejected_by, rejected_at, rejection_reason,
	drawn_by, used_date,
	cancelled_by, cancelled_at, cancel_reason,
	bounced_by, bounced_at, bounce_reason, created_at`

func (s *Store) Cheque(ctx context.Context, number string) (*cheque.Cheque, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCheque(ctx, s.db, number)
}

func getCheque(ctx context.Context, db dbtx, number string) (*cheque.Cheque, error) {
	var (
		c         cheque.Cheque
		amount    string
		status    string
		reqStatus string
		createdAt string

		requestedBy, requestedAt         sql.NullString
		approvedBy, approvedAt           sql.NullString
		rejectedBy, rejectedAt, rejReas  sql.NullString
		drawnBy, usedDate                sql.NullString
		cancelledBy, cancelledAt, cancel sql.NullString
		bouncedBy, bouncedAt, bounce     sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT `+chequeColumns+` FROM cheques WHERE number = ?`, number,
	).Scan(
		&c.Number, &c.AccountNumber, &amount, &status, &reqStatus,
		&requestedBy, &requestedAt, &approvedBy, &approvedAt,
		&rejectedBy, &rejectedAt, &rejReas,
		&drawnBy, &usedDate,
		&cancelledBy, &cancelledAt, &cancel,
		&bouncedBy, &bouncedAt, &bounce, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cheque: %w", err)
	}
	if c.Amount, err = engine.MoneyFromString(amount); err != nil {
		return nil, err
	}
	c.Status = cheque.Status(status)
	c.RequestStatus = cheque.RequestStatus(reqStatus)
	c.RequestedBy = strPtr(requestedBy)
	c.RequestedAt = timePtr(requestedAt)
	c.ApprovedBy = strPtr(approvedBy)
	c.ApprovedAt = timePtr(approvedAt)
	c.RejectedBy = strPtr(rejectedBy)
	c.RejectedAt = timePtr(rejectedAt)
	c.RejectionReason = strPtr(rejReas)
	c.DrawnBy = strPtr(drawnBy)
	c.UsedDate = timePtr(usedDate)
	c.CancelledBy = strPtr(cancelledBy)
	c.CancelledAt = timePtr(cancelledAt)
	c.CancelReason = strPtr(cancel)
	c.BouncedBy = strPtr(bouncedBy)
	c.BouncedAt = timePtr(bouncedAt)
	c.BounceReason = strPtr(bounce)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) PutCheque(ctx context.Context, c *cheque.Cheque) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putCheque(ctx, s.db, c)
}

func putCheque(ctx context.Context, db dbtx, c *cheque.Cheque) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cheques (`+chequeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chequeArgs(c)...,
	)
	if err != nil {
		return fmt.Errorf("failed to put cheque: %w", err)
	}
	return nil
}

func chequeArgs(c *cheque.Cheque) []any {
	return []any{
		c.Number, c.AccountNumber, c.Amount.String(), string(c.Status), string(c.RequestStatus),
		nullStrPtr(c.RequestedBy), nullTimePtr(c.RequestedAt),
		nullStrPtr(c.ApprovedBy), nullTimePtr(c.ApprovedAt),
		nullStrPtr(c.RejectedBy), nullTimePtr(c.RejectedAt), nullStrPtr(c.RejectionReason),
		nullStrPtr(c.DrawnBy), nullTimePtr(c.UsedDate),
		nullStrPtr(c.CancelledBy), nullTimePtr(c.CancelledAt), nullStrPtr(c.CancelReason),
		nullStrPtr(c.BouncedBy), nullTimePtr(c.BouncedAt), nullStrPtr(c.BounceReason),
		formatTime(c.CreatedAt),
	}
}

func (s *Store) SaveCheque(ctx context.Context, c *cheque.Cheque, guard engine.StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCheque(ctx, s.db, c, guard)
}

// saveCheque is a guarded compare-and-set on (status, request_status).
func saveCheque(ctx context.Context, db dbtx, c *cheque.Cheque, guard engine.StatusGuard) error {
	res, err := db.ExecContext(ctx,
		`UPDATE cheques SET
			status = ?, request_status = ?,
			requested_by = ?, requested_at = ?,
			approved_by = ?, approved_at = ?,
			rejected_by = ?, rejected_at = ?, rejection_reason = ?,
			drawn_by = ?, used_date = ?,
			cancelled_by = ?, cancelled_at = ?, cancel_reason = ?,
			bounced_by = ?, bounced_at = ?, bounce_reason = ?
		 WHERE number = ? AND status = ? AND request_status = ?`,
		string(c.Status), string(c.RequestStatus),
		nullStrPtr(c.RequestedBy), nullTimePtr(c.RequestedAt),
		nullStrPtr(c.ApprovedBy), nullTimePtr(c.ApprovedAt),
		nullStrPtr(c.RejectedBy), nullTimePtr(c.RejectedAt), nullStrPtr(c.RejectionReason),
		nullStrPtr(c.DrawnBy), nullTimePtr(c.UsedDate),
		nullStrPtr(c.CancelledBy), nullTimePtr(c.CancelledAt), nullStrPtr(c.CancelReason),
		nullStrPtr(c.BouncedBy), nullTimePtr(c.BouncedAt), nullStrPtr(c.BounceReason),
		c.Number, guard.Status, guard.SubStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to save cheque: %w", err)
	}
	return checkGuard(ctx, db, res, "cheques", "number", c.Number)
}

// =============================================================================
// TRANSFERS
// =============================================================================

const transferColumns = `id, from_account, to_account, amount, transfer_type, status,
	is_cancellable, created_at, completed_at, failed_at, fail_reason,
	cancelled_by, cancelled_at`

func (s *Store) Transfer(ctx context.Context, id string) (*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransfer(ctx, s.db, id)
}

func getTransfer(ctx context.Context, db dbtx, id string) (*transfer.Transfer, error) {
	var (
		t             transfer.Transfer
		amount        string
		transferType  string
		status        string
		isCancellable int
		createdAt     string

		completedAt, failedAt, failReason sql.NullString
		cancelledBy, cancelledAt          sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id,
	).Scan(
		&t.ID, &t.FromAccount, &t.ToAccount, &amount, &transferType, &status,
		&isCancellable, &createdAt, &completedAt, &failedAt, &failReason,
		&cancelledBy, &cancelledAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}
	if t.Amount, err = engine.MoneyFromString(amount); err != nil {
		return nil, err
	}
	t.TransferType = transfer.Type(transferType)
	t.Status = transfer.Status(status)
	t.IsCancellable = isCancellable != 0
	t.CreatedAt = parseTime(createdAt)
	t.CompletedAt = timePtr(completedAt)
	t.FailedAt = timePtr(failedAt)
	t.FailReason = strPtr(failReason)
	t.CancelledBy = strPtr(cancelledBy)
	t.CancelledAt = timePtr(cancelledAt)
	return &t, nil
}

func (s *Store) PutTransfer(ctx context.Context, t *transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putTransfer(ctx, s.db, t)
}

func putTransfer(ctx context.Context, db dbtx, t *transfer.Transfer) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transfers (`+transferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FromAccount, t.ToAccount, t.Amount.String(), string(t.TransferType), string(t.Status),
		boolInt(t.IsCancellable), formatTime(t.CreatedAt),
		nullTimePtr(t.CompletedAt), nullTimePtr(t.FailedAt), nullStrPtr(t.FailReason),
		nullStrPtr(t.CancelledBy), nullTimePtr(t.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put transfer: %w", err)
	}
	return nil
}

func (s *Store) SaveTransfer(ctx context.Context, t *transfer.Transfer, guard engine.StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTransfer(ctx, s.db, t, guard)
}

func saveTransfer(ctx context.Context, db dbtx, t *transfer.Transfer, guard engine.StatusGuard) error {
	res, err := db.ExecContext(ctx,
		`UPDATE transfers SET
			status = ?, is_cancellable = ?,
			completed_at = ?, failed_at = ?, fail_reason = ?,
			cancelled_by = ?, cancelled_at = ?
		 WHERE id = ? AND status = ?`,
		string(t.Status), boolInt(t.IsCancellable),
		nullTimePtr(t.CompletedAt), nullTimePtr(t.FailedAt), nullStrPtr(t.FailReason),
		nullStrPtr(t.CancelledBy), nullTimePtr(t.CancelledAt),
		t.ID, guard.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return checkGuard(ctx, db, res, "transfers", "id", t.ID)
}

// =============================================================================
// FIXED DEPOSITS
// =============================================================================

const depositColumns = `id, account_number, principal, tenure_months, interest_rate, status,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	start_date, maturity_date,
	months_interest_credited, total_interest_credited, last_interest_credit_date,
	closed_by, closed_at, created_at`

func (s *Store) FixedDeposit(ctx context.Context, id string) (*deposit.FixedDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFixedDeposit(ctx, s.db, id)
}

func getFixedDeposit(ctx context.Context, db dbtx, id string) (*deposit.FixedDeposit, error) {
	var (
		fd        deposit.FixedDeposit
		principal string
		status    string
		total     string
		createdAt string

		approvedBy, approvedAt          sql.NullString
		rejectedBy, rejectedAt, rejReas sql.NullString
		startDate, maturityDate         sql.NullString
		lastCredit                      sql.NullString
		closedBy, closedAt              sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM fixed_deposits WHERE id = ?`, id,
	).Scan(
		&fd.ID, &fd.AccountNumber, &principal, &fd.TenureMonths, &fd.InterestRate, &status,
		&approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &rejReas,
		&startDate, &maturityDate,
		&fd.MonthsInterestCredited, &total, &lastCredit,
		&closedBy, &closedAt, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fixed deposit: %w", err)
	}
	if fd.Principal, err = engine.MoneyFromString(principal); err != nil {
		return nil, err
	}
	if fd.TotalInterestCredited, err = engine.MoneyFromString(total); err != nil {
		return nil, err
	}
	fd.Status = deposit.Status(status)
	fd.ApprovedBy = strPtr(approvedBy)
	fd.ApprovedAt = timePtr(approvedAt)
	fd.RejectedBy = strPtr(rejectedBy)
	fd.RejectedAt = timePtr(rejectedAt)
	fd.RejectionReason = strPtr(rejReas)
	fd.StartDate = timePtr(startDate)
	fd.MaturityDate = timePtr(maturityDate)
	fd.LastInterestCreditDate = timePtr(lastCredit)
	fd.ClosedBy = strPtr(closedBy)
	fd.ClosedAt = timePtr(closedAt)
	fd.CreatedAt = parseTime(createdAt)
	return &fd, nil
}

func (s *Store) PutFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putFixedDeposit(ctx, s.db, fd)
}

func putFixedDeposit(ctx context.Context, db dbtx, fd *deposit.FixedDeposit) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO fixed_deposits (`+depositColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fd.ID, fd.AccountNumber, fd.Principal.String(), fd.TenureMonths, fd.InterestRate, string(fd.Status),
		nullStrPtr(fd.ApprovedBy), nullTimePtr(fd.ApprovedAt),
		nullStrPtr(fd.RejectedBy), nullTimePtr(fd.RejectedAt), nullStrPtr(fd.RejectionReason),
		nullTimePtr(fd.StartDate), nullTimePtr(fd.MaturityDate),
		fd.MonthsInterestCredited, fd.TotalInterestCredited.String(), nullTimePtr(fd.LastInterestCreditDate),
		nullStrPtr(fd.ClosedBy), nullTimePtr(fd.ClosedAt), formatTime(fd.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put fixed deposit: %w", err)
	}
	return nil
}

func (s *Store) SaveFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveFixedDeposit(ctx, s.db, fd, guard)
}

func saveFixedDeposit(ctx context.Context, db dbtx, fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	res, err := db.ExecContext(ctx,
		`UPDATE fixed_deposits SET
			principal = ?, tenure_months = ?, interest_rate = ?, status = ?,
			approved_by = ?, approved_at = ?,
			rejected_by = ?, rejected_at = ?, rejection_reason = ?,
			start_date = ?, maturity_date = ?,
			months_interest_credited = ?, total_interest_credited = ?, last_interest_credit_date = ?,
			closed_by = ?, closed_at = ?
		 WHERE id = ? AND status = ?`,
		fd.Principal.String(), fd.TenureMonths, fd.InterestRate, string(fd.Status),
		nullStrPtr(fd.ApprovedBy), nullTimePtr(fd.ApprovedAt),
		nullStrPtr(fd.RejectedBy), nullTimePtr(fd.RejectedAt), nullStrPtr(fd.RejectionReason),
		nullTimePtr(fd.StartDate), nullTimePtr(fd.MaturityDate),
		fd.MonthsInterestCredited, fd.TotalInterestCredited.String(), nullTimePtr(fd.LastInterestCreditDate),
		nullStrPtr(fd.ClosedBy), nullTimePtr(fd.ClosedAt),
		fd.ID, guard.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save fixed deposit: %w", err)
	}
	return checkGuard(ctx, db, res, "fixed_deposits", "id", fd.ID)
}

func (s *Store) ListFixedDepositsByStatus(ctx context.Context, status deposit.Status) ([]*deposit.FixedDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listFixedDepositsByStatus(ctx, s.db, status)
}

func listFixedDepositsByStatus(ctx context.Context, db dbtx, status deposit.Status) ([]*deposit.FixedDeposit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM fixed_deposits WHERE status = ? ORDER BY created_at ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixed deposits: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*deposit.FixedDeposit, 0, len(ids))
	for _, id := range ids {
		fd, err := getFixedDeposit(ctx, db, id)
		if err != nil {
			return nil, err
		}
		result = append(result, fd)
	}
	return result, nil
}

// =============================================================================
// LOANS
// =============================================================================

const loanColumns = `id, account_number, kind, principal, annual_rate_pct, tenure_months, status,
	applied_at, approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	foreclosed_by, foreclosed_at, foreclosure_amount, foreclosure_charge, foreclosure_gst,
	paid_at, gold_grams, gold_rate_per_gram, gold_value, loan_to_value,
	gold_verified_by, gold_verified_at, gold_verified_grams, gold_verified_value`

func (s *Store) Loan(ctx context.Context, id string) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLoan(ctx, s.db, id)
}

func getLoan(ctx context.Context, db dbtx, id string) (*loan.Loan, error) {
	var (
		l         loan.Loan
		kind      string
		principal string
		status    string
		appliedAt string

		approvedBy, approvedAt           sql.NullString
		rejectedBy, rejectedAt, rejReas  sql.NullString
		foreclosedBy, foreclosedAt       sql.NullString
		fcAmount, fcCharge, fcGst        sql.NullString
		paidAt                           sql.NullString
		goldGrams, loanToValue           sql.NullFloat64
		goldRate, goldValue              sql.NullString
		verifiedBy, verifiedAt           sql.NullString
		verifiedGrams                    sql.NullFloat64
		verifiedValue                    sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id,
	).Scan(
		&l.ID, &l.AccountNumber, &kind, &principal, &l.AnnualRatePct, &l.TenureMonths, &status,
		&appliedAt, &approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &rejReas,
		&foreclosedBy, &foreclosedAt, &fcAmount, &fcCharge, &fcGst,
		&paidAt, &goldGrams, &goldRate, &goldValue, &loanToValue,
		&verifiedBy, &verifiedAt, &verifiedGrams, &verifiedValue,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loan: %w", err)
	}
	if l.Principal, err = engine.MoneyFromString(principal); err != nil {
		return nil, err
	}
	l.Kind = loan.Kind(kind)
	l.Status = loan.Status(status)
	l.AppliedAt = parseTime(appliedAt)
	l.ApprovedBy = strPtr(approvedBy)
	l.ApprovedAt = timePtr(approvedAt)
	l.RejectedBy = strPtr(rejectedBy)
	l.RejectedAt = timePtr(rejectedAt)
	l.RejectionReason = strPtr(rejReas)
	l.ForeclosedBy = strPtr(foreclosedBy)
	l.ForeclosedAt = timePtr(foreclosedAt)
	if l.ForeclosureAmount, err = moneyPtr(fcAmount); err != nil {
		return nil, err
	}
	if l.ForeclosureCharge, err = moneyPtr(fcCharge); err != nil {
		return nil, err
	}
	if l.ForeclosureGst, err = moneyPtr(fcGst); err != nil {
		return nil, err
	}
	l.PaidAt = timePtr(paidAt)

	if goldGrams.Valid {
		col := loan.GoldCollateral{
			GoldGrams:   goldGrams.Float64,
			LoanToValue: loanToValue.Float64,
		}
		if col.GoldRatePerGram, err = engine.MoneyFromString(goldRate.String); err != nil {
			return nil, err
		}
		if col.GoldValue, err = engine.MoneyFromString(goldValue.String); err != nil {
			return nil, err
		}
		col.VerifiedBy = strPtr(verifiedBy)
		col.VerifiedAt = timePtr(verifiedAt)
		if verifiedGrams.Valid {
			g := verifiedGrams.Float64
			col.VerifiedGrams = &g
		}
		if col.VerifiedValue, err = moneyPtr(verifiedValue); err != nil {
			return nil, err
		}
		l.Collateral = &col
	}

	if l.Schedule, err = loadSchedule(ctx, db, id); err != nil {
		return nil, err
	}
	return &l, nil
}

func loadSchedule(ctx context.Context, db dbtx, loanID string) ([]loan.EmiPayment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT emi_number, due_date, total_amount, principal_component, interest_component,
		        remaining_principal, status, paid_by, paid_at, balance_before, balance_after
		 FROM emi_payments WHERE loan_id = ? ORDER BY emi_number ASC`,
		loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var schedule []loan.EmiPayment
	for rows.Next() {
		var (
			e          loan.EmiPayment
			dueDate    string
			total      string
			principalC string
			interestC  string
			remaining  string
			status     string

			paidBy, paidAt  sql.NullString
			before, after   sql.NullString
		)
		if err := rows.Scan(
			&e.EmiNumber, &dueDate, &total, &principalC, &interestC,
			&remaining, &status, &paidBy, &paidAt, &before, &after,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		e.DueDate = parseTime(dueDate)
		if e.TotalAmount, err = engine.MoneyFromString(total); err != nil {
			return nil, err
		}
		if e.PrincipalComponent, err = engine.MoneyFromString(principalC); err != nil {
			return nil, err
		}
		if e.InterestComponent, err = engine.MoneyFromString(interestC); err != nil {
			return nil, err
		}
		if e.RemainingPrincipal, err = engine.MoneyFromString(remaining); err != nil {
			return nil, err
		}
		e.Status = loan.EmiStatus(status)
		e.PaidBy = strPtr(paidBy)
		e.PaidAt = timePtr(paidAt)
		if e.BalanceBefore, err = moneyPtr(before); err != nil {
			return nil, err
		}
		if e.BalanceAfter, err = moneyPtr(after); err != nil {
			return nil, err
		}
		schedule = append(schedule, e)
	}
	return schedule, rows.Err()
}

func (s *Store) PutLoan(ctx context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putLoan(ctx, s.db, l)
}

func putLoan(ctx context.Context, db dbtx, l *loan.Loan) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loanArgs(l)...,
	)
	if err != nil {
		return fmt.Errorf("failed to put loan: %w", err)
	}
	return writeSchedule(ctx, db, l)
}

func loanArgs(l *loan.Loan) []any {
	args := []any{
		l.ID, l.AccountNumber, string(l.Kind), l.Principal.String(), l.AnnualRatePct, l.TenureMonths, string(l.Status),
		formatTime(l.AppliedAt),
		nullStrPtr(l.ApprovedBy), nullTimePtr(l.ApprovedAt),
		nullStrPtr(l.RejectedBy), nullTimePtr(l.RejectedAt), nullStrPtr(l.RejectionReason),
		nullStrPtr(l.ForeclosedBy), nullTimePtr(l.ForeclosedAt),
		nullMoneyPtr(l.ForeclosureAmount), nullMoneyPtr(l.ForeclosureCharge), nullMoneyPtr(l.ForeclosureGst),
		nullTimePtr(l.PaidAt),
	}
	if l.Collateral != nil {
		col := l.Collateral
		args = append(args,
			col.GoldGrams, col.GoldRatePerGram.String(), col.GoldValue.String(), col.LoanToValue,
			nullStrPtr(col.VerifiedBy), nullTimePtr(col.VerifiedAt),
			nullFloatPtr(col.VerifiedGrams), nullMoneyPtr(col.VerifiedValue),
		)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil, nil, nil)
	}
	return args
}

func writeSchedule(ctx context.Context, db dbtx, l *loan.Loan) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM emi_payments WHERE loan_id = ?`, l.ID,
	); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}
	for _, e := range l.Schedule {
		_, err := db.ExecContext(ctx,
			`INSERT INTO emi_payments
			 (loan_id, emi_number, due_date, total_amount, principal_component, interest_component,
			  remaining_principal, status, paid_by, paid_at, balance_before, balance_after)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, e.EmiNumber, formatTime(e.DueDate),
			e.TotalAmount.String(), e.PrincipalComponent.String(), e.InterestComponent.String(),
			e.RemainingPrincipal.String(), string(e.Status),
			nullStrPtr(e.PaidBy), nullTimePtr(e.PaidAt),
			nullMoneyPtr(e.BalanceBefore), nullMoneyPtr(e.BalanceAfter),
		)
		if err != nil {
			return fmt.Errorf("failed to write schedule row: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveLoan(ctx context.Context, l *loan.Loan, guard engine.StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLoan(ctx, s.db, l, guard)
}

func saveLoan(ctx context.Context, db dbtx, l *loan.Loan, guard engine.StatusGuard) error {
	args := []any{
		l.Principal.String(), string(l.Status),
		nullStrPtr(l.ApprovedBy), nullTimePtr(l.ApprovedAt),
		nullStrPtr(l.RejectedBy), nullTimePtr(l.RejectedAt), nullStrPtr(l.RejectionReason),
		nullStrPtr(l.ForeclosedBy), nullTimePtr(l.ForeclosedAt),
		nullMoneyPtr(l.ForeclosureAmount), nullMoneyPtr(l.ForeclosureCharge), nullMoneyPtr(l.ForeclosureGst),
		nullTimePtr(l.PaidAt),
	}
	if l.Collateral != nil {
		col := l.Collateral
		args = append(args,
			col.GoldGrams, col.GoldRatePerGram.String(), col.GoldValue.String(), col.LoanToValue,
			nullStrPtr(col.VerifiedBy), nullTimePtr(col.VerifiedAt),
			nullFloatPtr(col.VerifiedGrams), nullMoneyPtr(col.VerifiedValue),
		)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil, nil, nil)
	}
	args = append(args, l.ID, guard.Status)

	res, err := db.ExecContext(ctx,
		`UPDATE loans SET
			principal = ?, status = ?,
			approved_by = ?, approved_at = ?,
			rejected_by = ?, rejected_at = ?, rejection_reason = ?,
			foreclosed_by = ?, foreclosed_at = ?,
			foreclosure_amount = ?, foreclosure_charge = ?, foreclosure_gst = ?,
			paid_at = ?,
			gold_grams = ?, gold_rate_per_gram = ?, gold_value = ?, loan_to_value = ?,
			gold_verified_by = ?, gold_verified_at = ?, gold_verified_grams = ?, gold_verified_value = ?
		 WHERE id = ? AND status = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	if err := checkGuard(ctx, db, res, "loans", "id", l.ID); err != nil {
		return err
	}
	return writeSchedule(ctx, db, l)
}

func (s *Store) ListLoansByStatus(ctx context.Context, status loan.Status) ([]*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLoansByStatus(ctx, s.db, status)
}

func listLoansByStatus(ctx context.Context, db dbtx, status loan.Status) ([]*loan.Loan, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM loans WHERE status = ? ORDER BY applied_at ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*loan.Loan, 0, len(ids))
	for _, id := range ids {
		l, err := getLoan(ctx, db, id)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONAL STORE (bank.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store bank.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every call through the open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

var _ bank.Store = (*txStore)(nil)

func (ts *txStore) Account(ctx context.Context, number string) (*engine.Account, error) {
	return getAccount(ctx, ts.tx, number)
}
func (ts *txStore) PutAccount(ctx context.Context, a *engine.Account) error {
	return putAccount(ctx, ts.tx, a)
}
func (ts *txStore) ApplyDelta(ctx context.Context, number string, delta engine.Money) (engine.Money, engine.Money, error) {
	return applyDelta(ctx, ts.tx, number, delta)
}
func (ts *txStore) AppendTransaction(ctx context.Context, rec engine.TransactionRecord) error {
	return appendTransaction(ctx, ts.tx, rec)
}
func (ts *txStore) TransactionsByAccount(ctx context.Context, number string) ([]engine.TransactionRecord, error) {
	return transactionsByAccount(ctx, ts.tx, number)
}
func (ts *txStore) Cheque(ctx context.Context, number string) (*cheque.Cheque, error) {
	return getCheque(ctx, ts.tx, number)
}
func (ts *txStore) PutCheque(ctx context.Context, c *cheque.Cheque) error {
	return putCheque(ctx, ts.tx, c)
}
func (ts *txStore) SaveCheque(ctx context.Context, c *cheque.Cheque, guard engine.StatusGuard) error {
	return saveCheque(ctx, ts.tx, c, guard)
}
func (ts *txStore) Transfer(ctx context.Context, id string) (*transfer.Transfer, error) {
	return getTransfer(ctx, ts.tx, id)
}
func (ts *txStore) PutTransfer(ctx context.Context, t *transfer.Transfer) error {
	return putTransfer(ctx, ts.tx, t)
}
func (ts *txStore) SaveTransfer(ctx context.Context, t *transfer.Transfer, guard engine.StatusGuard) error {
	return saveTransfer(ctx, ts.tx, t, guard)
}
func (ts *txStore) FixedDeposit(ctx context.Context, id string) (*deposit.FixedDeposit, error) {
	return getFixedDeposit(ctx, ts.tx, id)
}
func (ts *txStore) PutFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit) error {
	return putFixedDeposit(ctx, ts.tx, fd)
}
func (ts *txStore) SaveFixedDeposit(ctx context.Context, fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	return saveFixedDeposit(ctx, ts.tx, fd, guard)
}
func (ts *txStore) ListFixedDepositsByStatus(ctx context.Context, status deposit.Status) ([]*deposit.FixedDeposit, error) {
	return listFixedDepositsByStatus(ctx, ts.tx, status)
}
func (ts *txStore) Loan(ctx context.Context, id string) (*loan.Loan, error) {
	return getLoan(ctx, ts.tx, id)
}
func (ts *txStore) PutLoan(ctx context.Context, l *loan.Loan) error {
	return putLoan(ctx, ts.tx, l)
}
func (ts *txStore) SaveLoan(ctx context.Context, l *loan.Loan, guard engine.StatusGuard) error {
	return saveLoan(ctx, ts.tx, l, guard)
}
func (ts *txStore) ListLoansByStatus(ctx context.Context, status loan.Status) ([]*loan.Loan, error) {
	return listLoansByStatus(ctx, ts.tx, status)
}

// =============================================================================
// HELPERS
// =============================================================================

// checkGuard interprets a guarded UPDATE's row count: zero rows on an
// existing row means another writer changed the status first.
func checkGuard(ctx context.Context, db dbtx, res sql.Result, table, idCol, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE `+idCol+` = ?`, id,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		return engine.ErrNotFound
	}
	return engine.ErrConcurrentModification
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStrPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTimePtr(p *time.Time) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*p), Valid: true}
}

func nullMoneyPtr(p *engine.Money) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

func nullFloatPtr(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func moneyPtr(ns sql.NullString) (*engine.Money, error) {
	if !ns.Valid {
		return nil, nil
	}
	m, err := engine.MoneyFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
