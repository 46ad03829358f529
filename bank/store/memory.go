// Package store provides bank.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/atlasbank/instrument-engine/bank"
	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]*engine.Account
	cheques      map[string]*cheque.Cheque
	transfers    map[string]*transfer.Transfer
	deposits     map[string]*deposit.FixedDeposit
	loans        map[string]*loan.Loan
	transactions map[string][]engine.TransactionRecord
	idempotency  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]*engine.Account),
		cheques:      make(map[string]*cheque.Cheque),
		transfers:    make(map[string]*transfer.Transfer),
		deposits:     make(map[string]*deposit.FixedDeposit),
		loans:        make(map[string]*loan.Loan),
		transactions: make(map[string][]engine.TransactionRecord),
		idempotency:  make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------
// Clone helpers. The store hands out and keeps deep copies so callers
// can never mutate persisted state outside a save.
// -----------------------------------------------------------------------------

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAccount(a *engine.Account) *engine.Account {
	c := *a
	return &c
}

func cloneCheque(c *cheque.Cheque) *cheque.Cheque {
	out := *c
	out.RequestedBy = clonePtr(c.RequestedBy)
	out.RequestedAt = clonePtr(c.RequestedAt)
	out.ApprovedBy = clonePtr(c.ApprovedBy)
	out.ApprovedAt = clonePtr(c.ApprovedAt)
	out.RejectedBy = clonePtr(c.RejectedBy)
	out.RejectedAt = clonePtr(c.RejectedAt)
	out.RejectionReason = clonePtr(c.RejectionReason)
	out.DrawnBy = clonePtr(c.DrawnBy)
	out.UsedDate = clonePtr(c.UsedDate)
	out.CancelledBy = clonePtr(c.CancelledBy)
	out.CancelledAt = clonePtr(c.CancelledAt)
	out.CancelReason = clonePtr(c.CancelReason)
	out.BouncedBy = clonePtr(c.BouncedBy)
	out.BouncedAt = clonePtr(c.BouncedAt)
	out.BounceReason = clonePtr(c.BounceReason)
	return &out
}

func cloneTransfer(t *transfer.Transfer) *transfer.Transfer {
	out := *t
	out.CompletedAt = clonePtr(t.CompletedAt)
	out.FailedAt = clonePtr(t.FailedAt)
	out.FailReason = clonePtr(t.FailReason)
	out.CancelledBy = clonePtr(t.CancelledBy)
	out.CancelledAt = clonePtr(t.CancelledAt)
	return &out
}

func cloneDeposit(fd *deposit.FixedDeposit) *deposit.FixedDeposit {
	out := *fd
	out.ApprovedBy = clonePtr(fd.ApprovedBy)
	out.ApprovedAt = clonePtr(fd.ApprovedAt)
	out.RejectedBy = clonePtr(fd.RejectedBy)
	out.RejectedAt = clonePtr(fd.RejectedAt)
	out.RejectionReason = clonePtr(fd.RejectionReason)
	out.StartDate = clonePtr(fd.StartDate)
	out.MaturityDate = clonePtr(fd.MaturityDate)
	out.LastInterestCreditDate = clonePtr(fd.LastInterestCreditDate)
	out.ClosedBy = clonePtr(fd.ClosedBy)
	out.ClosedAt = clonePtr(fd.ClosedAt)
	return &out
}

func cloneEmi(e loan.EmiPayment) loan.EmiPayment {
	e.PaidBy = clonePtr(e.PaidBy)
	e.PaidAt = clonePtr(e.PaidAt)
	e.BalanceBefore = clonePtr(e.BalanceBefore)
	e.BalanceAfter = clonePtr(e.BalanceAfter)
	return e
}

func cloneLoan(l *loan.Loan) *loan.Loan {
	out := *l
	out.ApprovedBy = clonePtr(l.ApprovedBy)
	out.ApprovedAt = clonePtr(l.ApprovedAt)
	out.RejectedBy = clonePtr(l.RejectedBy)
	out.RejectedAt = clonePtr(l.RejectedAt)
	out.RejectionReason = clonePtr(l.RejectionReason)
	out.PaidAt = clonePtr(l.PaidAt)
	out.ForeclosedBy = clonePtr(l.ForeclosedBy)
	out.ForeclosedAt = clonePtr(l.ForeclosedAt)
	out.ForeclosureAmount = clonePtr(l.ForeclosureAmount)
	out.ForeclosureCharge = clonePtr(l.ForeclosureCharge)
	out.ForeclosureGst = clonePtr(l.ForeclosureGst)
	if l.Collateral != nil {
		col := *l.Collateral
		col.VerifiedBy = clonePtr(l.Collateral.VerifiedBy)
		col.VerifiedAt = clonePtr(l.Collateral.VerifiedAt)
		col.VerifiedGrams = clonePtr(l.Collateral.VerifiedGrams)
		col.VerifiedValue = clonePtr(l.Collateral.VerifiedValue)
		out.Collateral = &col
	}
	if l.Schedule != nil {
		out.Schedule = make([]loan.EmiPayment, len(l.Schedule))
		for i, e := range l.Schedule {
			out.Schedule[i] = cloneEmi(e)
		}
	}
	return &out
}

// -----------------------------------------------------------------------------
// Accounts and the ledger
// -----------------------------------------------------------------------------

func (m *Memory) Account(_ context.Context, number string) (*engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(number)
}

func (m *Memory) accountLocked(number string) (*engine.Account, error) {
	a, ok := m.accounts[number]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *Memory) PutAccount(_ context.Context, a *engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.Number] = cloneAccount(a)
	return nil
}

func (m *Memory) putAccountLocked(a *engine.Account) error {
	m.accounts[a.Number] = cloneAccount(a)
	return nil
}

func (m *Memory) ApplyDelta(_ context.Context, number string, delta engine.Money) (engine.Money, engine.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyDeltaLocked(number, delta)
}

func (m *Memory) applyDeltaLocked(number string, delta engine.Money) (engine.Money, engine.Money, error) {
	a, ok := m.accounts[number]
	if !ok {
		return engine.Money{}, engine.Money{}, engine.ErrNotFound
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
	a.Balance = after
	return before, after, nil
}

func (m *Memory) AppendTransaction(_ context.Context, rec engine.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendTransactionLocked(rec)
}

func (m *Memory) appendTransactionLocked(rec engine.TransactionRecord) error {
	if rec.IdempotencyKey != "" && m.idempotency[rec.IdempotencyKey] {
		return engine.ErrDuplicateIdempotencyKey
	}
	m.transactions[rec.AccountNumber] = append(m.transactions[rec.AccountNumber], rec)
	if rec.IdempotencyKey != "" {
		m.idempotency[rec.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) TransactionsByAccount(_ context.Context, number string) ([]engine.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsByAccountLocked(number)
}

func (m *Memory) transactionsByAccountLocked(number string) ([]engine.TransactionRecord, error) {
	result := make([]engine.TransactionRecord, len(m.transactions[number]))
	copy(result, m.transactions[number])
	return result, nil
}

// -----------------------------------------------------------------------------
// Cheques
// -----------------------------------------------------------------------------

func (m *Memory) Cheque(_ context.Context, number string) (*cheque.Cheque, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chequeLocked(number)
}

func (m *Memory) chequeLocked(number string) (*cheque.Cheque, error) {
	c, ok := m.cheques[number]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneCheque(c), nil
}

func (m *Memory) PutCheque(_ context.Context, c *cheque.Cheque) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cheques[c.Number] = cloneCheque(c)
	return nil
}

func (m *Memory) putChequeLocked(c *cheque.Cheque) error {
	m.cheques[c.Number] = cloneCheque(c)
	return nil
}

func (m *Memory) SaveCheque(_ context.Context, c *cheque.Cheque, guard engine.StatusGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveChequeLocked(c, guard)
}

func (m *Memory) saveChequeLocked(c *cheque.Cheque, guard engine.StatusGuard) error {
	cur, ok := m.cheques[c.Number]
	if !ok {
		return engine.ErrNotFound
	}
	if cur.Guard() != guard {
		return engine.ErrConcurrentModification
	}
	m.cheques[c.Number] = cloneCheque(c)
	return nil
}

// -----------------------------------------------------------------------------
// Transfers
// -----------------------------------------------------------------------------

func (m *Memory) Transfer(_ context.Context, id string) (*transfer.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transferLocked(id)
}

func (m *Memory) transferLocked(id string) (*transfer.Transfer, error) {
	t, ok := m.transfers[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneTransfer(t), nil
}

func (m *Memory) PutTransfer(_ context.Context, t *transfer.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (m *Memory) putTransferLocked(t *transfer.Transfer) error {
	m.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (m *Memory) SaveTransfer(_ context.Context, t *transfer.Transfer, guard engine.StatusGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTransferLocked(t, guard)
}

func (m *Memory) saveTransferLocked(t *transfer.Transfer, guard engine.StatusGuard) error {
	cur, ok := m.transfers[t.ID]
	if !ok {
		return engine.ErrNotFound
	}
	if cur.Guard() != guard {
		return engine.ErrConcurrentModification
	}
	m.transfers[t.ID] = cloneTransfer(t)
	return nil
}

// -----------------------------------------------------------------------------
// Fixed deposits
// -----------------------------------------------------------------------------

func (m *Memory) FixedDeposit(_ context.Context, id string) (*deposit.FixedDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fixedDepositLocked(id)
}

func (m *Memory) fixedDepositLocked(id string) (*deposit.FixedDeposit, error) {
	fd, ok := m.deposits[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneDeposit(fd), nil
}

func (m *Memory) PutFixedDeposit(_ context.Context, fd *deposit.FixedDeposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[fd.ID] = cloneDeposit(fd)
	return nil
}

func (m *Memory) putFixedDepositLocked(fd *deposit.FixedDeposit) error {
	m.deposits[fd.ID] = cloneDeposit(fd)
	return nil
}

func (m *Memory) SaveFixedDeposit(_ context.Context, fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveFixedDepositLocked(fd, guard)
}

func (m *Memory) saveFixedDepositLocked(fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	cur, ok := m.deposits[fd.ID]
	if !ok {
		return engine.ErrNotFound
	}
	if cur.Guard() != guard {
		return engine.ErrConcurrentModification
	}
	m.deposits[fd.ID] = cloneDeposit(fd)
	return nil
}

func (m *Memory) ListFixedDepositsByStatus(_ context.Context, status deposit.Status) ([]*deposit.FixedDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listFixedDepositsByStatusLocked(status)
}

func (m *Memory) listFixedDepositsByStatusLocked(status deposit.Status) ([]*deposit.FixedDeposit, error) {
	var result []*deposit.FixedDeposit
	for _, fd := range m.deposits {
		if fd.Status == status {
			result = append(result, cloneDeposit(fd))
		}
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Loans
// -----------------------------------------------------------------------------

func (m *Memory) Loan(_ context.Context, id string) (*loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loanLocked(id)
}

func (m *Memory) loanLocked(id string) (*loan.Loan, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneLoan(l), nil
}

func (m *Memory) PutLoan(_ context.Context, l *loan.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = cloneLoan(l)
	return nil
}

func (m *Memory) putLoanLocked(l *loan.Loan) error {
	m.loans[l.ID] = cloneLoan(l)
	return nil
}

func (m *Memory) SaveLoan(_ context.Context, l *loan.Loan, guard engine.StatusGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLoanLocked(l, guard)
}

func (m *Memory) saveLoanLocked(l *loan.Loan, guard engine.StatusGuard) error {
	cur, ok := m.loans[l.ID]
	if !ok {
		return engine.ErrNotFound
	}
	if cur.Guard() != guard {
		return engine.ErrConcurrentModification
	}
	m.loans[l.ID] = cloneLoan(l)
	return nil
}

func (m *Memory) ListLoansByStatus(_ context.Context, status loan.Status) ([]*loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLoansByStatusLocked(status)
}

func (m *Memory) listLoansByStatusLocked(status loan.Status) ([]*loan.Loan, error) {
	var result []*loan.Loan
	for _, l := range m.loans {
		if l.Status == status {
			result = append(result, cloneLoan(l))
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(bank.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts     map[string]*engine.Account
	cheques      map[string]*cheque.Cheque
	transfers    map[string]*transfer.Transfer
	deposits     map[string]*deposit.FixedDeposit
	loans        map[string]*loan.Loan
	transactions map[string][]engine.TransactionRecord
	idempotency  map[string]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts:     make(map[string]*engine.Account, len(tm.accounts)),
		cheques:      make(map[string]*cheque.Cheque, len(tm.cheques)),
		transfers:    make(map[string]*transfer.Transfer, len(tm.transfers)),
		deposits:     make(map[string]*deposit.FixedDeposit, len(tm.deposits)),
		loans:        make(map[string]*loan.Loan, len(tm.loans)),
		transactions: make(map[string][]engine.TransactionRecord, len(tm.transactions)),
		idempotency:  make(map[string]bool, len(tm.idempotency)),
	}
	for k, v := range tm.accounts {
		s.accounts[k] = cloneAccount(v)
	}
	for k, v := range tm.cheques {
		s.cheques[k] = cloneCheque(v)
	}
	for k, v := range tm.transfers {
		s.transfers[k] = cloneTransfer(v)
	}
	for k, v := range tm.deposits {
		s.deposits[k] = cloneDeposit(v)
	}
	for k, v := range tm.loans {
		s.loans[k] = cloneLoan(v)
	}
	for k, v := range tm.transactions {
		s.transactions[k] = append([]engine.TransactionRecord{}, v...)
	}
	for k, v := range tm.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.cheques = s.cheques
	tm.transfers = s.transfers
	tm.deposits = s.deposits
	tm.loans = s.loans
	tm.transactions = s.transactions
	tm.idempotency = s.idempotency
}

// txMemoryView routes calls to the parent's locked helpers while the
// parent holds its write lock for the duration of WithTx.
type txMemoryView struct {
	parent *TxMemory
}

var _ bank.Store = (*txMemoryView)(nil)
var _ bank.TxStore = (*TxMemory)(nil)

func (tv *txMemoryView) Account(_ context.Context, number string) (*engine.Account, error) {
	return tv.parent.accountLocked(number)
}
func (tv *txMemoryView) PutAccount(_ context.Context, a *engine.Account) error {
	return tv.parent.putAccountLocked(a)
}
func (tv *txMemoryView) ApplyDelta(_ context.Context, number string, delta engine.Money) (engine.Money, engine.Money, error) {
	return tv.parent.applyDeltaLocked(number, delta)
}
func (tv *txMemoryView) AppendTransaction(_ context.Context, rec engine.TransactionRecord) error {
	return tv.parent.appendTransactionLocked(rec)
}
func (tv *txMemoryView) TransactionsByAccount(_ context.Context, number string) ([]engine.TransactionRecord, error) {
	return tv.parent.transactionsByAccountLocked(number)
}
func (tv *txMemoryView) Cheque(_ context.Context, number string) (*cheque.Cheque, error) {
	return tv.parent.chequeLocked(number)
}
func (tv *txMemoryView) PutCheque(_ context.Context, c *cheque.Cheque) error {
	return tv.parent.putChequeLocked(c)
}
func (tv *txMemoryView) SaveCheque(_ context.Context, c *cheque.Cheque, guard engine.StatusGuard) error {
	return tv.parent.saveChequeLocked(c, guard)
}
func (tv *txMemoryView) Transfer(_ context.Context, id string) (*transfer.Transfer, error) {
	return tv.parent.transferLocked(id)
}
func (tv *txMemoryView) PutTransfer(_ context.Context, t *transfer.Transfer) error {
	return tv.parent.putTransferLocked(t)
}
func (tv *txMemoryView) SaveTransfer(_ context.Context, t *transfer.Transfer, guard engine.StatusGuard) error {
	return tv.parent.saveTransferLocked(t, guard)
}
func (tv *txMemoryView) FixedDeposit(_ context.Context, id string) (*deposit.FixedDeposit, error) {
	return tv.parent.fixedDepositLocked(id)
}
func (tv *txMemoryView) PutFixedDeposit(_ context.Context, fd *deposit.FixedDeposit) error {
	return tv.parent.putFixedDepositLocked(fd)
}
func (tv *txMemoryView) SaveFixedDeposit(_ context.Context, fd *deposit.FixedDeposit, guard engine.StatusGuard) error {
	return tv.parent.saveFixedDepositLocked(fd, guard)
}
func (tv *txMemoryView) ListFixedDepositsByStatus(_ context.Context, status deposit.Status) ([]*deposit.FixedDeposit, error) {
	return tv.parent.listFixedDepositsByStatusLocked(status)
}
func (tv *txMemoryView) Loan(_ context.Context, id string) (*loan.Loan, error) {
	return tv.parent.loanLocked(id)
}
func (tv *txMemoryView) PutLoan(_ context.Context, l *loan.Loan) error {
	return tv.parent.putLoanLocked(l)
}
func (tv *txMemoryView) SaveLoan(_ context.Context, l *loan.Loan, guard engine.StatusGuard) error {
	return tv.parent.saveLoanLocked(l, guard)
}
func (tv *txMemoryView) ListLoansByStatus(_ context.Context, status loan.Status) ([]*loan.Loan, error) {
	return tv.parent.listLoansByStatusLocked(status)
}
