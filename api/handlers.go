/*
handlers.go - HTTP API handlers for the instrument lifecycle engine

PURPOSE:
  Exposes the lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to bank.Service.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                       Open account
    GET    /api/accounts/{number}              Get account
    GET    /api/accounts/{number}/transactions Transaction history

  Cheques:
    POST   /api/cheques                        Issue cheque leaf
    GET    /api/cheques/{number}               Get cheque
    POST   /api/cheques/{number}/request-draw  Customer requests a draw
    POST   /api/cheques/{number}/approve       Approve the draw request
    POST   /api/cheques/{number}/reject        Reject the draw request
    POST   /api/cheques/{number}/draw          Execute approved draw (debits)
    POST   /api/cheques/{number}/cancel        Cancel the leaf
    POST   /api/cheques/{number}/bounce        Mark bounced

  Transfers:
    POST   /api/transfers                      Submit and settle a transfer
    GET    /api/transfers/{id}                 Get transfer
    POST   /api/transfers/{id}/cancel          Recall within the window

  Fixed deposits:
    POST   /api/deposits                       Open (pending approval)
    GET    /api/deposits/{id}                  Get deposit
    POST   /api/deposits/{id}/approve          Approve
    POST   /api/deposits/{id}/reject           Reject
    POST   /api/deposits/{id}/activate         Place (debits principal)
    POST   /api/deposits/{id}/credit-interest  Catch up monthly accrual
    POST   /api/deposits/{id}/close            Premature closure

  Loans:
    POST   /api/loans                          Apply
    POST   /api/loans/gold                     Apply with gold collateral
    GET    /api/loans/{id}                     Get loan (with schedule)
    POST   /api/loans/{id}/verify-collateral   Admin valuation
    POST   /api/loans/{id}/approve             Approve and disburse
    POST   /api/loans/{id}/reject              Reject
    POST   /api/loans/{id}/pay-emi             Pay the next installment
    GET    /api/loans/{id}/foreclosure-quote   Quote without mutation
    POST   /api/loans/{id}/foreclose           Freeze and settle

  Admin:
    POST   /api/admin/sweeps/fd-accrual        Run the FD accrual sweep
    POST   /api/admin/sweeps/emi-overdue       Run the overdue sweep

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, unparseable amounts
  - 404: Instrument or account not found
  - 409: Illegal transition, expired window, lost race, duplicate,
         insufficient funds
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlasbank/instrument-engine/bank"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *bank.Service
}

func NewHandler(svc *bank.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

// OpenAccount creates an account.
// POST /api/accounts
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	balance, err := engine.MoneyFromString(req.OpeningBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening_balance", err)
		return
	}
	a, err := h.Service.OpenAccount(r.Context(), req.HolderID, balance)
	if err != nil {
		writeDomainError(w, "Failed to open account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

// GetAccount returns one account.
// GET /api/accounts/{number}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.Store.Account(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// GetTransactions returns the account's ledger history.
// GET /api/accounts/{number}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.Store.TransactionsByAccount(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "Failed to get transactions", err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toTransactionDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CHEQUE ENDPOINTS
// =============================================================================

// IssueCheque issues a cheque leaf against an account.
// POST /api/cheques
func (h *Handler) IssueCheque(w http.ResponseWriter, r *http.Request) {
	var req IssueChequeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := engine.MoneyFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	c, err := h.Service.IssueCheque(r.Context(), req.AccountNumber, amount)
	if err != nil {
		writeDomainError(w, "Failed to issue cheque", err)
		return
	}
	writeJSON(w, http.StatusCreated, toChequeDTO(c))
}

// GetCheque returns one cheque.
// GET /api/cheques/{number}
func (h *Handler) GetCheque(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Store.Cheque(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "Failed to get cheque", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// RequestChequeDraw opens the draw request workflow.
// POST /api/cheques/{number}/request-draw
func (h *Handler) RequestChequeDraw(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.RequestChequeDraw(r.Context(), chi.URLParam(r, "number"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to request draw", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// ApproveChequeDraw approves a pending draw request.
// POST /api/cheques/{number}/approve
func (h *Handler) ApproveChequeDraw(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.ApproveChequeDraw(r.Context(), chi.URLParam(r, "number"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to approve draw", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// RejectChequeDraw rejects a pending draw request.
// POST /api/cheques/{number}/reject
func (h *Handler) RejectChequeDraw(w http.ResponseWriter, r *http.Request) {
	var req ActorReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.RejectChequeDraw(r.Context(), chi.URLParam(r, "number"), req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject draw", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// DrawCheque executes an approved draw, debiting the account.
// POST /api/cheques/{number}/draw
func (h *Handler) DrawCheque(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, rec, err := h.Service.DrawCheque(r.Context(), chi.URLParam(r, "number"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to draw cheque", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cheque":      toChequeDTO(c),
		"transaction": toTransactionDTO(*rec),
	})
}

// CancelCheque cancels an active leaf.
// POST /api/cheques/{number}/cancel
func (h *Handler) CancelCheque(w http.ResponseWriter, r *http.Request) {
	var req ActorReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.CancelCheque(r.Context(), chi.URLParam(r, "number"), req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to cancel cheque", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// BounceCheque marks an active leaf bounced.
// POST /api/cheques/{number}/bounce
func (h *Handler) BounceCheque(w http.ResponseWriter, r *http.Request) {
	var req ActorReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.BounceCheque(r.Context(), chi.URLParam(r, "number"), req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to bounce cheque", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(c))
}

// =============================================================================
// TRANSFER ENDPOINTS
// =============================================================================

// SubmitTransfer creates and settles a transfer.
// POST /api/transfers
func (h *Handler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var req SubmitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := engine.MoneyFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	t, err := h.Service.SubmitTransfer(r.Context(), req.FromAccount, req.ToAccount, amount, transfer.Type(req.TransferType))
	if err != nil {
		writeDomainError(w, "Failed to submit transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(t))
}

// GetTransfer returns one transfer.
// GET /api/transfers/{id}
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Store.Transfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(t))
}

// CancelTransfer recalls a completed NEFT transfer inside its window.
// POST /api/transfers/{id}/cancel
func (h *Handler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Service.CancelTransfer(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to cancel transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(t))
}

// =============================================================================
// FIXED DEPOSIT ENDPOINTS
// =============================================================================

// OpenDeposit opens a fixed deposit pending approval. A zero or absent
// interest_rate derives the rate from the tenure.
// POST /api/deposits
func (h *Handler) OpenDeposit(w http.ResponseWriter, r *http.Request) {
	var req OpenDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	principal, err := engine.MoneyFromString(req.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return
	}
	fd, err := h.Service.OpenFixedDeposit(r.Context(), req.AccountNumber, principal, req.TenureMonths, req.InterestRate)
	if err != nil {
		writeDomainError(w, "Failed to open deposit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepositDTO(fd))
}

// GetDeposit returns one fixed deposit.
// GET /api/deposits/{id}
func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	fd, err := h.Service.Store.FixedDeposit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(fd))
}

// ApproveDeposit approves a pending deposit.
// POST /api/deposits/{id}/approve
func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	fd, err := h.Service.ApproveFixedDeposit(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to approve deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(fd))
}

// RejectDeposit rejects a pending deposit.
// POST /api/deposits/{id}/reject
func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	var req ActorReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	fd, err := h.Service.RejectFixedDeposit(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(fd))
}

// ActivateDeposit places an approved deposit, debiting the principal.
// POST /api/deposits/{id}/activate
func (h *Handler) ActivateDeposit(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	fd, err := h.Service.ActivateFixedDeposit(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to activate deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(fd))
}

// CreditDepositInterest catches the deposit's accrual up to now.
// POST /api/deposits/{id}/credit-interest
func (h *Handler) CreditDepositInterest(w http.ResponseWriter, r *http.Request) {
	fd, credited, err := h.Service.CreditFdInterest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to credit interest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deposit":         toDepositDTO(fd),
		"months_credited": credited,
	})
}

// CloseDeposit closes an active deposit prematurely.
// POST /api/deposits/{id}/close
func (h *Handler) CloseDeposit(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	fd, err := h.Service.CloseFdPrematurely(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to close deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(fd))
}

// =============================================================================
// LOAN ENDPOINTS
// =============================================================================

// ApplyLoan submits a loan application.
// POST /api/loans
func (h *Handler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	var req ApplyLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	principal, err := engine.MoneyFromString(req.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return
	}
	l, err := h.Service.ApplyForLoan(r.Context(), req.AccountNumber, loan.Kind(req.Kind), principal, req.AnnualRatePct, req.TenureMonths)
	if err != nil {
		writeDomainError(w, "Failed to apply for loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// ApplyGoldLoan submits a gold-collateralized loan application. The
// requested principal is the collateral value capped by loan-to-value.
// POST /api/loans/gold
func (h *Handler) ApplyGoldLoan(w http.ResponseWriter, r *http.Request) {
	var req ApplyGoldLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rate, err := engine.MoneyFromString(req.RatePerGram)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate_per_gram", err)
		return
	}
	l, err := h.Service.ApplyForGoldLoan(r.Context(), req.AccountNumber, req.GoldGrams, rate, req.AnnualRatePct, req.TenureMonths)
	if err != nil {
		writeDomainError(w, "Failed to apply for gold loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// GetLoan returns one loan with its schedule.
// GET /api/loans/{id}
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.Service.Store.Loan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get loan", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// VerifyCollateral records the admin gold valuation on a pending loan.
// POST /api/loans/{id}/verify-collateral
func (h *Handler) VerifyCollateral(w http.ResponseWriter, r *http.Request) {
	var req VerifyCollateralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rate, err := engine.MoneyFromString(req.RatePerGram)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate_per_gram", err)
		return
	}
	l, err := h.Service.VerifyGoldCollateral(r.Context(), chi.URLParam(r, "id"), req.Actor, req.GoldGrams, rate)
	if err != nil {
		writeDomainError(w, "Failed to verify collateral", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// ApproveLoan approves the loan, generates the schedule, and disburses.
// POST /api/loans/{id}/approve
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, rec, err := h.Service.ApproveLoan(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to approve loan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":        toLoanDTO(l),
		"transaction": toTransactionDTO(*rec),
	})
}

// RejectLoan rejects a pending application.
// POST /api/loans/{id}/reject
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	var req ActorReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, err := h.Service.RejectLoan(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject loan", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// PayEmi pays an installment.
// POST /api/loans/{id}/pay-emi
func (h *Handler) PayEmi(w http.ResponseWriter, r *http.Request) {
	var req PayEmiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, rec, err := h.Service.PayEmi(r.Context(), chi.URLParam(r, "id"), req.EmiNumber, req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to pay EMI", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":        toLoanDTO(l),
		"transaction": toTransactionDTO(*rec),
	})
}

// GetForeclosureQuote returns the foreclosure breakdown.
// GET /api/loans/{id}/foreclosure-quote
func (h *Handler) GetForeclosureQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.Service.QuoteForeclosure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to quote foreclosure", err)
		return
	}
	writeJSON(w, http.StatusOK, ForeclosureQuoteDTO{
		RemainingPrincipal: q.RemainingPrincipal.String(),
		Charge:             q.Charges.String(),
		Gst:                q.Gst.String(),
		Total:              q.Total.String(),
	})
}

// ForecloseLoan settles the loan at the quoted amount.
// POST /api/loans/{id}/foreclose
func (h *Handler) ForecloseLoan(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, rec, err := h.Service.ForecloseLoan(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to foreclose loan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":        toLoanDTO(l),
		"transaction": toTransactionDTO(*rec),
	})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// RunFdAccrualSweep runs the deposit accrual sweep once.
// POST /api/admin/sweeps/fd-accrual
func (h *Handler) RunFdAccrualSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.RunFdAccrualSweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepReportDTO(report))
}

// RunEmiOverdueSweep runs the overdue-installment sweep once.
// POST /api/admin/sweeps/emi-overdue
func (h *Handler) RunEmiOverdueSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.RunEmiOverdueSweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepReportDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, engine.ErrIllegalTransition),
		errors.Is(err, engine.ErrWindowExpired),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrConcurrentModification),
		errors.Is(err, engine.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
