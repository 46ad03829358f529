/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  JSON shapes exchanged with clients. Money travels as decimal strings
  ("2500.00"), never floats; timestamps as RFC 3339.

SEE ALSO:
  - handlers.go: Handler implementations using these DTOs
*/
package api

import (
	"time"

	"github.com/atlasbank/instrument-engine/cheque"
	"github.com/atlasbank/instrument-engine/deposit"
	"github.com/atlasbank/instrument-engine/engine"
	"github.com/atlasbank/instrument-engine/loan"
	"github.com/atlasbank/instrument-engine/transfer"
)

// =============================================================================
// REQUESTS
// =============================================================================

type OpenAccountRequest struct {
	HolderID       string `json:"holder_id"`
	OpeningBalance string `json:"opening_balance"`
}

type IssueChequeRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
}

type ActorRequest struct {
	Actor string `json:"actor"`
}

type ActorReasonRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type SubmitTransferRequest struct {
	FromAccount  string `json:"from_account"`
	ToAccount    string `json:"to_account"`
	Amount       string `json:"amount"`
	TransferType string `json:"transfer_type"`
}

type OpenDepositRequest struct {
	AccountNumber string  `json:"account_number"`
	Principal     string  `json:"principal"`
	TenureMonths  int     `json:"tenure_months"`
	InterestRate  float64 `json:"interest_rate,omitempty"`
}

type ApplyLoanRequest struct {
	AccountNumber string  `json:"account_number"`
	Kind          string  `json:"kind"`
	Principal     string  `json:"principal"`
	AnnualRatePct float64 `json:"annual_rate_pct"`
	TenureMonths  int     `json:"tenure_months"`
}

type ApplyGoldLoanRequest struct {
	AccountNumber string  `json:"account_number"`
	GoldGrams     float64 `json:"gold_grams"`
	RatePerGram   string  `json:"rate_per_gram"`
	AnnualRatePct float64 `json:"annual_rate_pct"`
	TenureMonths  int     `json:"tenure_months"`
}

type VerifyCollateralRequest struct {
	Actor       string  `json:"actor"`
	GoldGrams   float64 `json:"gold_grams"`
	RatePerGram string  `json:"rate_per_gram"`
}

type PayEmiRequest struct {
	EmiNumber int    `json:"emi_number"`
	Actor     string `json:"actor"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type AccountDTO struct {
	Number    string    `json:"number"`
	HolderID  string    `json:"holder_id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountDTO(a *engine.Account) AccountDTO {
	return AccountDTO{
		Number:    a.Number,
		HolderID:  a.HolderID,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt,
	}
}

type TransactionDTO struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	Amount        string    `json:"amount"`
	Kind          string    `json:"kind"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Actor         string    `json:"actor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionDTO(rec engine.TransactionRecord) TransactionDTO {
	return TransactionDTO{
		ID:            rec.ID,
		AccountNumber: rec.AccountNumber,
		Amount:        rec.Amount.String(),
		Kind:          string(rec.Kind),
		ReferenceID:   rec.ReferenceID,
		Description:   rec.Description,
		BalanceBefore: rec.BalanceBefore.String(),
		BalanceAfter:  rec.BalanceAfter.String(),
		Actor:         rec.Actor,
		CreatedAt:     rec.CreatedAt,
	}
}

type ChequeDTO struct {
	Number        string     `json:"number"`
	AccountNumber string     `json:"account_number"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	RequestStatus string     `json:"request_status"`
	RequestedBy   *string    `json:"requested_by,omitempty"`
	RequestedAt   *time.Time `json:"requested_at,omitempty"`
	ApprovedBy    *string    `json:"approved_by,omitempty"`
	RejectedBy    *string    `json:"rejected_by,omitempty"`
	DrawnBy       *string    `json:"drawn_by,omitempty"`
	UsedDate      *time.Time `json:"used_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toChequeDTO(c *cheque.Cheque) ChequeDTO {
	return ChequeDTO{
		Number:        c.Number,
		AccountNumber: c.AccountNumber,
		Amount:        c.Amount.String(),
		Status:        string(c.Status),
		RequestStatus: string(c.RequestStatus),
		RequestedBy:   c.RequestedBy,
		RequestedAt:   c.RequestedAt,
		ApprovedBy:    c.ApprovedBy,
		RejectedBy:    c.RejectedBy,
		DrawnBy:       c.DrawnBy,
		UsedDate:      c.UsedDate,
		CreatedAt:     c.CreatedAt,
	}
}

type TransferDTO struct {
	ID            string     `json:"id"`
	FromAccount   string     `json:"from_account"`
	ToAccount     string     `json:"to_account"`
	Amount        string     `json:"amount"`
	TransferType  string     `json:"transfer_type"`
	Status        string     `json:"status"`
	IsCancellable bool       `json:"is_cancellable"`
	Deadline      *time.Time `json:"cancellation_deadline,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledBy   *string    `json:"cancelled_by,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func toTransferDTO(t *transfer.Transfer) TransferDTO {
	dto := TransferDTO{
		ID:            t.ID,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Amount:        t.Amount.String(),
		TransferType:  string(t.TransferType),
		Status:        string(t.Status),
		IsCancellable: t.IsCancellable,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
		CancelledBy:   t.CancelledBy,
		CancelledAt:   t.CancelledAt,
	}
	if t.IsCancellable && t.Status == transfer.StatusCompleted {
		d := t.Deadline()
		dto.Deadline = &d
	}
	return dto
}

type DepositDTO struct {
	ID                     string     `json:"id"`
	AccountNumber          string     `json:"account_number"`
	Principal              string     `json:"principal"`
	TenureMonths           int        `json:"tenure_months"`
	InterestRate           float64    `json:"interest_rate"`
	Status                 string     `json:"status"`
	StartDate              *time.Time `json:"start_date,omitempty"`
	MaturityDate           *time.Time `json:"maturity_date,omitempty"`
	MonthsInterestCredited int        `json:"months_interest_credited"`
	TotalInterestCredited  string     `json:"total_interest_credited"`
	CreatedAt              time.Time  `json:"created_at"`
}

func toDepositDTO(fd *deposit.FixedDeposit) DepositDTO {
	return DepositDTO{
		ID:                     fd.ID,
		AccountNumber:          fd.AccountNumber,
		Principal:              fd.Principal.String(),
		TenureMonths:           fd.TenureMonths,
		InterestRate:           fd.InterestRate,
		Status:                 string(fd.Status),
		StartDate:              fd.StartDate,
		MaturityDate:           fd.MaturityDate,
		MonthsInterestCredited: fd.MonthsInterestCredited,
		TotalInterestCredited:  fd.TotalInterestCredited.String(),
		CreatedAt:              fd.CreatedAt,
	}
}

type EmiDTO struct {
	EmiNumber          int        `json:"emi_number"`
	DueDate            time.Time  `json:"due_date"`
	TotalAmount        string     `json:"total_amount"`
	PrincipalComponent string     `json:"principal_component"`
	InterestComponent  string     `json:"interest_component"`
	RemainingPrincipal string     `json:"remaining_principal"`
	Status             string     `json:"status"`
	PaidBy             *string    `json:"paid_by,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
}

type CollateralDTO struct {
	GoldGrams       float64  `json:"gold_grams"`
	GoldRatePerGram string   `json:"gold_rate_per_gram"`
	GoldValue       string   `json:"gold_value"`
	LoanToValue     float64  `json:"loan_to_value"`
	VerifiedBy      *string  `json:"verified_by,omitempty"`
	VerifiedGrams   *float64 `json:"verified_grams,omitempty"`
	VerifiedValue   *string  `json:"verified_value,omitempty"`
}

type LoanDTO struct {
	ID                string         `json:"id"`
	AccountNumber     string         `json:"account_number"`
	Kind              string         `json:"kind"`
	Principal         string         `json:"principal"`
	AnnualRatePct     float64        `json:"annual_rate_pct"`
	TenureMonths      int            `json:"tenure_months"`
	Status            string         `json:"status"`
	ForeclosureAmount *string        `json:"foreclosure_amount,omitempty"`
	Collateral        *CollateralDTO `json:"collateral,omitempty"`
	Schedule          []EmiDTO       `json:"schedule,omitempty"`
}

func toLoanDTO(l *loan.Loan) LoanDTO {
	dto := LoanDTO{
		ID:            l.ID,
		AccountNumber: l.AccountNumber,
		Kind:          string(l.Kind),
		Principal:     l.Principal.String(),
		AnnualRatePct: l.AnnualRatePct,
		TenureMonths:  l.TenureMonths,
		Status:        string(l.Status),
	}
	if l.ForeclosureAmount != nil {
		s := l.ForeclosureAmount.String()
		dto.ForeclosureAmount = &s
	}
	if l.Collateral != nil {
		col := CollateralDTO{
			GoldGrams:       l.Collateral.GoldGrams,
			GoldRatePerGram: l.Collateral.GoldRatePerGram.String(),
			GoldValue:       l.Collateral.GoldValue.String(),
			LoanToValue:     l.Collateral.LoanToValue,
			VerifiedBy:      l.Collateral.VerifiedBy,
			VerifiedGrams:   l.Collateral.VerifiedGrams,
		}
		if l.Collateral.VerifiedValue != nil {
			s := l.Collateral.VerifiedValue.String()
			col.VerifiedValue = &s
		}
		dto.Collateral = &col
	}
	for _, e := range l.Schedule {
		dto.Schedule = append(dto.Schedule, EmiDTO{
			EmiNumber:          e.EmiNumber,
			DueDate:            e.DueDate,
			TotalAmount:        e.TotalAmount.String(),
			PrincipalComponent: e.PrincipalComponent.String(),
			InterestComponent:  e.InterestComponent.String(),
			RemainingPrincipal: e.RemainingPrincipal.String(),
			Status:             string(e.Status),
			PaidBy:             e.PaidBy,
			PaidAt:             e.PaidAt,
		})
	}
	return dto
}

type ForeclosureQuoteDTO struct {
	RemainingPrincipal string `json:"remaining_principal"`
	Charge             string `json:"charge"`
	Gst                string `json:"gst"`
	Total              string `json:"total"`
}

type SweepReportDTO struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Errors  int `json:"errors"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
