/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. requestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for back-office frontends

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// requestID tags every request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.OpenAccount)
			r.Get("/{number}", h.GetAccount)
			r.Get("/{number}/transactions", h.GetTransactions)
		})

		r.Route("/cheques", func(r chi.Router) {
			r.Post("/", h.IssueCheque)
			r.Get("/{number}", h.GetCheque)
			r.Post("/{number}/request-draw", h.RequestChequeDraw)
			r.Post("/{number}/approve", h.ApproveChequeDraw)
			r.Post("/{number}/reject", h.RejectChequeDraw)
			r.Post("/{number}/draw", h.DrawCheque)
			r.Post("/{number}/cancel", h.CancelCheque)
			r.Post("/{number}/bounce", h.BounceCheque)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.SubmitTransfer)
			r.Get("/{id}", h.GetTransfer)
			r.Post("/{id}/cancel", h.CancelTransfer)
		})

		r.Route("/deposits", func(r chi.Router) {
			r.Post("/", h.OpenDeposit)
			r.Get("/{id}", h.GetDeposit)
			r.Post("/{id}/approve", h.ApproveDeposit)
			r.Post("/{id}/reject", h.RejectDeposit)
			r.Post("/{id}/activate", h.ActivateDeposit)
			r.Post("/{id}/credit-interest", h.CreditDepositInterest)
			r.Post("/{id}/close", h.CloseDeposit)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.ApplyLoan)
			r.Post("/gold", h.ApplyGoldLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/verify-collateral", h.VerifyCollateral)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/pay-emi", h.PayEmi)
			r.Get("/{id}/foreclosure-quote", h.GetForeclosureQuote)
			r.Post("/{id}/foreclose", h.ForecloseLoan)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweeps/fd-accrual", h.RunFdAccrualSweep)
			r.Post("/sweeps/emi-overdue", h.RunEmiOverdueSweep)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
