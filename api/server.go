/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*       Bank accounts
  /api/cards/*          Bank cards
  /api/debts/*          Debts and payments
  /api/goals/*          Savings goals and contributions
  /api/investments/*    Investments
  /api/subscriptions/*  Subscriptions
  /api/assets/*         Tangible assets
  /api/taxes/*          Tax payments
  /api/transactions/*   The ledger itself
  /api/profiles/*       Per-profile dashboard view
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness probe

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
)

// NewRouter creates a new router with all routes configured. metricsHandler
// may be nil when metrics are disabled.
func NewRouter(h *Handler, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.CreateCard)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Post("/{id}/payments", h.PayDebt)
			r.Get("/{id}/payments", h.ListDebtPayments)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.ListGoals)
			r.Post("/", h.CreateGoal)
			r.Post("/{id}/contributions", h.ContributeToGoal)
			r.Get("/{id}/contributions", h.ListGoalContributions)
		})

		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.ListInvestments)
			r.Post("/", h.CreateInvestment)
			r.Post("/{id}/contributions", h.ContributeToInvestment)
			r.Get("/{id}/contributions", h.ListInvestmentContributions)
			r.Post("/{id}/close", h.CloseInvestment)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.ListSubscriptions)
			r.Post("/", h.CreateSubscription)
			r.Post("/{id}/pay", h.PaySubscription)
			r.Post("/{id}/cancel", h.CancelSubscription)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Post("/{id}/sell", h.SellAsset)
		})

		r.Route("/taxes", func(r chi.Router) {
			r.Get("/", h.ListTaxPayments)
			r.Post("/", h.PayTax)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.ApplyTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Patch("/{id}", h.EditTransaction)
			r.Put("/{id}", h.AmendTransaction)
			r.Delete("/{id}", h.ReverseTransaction)
		})

		r.Get("/profiles/{profile}/view", h.GetProfileView)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
