/*
handlers.go - HTTP API handlers for the household ledger engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and derived views.

ENDPOINTS:
  Aggregates:
    GET/POST /api/accounts, /api/cards, /api/debts, /api/goals,
             /api/investments, /api/subscriptions, /api/assets

  Ledger:
    POST   /api/transactions            Apply a financial event
    GET    /api/transactions            List (profile/type/from/to filters)
    GET    /api/transactions/{id}       Get one record
    PATCH  /api/transactions/{id}       Narrow edit (descriptive fields)
    PUT    /api/transactions/{id}       Amend (reverse + re-apply)
    DELETE /api/transactions/{id}       Reverse and delete

  Compound operations:
    POST   /api/debts/{id}/payments
    POST   /api/goals/{id}/contributions
    POST   /api/investments/{id}/contributions
    POST   /api/investments/{id}/close
    POST   /api/subscriptions/{id}/pay
    POST   /api/subscriptions/{id}/cancel
    POST   /api/assets/{id}/sell
    POST   /api/taxes

  Views:
    GET    /api/profiles/{profile}/view Dashboard snapshot for one profile

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (concurrent writer aborted the atomic unit)
  - 500: Internal errors, invariant violations

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/ledger"
	"github.com/casaflow/ledger-engine/store"
	"github.com/casaflow/ledger-engine/views"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  store.TxStore
	Engine *ledger.Engine
	Views  *views.Service
	Log    zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(s store.TxStore, e *ledger.Engine, v *views.Service, log zerolog.Logger) *Handler {
	return &Handler{Store: s, Engine: e, Views: v, Log: log}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	balance, err := parseAmount("balance", req.Balance)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	monthlyLimit, err := parseOptionalAmount("monthly_limit", req.MonthlyLimit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	creditLineLimit := decimal.Zero
	if req.CreditLineLimit != "" {
		if creditLineLimit, err = parseAmount("credit_line_limit", req.CreditLineLimit); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}
	if req.Name == "" {
		h.writeDomainError(w, &finance.ValidationError{Field: "name", Reason: "is required"})
		return
	}

	account := &finance.BankAccount{
		ID:              finance.AccountID(uuid.NewString()),
		Profile:         finance.Profile(req.Profile),
		Name:            req.Name,
		Balance:         balance,
		Purpose:         finance.AccountPurpose(req.Purpose),
		MonthlyLimit:    monthlyLimit,
		HasCreditLine:   req.HasCreditLine,
		CreditLineLimit: creditLineLimit,
		CreditLineUsed:  decimal.Zero,
		CreatedAt:       time.Now(),
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.GetAccount(r.Context(), finance.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Store.ListCards(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]CardDTO, 0, len(cards))
	for _, c := range cards {
		dtos = append(dtos, toCardDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch finance.CardType(req.CardType) {
	case finance.CardCredit, finance.CardDebit, finance.CardPrepaid:
	default:
		h.writeDomainError(w, &finance.ValidationError{Field: "card_type", Reason: "must be credit, debit or prepaid"})
		return
	}
	creditLimit := decimal.Zero
	if req.CreditLimit != "" {
		var err error
		if creditLimit, err = parseAmount("credit_limit", req.CreditLimit); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}
	// The owning account must exist: debit expenses debit its balance.
	if _, err := h.Store.GetAccount(r.Context(), finance.AccountID(req.AccountID)); err != nil {
		h.writeDomainError(w, err)
		return
	}

	card := &finance.BankCard{
		ID:          finance.CardID(uuid.NewString()),
		AccountID:   finance.AccountID(req.AccountID),
		Profile:     finance.Profile(req.Profile),
		Name:        req.Name,
		CardType:    finance.CardType(req.CardType),
		UsedAmount:  decimal.Zero,
		CreditLimit: creditLimit,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.SaveCard(r.Context(), card); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(*card))
}

// =============================================================================
// DEBT HANDLERS
// =============================================================================

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.Store.ListDebts(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]DebtDTO, 0, len(debts))
	for _, d := range debts {
		dtos = append(dtos, toDebtDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	total, err := parseAmount("total_amount", req.TotalAmount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	monthly, err := parseAmount("monthly_payment", req.MonthlyPayment)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if _, err := h.Store.GetAccount(r.Context(), finance.AccountID(req.AccountID)); err != nil {
		h.writeDomainError(w, err)
		return
	}

	debt := &finance.Debt{
		ID:             finance.DebtID(uuid.NewString()),
		Profile:        finance.Profile(req.Profile),
		Name:           req.Name,
		TotalAmount:    total,
		PaidAmount:     decimal.Zero,
		MonthlyPayment: monthly,
		DueDate:        dueDate,
		AccountID:      finance.AccountID(req.AccountID),
		CreatedAt:      time.Now(),
	}
	if err := h.Store.SaveDebt(r.Context(), debt); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebtDTO(*debt))
}

// PayDebt applies one debt payment: expense + paid-amount bump + due-date
// advance + history row, one atomic unit.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	var req PayDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	taxDetails, err := parseTaxDetails(req.TaxRate, req.TaxAmount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tx, err := h.Engine.PayDebt(r.Context(), finance.DebtID(chi.URLParam(r, "id")), amount, taxDetails)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListDebtPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListDebtPayments(r.Context(), finance.DebtID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]HistoryRowDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, HistoryRowDTO{ID: p.ID, Amount: p.Amount.String(), Date: p.Date.Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Store.ListGoals(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]GoalDTO, 0, len(goals))
	for _, g := range goals {
		dtos = append(dtos, toGoalDTO(g))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	target, err := parseAmount("target_amount", req.TargetAmount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	goal := &finance.SavingsGoal{
		ID:            finance.GoalID(uuid.NewString()),
		Profile:       finance.Profile(req.Profile),
		Name:          req.Name,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		CreatedAt:     time.Now(),
	}
	if err := h.Store.SaveGoal(r.Context(), goal); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(*goal))
}

func (h *Handler) ContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tx, err := h.Engine.ContributeToGoal(r.Context(), finance.GoalID(chi.URLParam(r, "id")),
		amount, finance.AccountID(req.SourceAccountID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListGoalContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.Store.ListGoalContributions(r.Context(), finance.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]HistoryRowDTO, 0, len(contributions))
	for _, c := range contributions {
		dtos = append(dtos, HistoryRowDTO{ID: c.ID, Amount: c.Amount.String(), Date: c.Date.Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVESTMENT HANDLERS
// =============================================================================

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.Store.ListInvestments(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]InvestmentDTO, 0, len(investments))
	for _, i := range investments {
		dtos = append(dtos, toInvestmentDTO(i))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req CreateInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	initial, err := parseAmount("initial_amount", req.InitialAmount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	investment := &finance.Investment{
		ID:            finance.InvestmentID(uuid.NewString()),
		Profile:       finance.Profile(req.Profile),
		Name:          req.Name,
		InitialAmount: initial,
		CurrentValue:  initial,
		Purpose:       finance.InvestmentPurpose(req.Purpose),
		CreatedAt:     time.Now(),
	}
	if err := h.Store.SaveInvestment(r.Context(), investment); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvestmentDTO(*investment))
}

func (h *Handler) ContributeToInvestment(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tx, err := h.Engine.ContributeToInvestment(r.Context(), finance.InvestmentID(chi.URLParam(r, "id")),
		amount, finance.AccountID(req.SourceAccountID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) CloseInvestment(w http.ResponseWriter, r *http.Request) {
	var req CloseInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	finalValue, err := parseAmount("final_value", req.FinalValue)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tx, err := h.Engine.CloseInvestment(r.Context(), finance.InvestmentID(chi.URLParam(r, "id")),
		finalValue, finance.AccountID(req.DestinationAccountID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListInvestmentContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.Store.ListInvestmentContributions(r.Context(), finance.InvestmentID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]HistoryRowDTO, 0, len(contributions))
	for _, c := range contributions {
		dtos = append(dtos, HistoryRowDTO{ID: c.ID, Amount: c.Amount.String(), Date: c.Date.Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SUBSCRIPTION HANDLERS
// =============================================================================

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := h.Store.ListSubscriptions(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]SubscriptionDTO, 0, len(subscriptions))
	for _, s := range subscriptions {
		dtos = append(dtos, toSubscriptionDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if req.AccountID == "" && req.CardID == "" {
		h.writeDomainError(w, &finance.ValidationError{Field: "account_id", Reason: "a funding account or card is required"})
		return
	}

	sub := &finance.Subscription{
		ID:        finance.SubscriptionID(uuid.NewString()),
		Profile:   finance.Profile(req.Profile),
		Name:      req.Name,
		Amount:    amount,
		DueDate:   dueDate,
		AccountID: finance.AccountID(req.AccountID),
		CardID:    finance.CardID(req.CardID),
		Status:    finance.SubscriptionActive,
		CreatedAt: time.Now(),
	}
	if err := h.Store.SaveSubscription(r.Context(), sub); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionDTO(*sub))
}

func (h *Handler) PaySubscription(w http.ResponseWriter, r *http.Request) {
	var req PaySubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := finance.SubscriptionID(chi.URLParam(r, "id"))
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		if amount, err = parseAmount("amount", req.Amount); err != nil {
			h.writeDomainError(w, err)
			return
		}
	} else {
		sub, err := h.Store.GetSubscription(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		amount = sub.Amount
	}

	tx, err := h.Engine.PaySubscription(r.Context(), id, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// CancelSubscription flips the status. Past payments stay on the ledger;
// only future PaySubscription calls are rejected.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	id := finance.SubscriptionID(chi.URLParam(r, "id"))
	var cancelled *finance.Subscription
	err := h.Store.WithTx(r.Context(), func(s store.Store) error {
		sub, err := s.GetSubscription(r.Context(), id)
		if err != nil {
			return err
		}
		sub.Status = finance.SubscriptionCancelled
		cancelled = sub
		return s.SaveSubscription(r.Context(), sub)
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(*cancelled))
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Store.ListAssets(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AssetDTO, 0, len(assets))
	for _, a := range assets {
		dtos = append(dtos, toAssetDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	value, err := parseAmount("estimated_value", req.EstimatedValue)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	asset := &finance.TangibleAsset{
		ID:             finance.AssetID(uuid.NewString()),
		Profile:        finance.Profile(req.Profile),
		Name:           req.Name,
		EstimatedValue: value,
		CreatedAt:      time.Now(),
	}
	if err := h.Store.SaveAsset(r.Context(), asset); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetDTO(*asset))
}

func (h *Handler) SellAsset(w http.ResponseWriter, r *http.Request) {
	var req SellAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	salePrice, err := parseAmount("sale_price", req.SalePrice)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tx, err := h.Engine.SellTangibleAsset(r.Context(), finance.AssetID(chi.URLParam(r, "id")),
		salePrice, finance.AccountID(req.DestinationAccountID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

func (h *Handler) PayTax(w http.ResponseWriter, r *http.Request) {
	var req PayTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if req.Period == "" {
		h.writeDomainError(w, &finance.ValidationError{Field: "period", Reason: "is required"})
		return
	}

	tx, err := h.Engine.PayTax(r.Context(), amount, finance.AccountID(req.SourceAccountID), req.Period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListTaxPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListTaxPayments(r.Context(), profileParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TaxPaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, TaxPaymentDTO{
			ID:        p.ID,
			Profile:   string(p.Profile),
			AccountID: string(p.AccountID),
			Amount:    p.Amount.String(),
			Period:    p.Period,
			Date:      p.Date.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	var req ApplyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := toApplyInput(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	tx, err := h.Engine.Apply(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func toApplyInput(req ApplyTransactionRequest) (ledger.ApplyInput, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return ledger.ApplyInput{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return ledger.ApplyInput{}, err
	}
	taxDetails, err := parseTaxDetails(req.TaxRate, req.TaxAmount)
	if err != nil {
		return ledger.ApplyInput{}, err
	}
	return ledger.ApplyInput{
		Type:                 finance.TransactionType(req.Type),
		Amount:               amount,
		Date:                 date,
		Profile:              finance.Profile(req.Profile),
		Category:             req.Category,
		Description:          req.Description,
		SourceAccountID:      finance.AccountID(req.SourceAccountID),
		DestinationAccountID: finance.AccountID(req.DestinationAccountID),
		CardID:               finance.CardID(req.CardID),
		IsCreditLinePayment:  req.IsCreditLinePayment,
		TaxDetails:           taxDetails,
	}, nil
}

func parseTaxDetails(rate, amount string) (*finance.TaxDetails, error) {
	if rate == "" && amount == "" {
		return nil, nil
	}
	details := &finance.TaxDetails{}
	var err error
	if rate != "" {
		if details.Rate, err = parseAmount("tax_rate", rate); err != nil {
			return nil, err
		}
	}
	if amount != "" {
		if details.Amount, err = parseAmount("tax_amount", amount); err != nil {
			return nil, err
		}
	}
	return details, nil
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := store.TransactionFilter{}
	if p := r.URL.Query().Get("profile"); p != "" {
		profile := finance.Profile(p)
		filter.Profile = &profile
	}
	if t := r.URL.Query().Get("type"); t != "" {
		txType := finance.TransactionType(t)
		filter.Type = &txType
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := parseDate("from", from)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := parseDate("to", to)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		filter.To = &t
	}

	txs, err := h.Store.ListTransactions(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Store.GetTransaction(r.Context(), finance.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// ReverseTransaction undoes the balance effects and deletes the record.
// A second DELETE for the same id returns 404.
func (h *Handler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reverse(r.Context(), finance.TransactionID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	var req EditTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := ledger.EditInput{Description: req.Description, Category: req.Category}
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		input.Date = &date
	}

	tx, err := h.Engine.Edit(r.Context(), finance.TransactionID(chi.URLParam(r, "id")), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) AmendTransaction(w http.ResponseWriter, r *http.Request) {
	var req ApplyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := toApplyInput(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	tx, err := h.Engine.Amend(r.Context(), finance.TransactionID(chi.URLParam(r, "id")), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

func (h *Handler) GetProfileView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Views.Load(r.Context(), finance.Profile(chi.URLParam(r, "profile")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileViewDTO(view))
}

// =============================================================================
// HELPERS
// =============================================================================

func profileParam(r *http.Request) finance.Profile {
	return finance.Profile(r.URL.Query().Get("profile"))
}

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

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case finance.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, "Concurrent modification, retry the request", err)
	default:
		h.Log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
