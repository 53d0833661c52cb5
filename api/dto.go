/*
dto.go - Request/response data structures for the REST API

PURPOSE:
  Wire representations for the finance domain. Money travels as decimal
  strings ("1200000.50"), never as JSON numbers: float64 round-tripping
  corrupts amounts. Dates travel as RFC3339.

CONVERSION:
  to*DTO functions map domain types outward. parseAmount/parseDate map
  inbound fields and return finance.ValidationError so handlers can map
  them to 400 uniformly.

SEE ALSO:
  - handlers.go: Handlers using these DTOs
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/views"
)

// =============================================================================
// INBOUND PARSING
// =============================================================================

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, &finance.ValidationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &finance.ValidationError{Field: field, Reason: "is not a valid decimal"}
	}
	return d, nil
}

func parseOptionalAmount(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := parseAmount(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Date-only form is accepted too.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, &finance.ValidationError{Field: field, Reason: "is not a valid RFC3339 or YYYY-MM-DD date"}
		}
	}
	return t, nil
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// AGGREGATE DTOs
// =============================================================================

type AccountDTO struct {
	ID              string  `json:"id"`
	Profile         string  `json:"profile"`
	Name            string  `json:"name"`
	Balance         string  `json:"balance"`
	Purpose         string  `json:"purpose"`
	MonthlyLimit    *string `json:"monthly_limit,omitempty"`
	HasCreditLine   bool    `json:"has_credit_line"`
	CreditLineLimit string  `json:"credit_line_limit"`
	CreditLineUsed  string  `json:"credit_line_used"`
	CreatedAt       string  `json:"created_at"`
}

func toAccountDTO(a finance.BankAccount) AccountDTO {
	dto := AccountDTO{
		ID:              string(a.ID),
		Profile:         string(a.Profile),
		Name:            a.Name,
		Balance:         a.Balance.String(),
		Purpose:         string(a.Purpose),
		HasCreditLine:   a.HasCreditLine,
		CreditLineLimit: a.CreditLineLimit.String(),
		CreditLineUsed:  a.CreditLineUsed.String(),
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
	if a.MonthlyLimit != nil {
		s := a.MonthlyLimit.String()
		dto.MonthlyLimit = &s
	}
	return dto
}

type CreateAccountRequest struct {
	Profile         string `json:"profile"`
	Name            string `json:"name"`
	Balance         string `json:"balance"`
	Purpose         string `json:"purpose"`
	MonthlyLimit    string `json:"monthly_limit,omitempty"`
	HasCreditLine   bool   `json:"has_credit_line"`
	CreditLineLimit string `json:"credit_line_limit,omitempty"`
}

type CardDTO struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Profile     string `json:"profile"`
	Name        string `json:"name"`
	CardType    string `json:"card_type"`
	UsedAmount  string `json:"used_amount"`
	CreditLimit string `json:"credit_limit"`
	CreatedAt   string `json:"created_at"`
}

func toCardDTO(c finance.BankCard) CardDTO {
	return CardDTO{
		ID:          string(c.ID),
		AccountID:   string(c.AccountID),
		Profile:     string(c.Profile),
		Name:        c.Name,
		CardType:    string(c.CardType),
		UsedAmount:  c.UsedAmount.String(),
		CreditLimit: c.CreditLimit.String(),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

type CreateCardRequest struct {
	AccountID   string `json:"account_id"`
	Profile     string `json:"profile"`
	Name        string `json:"name"`
	CardType    string `json:"card_type"`
	CreditLimit string `json:"credit_limit,omitempty"`
}

type DebtDTO struct {
	ID             string `json:"id"`
	Profile        string `json:"profile"`
	Name           string `json:"name"`
	TotalAmount    string `json:"total_amount"`
	PaidAmount     string `json:"paid_amount"`
	Remaining      string `json:"remaining"`
	MonthlyPayment string `json:"monthly_payment"`
	DueDate        string `json:"due_date"`
	AccountID      string `json:"account_id"`
	IsSettled      bool   `json:"is_settled"`
	CreatedAt      string `json:"created_at"`
}

func toDebtDTO(d finance.Debt) DebtDTO {
	return DebtDTO{
		ID:             string(d.ID),
		Profile:        string(d.Profile),
		Name:           d.Name,
		TotalAmount:    d.TotalAmount.String(),
		PaidAmount:     d.PaidAmount.String(),
		Remaining:      d.Remaining().String(),
		MonthlyPayment: d.MonthlyPayment.String(),
		DueDate:        d.DueDate.Format(time.RFC3339),
		AccountID:      string(d.AccountID),
		IsSettled:      d.IsSettled(),
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}
}

type CreateDebtRequest struct {
	Profile        string `json:"profile"`
	Name           string `json:"name"`
	TotalAmount    string `json:"total_amount"`
	MonthlyPayment string `json:"monthly_payment"`
	DueDate        string `json:"due_date"`
	AccountID      string `json:"account_id"`
}

type GoalDTO struct {
	ID                 string `json:"id"`
	Profile            string `json:"profile"`
	Name               string `json:"name"`
	TargetAmount       string `json:"target_amount"`
	CurrentAmount      string `json:"current_amount"`
	Progress           string `json:"progress"`
	CompletionNotified bool   `json:"completion_notified"`
	CreatedAt          string `json:"created_at"`
}

func toGoalDTO(g finance.SavingsGoal) GoalDTO {
	return GoalDTO{
		ID:                 string(g.ID),
		Profile:            string(g.Profile),
		Name:               g.Name,
		TargetAmount:       g.TargetAmount.String(),
		CurrentAmount:      g.CurrentAmount.String(),
		Progress:           g.Progress().String(),
		CompletionNotified: g.CompletionNotified,
		CreatedAt:          g.CreatedAt.Format(time.RFC3339),
	}
}

type CreateGoalRequest struct {
	Profile      string `json:"profile"`
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
}

type InvestmentDTO struct {
	ID            string `json:"id"`
	Profile       string `json:"profile"`
	Name          string `json:"name"`
	InitialAmount string `json:"initial_amount"`
	CurrentValue  string `json:"current_value"`
	ProfitLoss    string `json:"profit_loss"`
	Purpose       string `json:"purpose"`
	CreatedAt     string `json:"created_at"`
}

func toInvestmentDTO(i finance.Investment) InvestmentDTO {
	return InvestmentDTO{
		ID:            string(i.ID),
		Profile:       string(i.Profile),
		Name:          i.Name,
		InitialAmount: i.InitialAmount.String(),
		CurrentValue:  i.CurrentValue.String(),
		ProfitLoss:    i.ProfitLoss().String(),
		Purpose:       string(i.Purpose),
		CreatedAt:     i.CreatedAt.Format(time.RFC3339),
	}
}

type CreateInvestmentRequest struct {
	Profile       string `json:"profile"`
	Name          string `json:"name"`
	InitialAmount string `json:"initial_amount"`
	Purpose       string `json:"purpose"`
}

type SubscriptionDTO struct {
	ID             string `json:"id"`
	Profile        string `json:"profile"`
	Name           string `json:"name"`
	Amount         string `json:"amount"`
	DueDate        string `json:"due_date"`
	AccountID      string `json:"account_id,omitempty"`
	CardID         string `json:"card_id,omitempty"`
	Status         string `json:"status"`
	PaidThisPeriod bool   `json:"paid_this_period"`
	CreatedAt      string `json:"created_at"`
}

func toSubscriptionDTO(s finance.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:             string(s.ID),
		Profile:        string(s.Profile),
		Name:           s.Name,
		Amount:         s.Amount.String(),
		DueDate:        s.DueDate.Format(time.RFC3339),
		AccountID:      string(s.AccountID),
		CardID:         string(s.CardID),
		Status:         string(s.Status),
		PaidThisPeriod: s.PaidThisPeriod,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
}

type CreateSubscriptionRequest struct {
	Profile   string `json:"profile"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	DueDate   string `json:"due_date"`
	AccountID string `json:"account_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
}

type AssetDTO struct {
	ID             string `json:"id"`
	Profile        string `json:"profile"`
	Name           string `json:"name"`
	EstimatedValue string `json:"estimated_value"`
	CreatedAt      string `json:"created_at"`
}

func toAssetDTO(a finance.TangibleAsset) AssetDTO {
	return AssetDTO{
		ID:             string(a.ID),
		Profile:        string(a.Profile),
		Name:           a.Name,
		EstimatedValue: a.EstimatedValue.String(),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

type CreateAssetRequest struct {
	Profile        string `json:"profile"`
	Name           string `json:"name"`
	EstimatedValue string `json:"estimated_value"`
}

// =============================================================================
// TRANSACTION DTOs
// =============================================================================

type TransactionDTO struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Amount               string `json:"amount"`
	Date                 string `json:"date"`
	Profile              string `json:"profile"`
	Category             string `json:"category"`
	Description          string `json:"description,omitempty"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
	CardID               string `json:"card_id,omitempty"`
	IsCreditLinePayment  bool   `json:"is_credit_line_payment"`
	TaxRate              string `json:"tax_rate,omitempty"`
	TaxAmount            string `json:"tax_amount,omitempty"`
	OriginKind           string `json:"origin_kind"`
	OriginRef            string `json:"origin_ref,omitempty"`
	CreatedAt            string `json:"created_at"`
}

func toTransactionDTO(t finance.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                   string(t.ID),
		Type:                 string(t.Type),
		Amount:               t.Amount.String(),
		Date:                 t.Date.Format(time.RFC3339),
		Profile:              string(t.Profile),
		Category:             t.Category,
		Description:          t.Description,
		SourceAccountID:      string(t.SourceAccountID),
		DestinationAccountID: string(t.DestinationAccountID),
		CardID:               string(t.CardID),
		IsCreditLinePayment:  t.IsCreditLinePayment,
		OriginKind:           string(t.Origin.Kind),
		OriginRef:            t.Origin.RefID,
		CreatedAt:            t.CreatedAt.Format(time.RFC3339),
	}
	if t.TaxDetails != nil {
		dto.TaxRate = t.TaxDetails.Rate.String()
		dto.TaxAmount = t.TaxDetails.Amount.String()
	}
	return dto
}

type ApplyTransactionRequest struct {
	Type                 string `json:"type"`
	Amount               string `json:"amount"`
	Date                 string `json:"date,omitempty"`
	Profile              string `json:"profile"`
	Category             string `json:"category,omitempty"`
	Description          string `json:"description,omitempty"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
	CardID               string `json:"card_id,omitempty"`
	IsCreditLinePayment  bool   `json:"is_credit_line_payment,omitempty"`
	TaxRate              string `json:"tax_rate,omitempty"`
	TaxAmount            string `json:"tax_amount,omitempty"`
}

type EditTransactionRequest struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// =============================================================================
// COMPOUND OPERATION DTOs
// =============================================================================

type PayDebtRequest struct {
	Amount    string `json:"amount"`
	TaxRate   string `json:"tax_rate,omitempty"`
	TaxAmount string `json:"tax_amount,omitempty"`
}

type ContributeRequest struct {
	Amount          string `json:"amount"`
	SourceAccountID string `json:"source_account_id"`
}

type CloseInvestmentRequest struct {
	FinalValue           string `json:"final_value"`
	DestinationAccountID string `json:"destination_account_id"`
}

type PaySubscriptionRequest struct {
	Amount string `json:"amount,omitempty"` // defaults to the subscription amount
}

type SellAssetRequest struct {
	SalePrice            string `json:"sale_price"`
	DestinationAccountID string `json:"destination_account_id"`
}

type PayTaxRequest struct {
	Amount          string `json:"amount"`
	SourceAccountID string `json:"source_account_id"`
	Period          string `json:"period"`
}

type HistoryRowDTO struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

type TaxPaymentDTO struct {
	ID        string `json:"id"`
	Profile   string `json:"profile"`
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Period    string `json:"period"`
	Date      string `json:"date"`
}

// =============================================================================
// VIEW DTOs
// =============================================================================

type SummaryDTO struct {
	Income     string            `json:"income"`
	Expense    string            `json:"expense"`
	Net        string            `json:"net"`
	ByCategory map[string]string `json:"by_category"`
}

func toSummaryDTO(s views.Summary) SummaryDTO {
	byCategory := make(map[string]string, len(s.ByCategory))
	for k, v := range s.ByCategory {
		byCategory[k] = v.String()
	}
	return SummaryDTO{
		Income:     s.Income.String(),
		Expense:    s.Expense.String(),
		Net:        s.Net.String(),
		ByCategory: byCategory,
	}
}

type KPIDTO struct {
	TotalBalance    string `json:"total_balance"`
	CreditUsed      string `json:"credit_used"`
	DebtOutstanding string `json:"debt_outstanding"`
	GoalSaved       string `json:"goal_saved"`
	GoalTarget      string `json:"goal_target"`
	InvestmentValue string `json:"investment_value"`
	InvestmentGain  string `json:"investment_gain"`
}

func toKPIDTO(k views.KPISet) KPIDTO {
	return KPIDTO{
		TotalBalance:    k.TotalBalance.String(),
		CreditUsed:      k.CreditUsed.String(),
		DebtOutstanding: k.DebtOutstanding.String(),
		GoalSaved:       k.GoalSaved.String(),
		GoalTarget:      k.GoalTarget.String(),
		InvestmentValue: k.InvestmentValue.String(),
		InvestmentGain:  k.InvestmentGain.String(),
	}
}

type NotificationDTO struct {
	Kind  string `json:"kind"`
	RefID string `json:"ref_id"`
	Name  string `json:"name"`
}

type ProfileViewDTO struct {
	Profile       string            `json:"profile"`
	Accounts      []AccountDTO      `json:"accounts"`
	Cards         []CardDTO         `json:"cards"`
	Debts         []DebtDTO         `json:"debts"`
	Goals         []GoalDTO         `json:"goals"`
	Investments   []InvestmentDTO   `json:"investments"`
	Subscriptions []SubscriptionDTO `json:"subscriptions"`
	Assets        []AssetDTO        `json:"assets"`
	Summary       SummaryDTO        `json:"summary"`
	KPIs          KPIDTO            `json:"kpis"`
	Notifications []NotificationDTO `json:"notifications"`
}

func toProfileViewDTO(v *views.ProfileView) ProfileViewDTO {
	dto := ProfileViewDTO{
		Profile:       string(v.Profile),
		Accounts:      make([]AccountDTO, 0, len(v.Accounts)),
		Cards:         make([]CardDTO, 0, len(v.Cards)),
		Debts:         make([]DebtDTO, 0, len(v.Debts)),
		Goals:         make([]GoalDTO, 0, len(v.Goals)),
		Investments:   make([]InvestmentDTO, 0, len(v.Investments)),
		Subscriptions: make([]SubscriptionDTO, 0, len(v.Subscriptions)),
		Assets:        make([]AssetDTO, 0, len(v.Assets)),
		Summary:       toSummaryDTO(v.Summary),
		KPIs:          toKPIDTO(v.KPIs),
		Notifications: make([]NotificationDTO, 0, len(v.Notifications)),
	}
	for _, a := range v.Accounts {
		dto.Accounts = append(dto.Accounts, toAccountDTO(a))
	}
	for _, c := range v.Cards {
		dto.Cards = append(dto.Cards, toCardDTO(c))
	}
	for _, d := range v.Debts {
		dto.Debts = append(dto.Debts, toDebtDTO(d))
	}
	for _, g := range v.Goals {
		dto.Goals = append(dto.Goals, toGoalDTO(g))
	}
	for _, i := range v.Investments {
		dto.Investments = append(dto.Investments, toInvestmentDTO(i))
	}
	for _, s := range v.Subscriptions {
		dto.Subscriptions = append(dto.Subscriptions, toSubscriptionDTO(s))
	}
	for _, a := range v.Assets {
		dto.Assets = append(dto.Assets, toAssetDTO(a))
	}
	for _, n := range v.Notifications {
		dto.Notifications = append(dto.Notifications, NotificationDTO{
			Kind: string(n.Kind), RefID: n.RefID, Name: n.Name,
		})
	}
	return dto
}
