/*
Package finance defines the domain model for the household ledger.

PURPOSE:
  This package contains the aggregate and record types the mutation engine
  operates on: bank accounts, cards, debts, savings goals, investments,
  subscriptions, tangible assets, the Transaction event itself, and the
  append-only payment/contribution history rows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: the atomic financial event (income, expense, transfer)
  - Origin: structural provenance tag (which compound operation created it)
  - Aggregates: entities holding a denormalized running balance/usage field
  - History rows: append-only records for display, never replayed

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, never float64
  2. Denormalization: each aggregate carries its running balance; balances
     are maintained incrementally by the engine, not derived by replay
  3. Ownership: every aggregate belongs to exactly one profile; the engine
     never moves value across profiles implicitly
  4. Provenance: transactions carry a typed Origin instead of relying on
     category-name string matching

SEE ALSO:
  - errors.go: Error taxonomy
  - period.go: Calendar-period helpers (due dates, rollover)
  - ledger/: The mutation engine that owns every write to these balances
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	AccountID      string
	CardID         string
	DebtID         string
	GoalID         string
	InvestmentID   string
	SubscriptionID string
	AssetID        string
	TransactionID  string

	// Profile is a named grouping (e.g. "Personal", "Negocio") partitioning
	// all aggregates and transactions.
	Profile string
)

// =============================================================================
// TRANSACTION - The atomic financial event
// =============================================================================

type TransactionType string

const (
	TxIncome   TransactionType = "income"
	TxExpense  TransactionType = "expense"
	TxTransfer TransactionType = "transfer"
)

// OriginKind tags how a transaction came to exist. Compound operations stamp
// their own kind so provenance is structural, not inferred from category text.
type OriginKind string

const (
	OriginManual                 OriginKind = "manual"
	OriginDebtPayment            OriginKind = "debt_payment"
	OriginGoalContribution       OriginKind = "goal_contribution"
	OriginInvestmentContribution OriginKind = "investment_contribution"
	OriginInvestmentClose        OriginKind = "investment_close"
	OriginSubscriptionPayment    OriginKind = "subscription_payment"
	OriginAssetSale              OriginKind = "asset_sale"
	OriginTaxPayment             OriginKind = "tax_payment"
)

// Origin records which compound operation (if any) created a transaction and
// the id of the aggregate it was made against.
type Origin struct {
	Kind  OriginKind
	RefID string
}

func ManualOrigin() Origin { return Origin{Kind: OriginManual} }

// TaxDetails is optional tax metadata attached to a transaction.
type TaxDetails struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Transaction is immutable once committed except through the engine's edit
// paths. Exactly one funding/target combination is consistent with Type:
//
//	income:   credits SourceAccountID
//	expense:  debits SourceAccountID, or a card, or the account's credit line
//	transfer: debits SourceAccountID, credits DestinationAccountID
type Transaction struct {
	ID          TransactionID
	Type        TransactionType
	Amount      decimal.Decimal // always positive; direction comes from Type
	Date        time.Time
	Profile     Profile
	Category    string
	Description string

	SourceAccountID      AccountID
	DestinationAccountID AccountID // transfer only
	CardID               CardID    // expense only, optional
	IsCreditLinePayment  bool      // expense only, mutually exclusive with CardID

	TaxDetails *TaxDetails
	Origin     Origin

	CreatedAt time.Time
}

// =============================================================================
// BALANCE AGGREGATES
// =============================================================================

type AccountPurpose string

const (
	PurposeMain       AccountPurpose = "main"
	PurposeSavings    AccountPurpose = "savings"
	PurposeInvestment AccountPurpose = "investment"
	PurposeTax        AccountPurpose = "tax"
)

// BankAccount holds a signed running balance. The balance is mutated only by
// the ledger engine; presentation code never writes it directly.
type BankAccount struct {
	ID      AccountID
	Profile Profile
	Name    string
	Balance decimal.Decimal
	Purpose AccountPurpose

	MonthlyLimit *decimal.Decimal

	// Optional secondary borrowing capacity, tracked apart from cash balance.
	HasCreditLine   bool
	CreditLineLimit decimal.Decimal
	CreditLineUsed  decimal.Decimal

	CreatedAt time.Time
}

type CardType string

const (
	CardCredit  CardType = "credit"
	CardDebit   CardType = "debit"
	CardPrepaid CardType = "prepaid"
)

// BankCard belongs to an account. A credit card's UsedAmount is a parallel
// balance to the owning account; debit/prepaid expenses move the account
// balance directly instead.
type BankCard struct {
	ID          CardID
	AccountID   AccountID
	Profile     Profile
	Name        string
	CardType    CardType
	UsedAmount  decimal.Decimal // credit only
	CreditLimit decimal.Decimal
	CreatedAt   time.Time
}

func (c *BankCard) IsCredit() bool { return c.CardType == CardCredit }

// Debt tracks an obligation paid down over time. PaidAmount is monotonically
// non-decreasing until TotalAmount; DueDate advances one period per payment.
type Debt struct {
	ID             DebtID
	Profile        Profile
	Name           string
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
	MonthlyPayment decimal.Decimal
	DueDate        time.Time
	AccountID      AccountID // funding account for payments
	CreatedAt      time.Time
}

func (d *Debt) Remaining() decimal.Decimal {
	return d.TotalAmount.Sub(d.PaidAmount)
}

func (d *Debt) IsSettled() bool {
	return d.PaidAmount.GreaterThanOrEqual(d.TotalAmount)
}

func (d *Debt) IsOverdue(now time.Time) bool {
	return !d.IsSettled() && d.DueDate.Before(now)
}

// SavingsGoal accrues contributions toward a target. CompletionNotified is a
// one-shot flag set the first time CurrentAmount reaches TargetAmount.
type SavingsGoal struct {
	ID                 GoalID
	Profile            Profile
	Name               string
	TargetAmount       decimal.Decimal
	CurrentAmount      decimal.Decimal
	CompletionNotified bool
	CreatedAt          time.Time
}

func (g *SavingsGoal) IsComplete() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns completion as a fraction in [0, 1].
func (g *SavingsGoal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.NewFromInt(1)
	}
	p := g.CurrentAmount.Div(g.TargetAmount)
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}

type InvestmentPurpose string

const (
	InvestmentGrowth InvestmentPurpose = "investment"
	InvestmentSaving InvestmentPurpose = "saving"
)

// Investment tracks cost basis and current value. Contributions raise both;
// profit/loss is a read-time computation, never stored.
type Investment struct {
	ID            InvestmentID
	Profile       Profile
	Name          string
	InitialAmount decimal.Decimal
	CurrentValue  decimal.Decimal
	Purpose       InvestmentPurpose
	CreatedAt     time.Time
}

func (i *Investment) ProfitLoss() decimal.Decimal {
	return i.CurrentValue.Sub(i.InitialAmount)
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a recurring charge. PaidThisPeriod is cleared lazily when
// the calendar period rolls past LastPaymentMonth/Year (see period.go).
type Subscription struct {
	ID        SubscriptionID
	Profile   Profile
	Name      string
	Amount    decimal.Decimal
	DueDate   time.Time
	AccountID AccountID
	CardID    CardID
	Status    SubscriptionStatus

	PaidThisPeriod   bool
	LastPaymentMonth time.Month
	LastPaymentYear  int

	CreatedAt time.Time
}

func (s *Subscription) IsOverdue(now time.Time) bool {
	return s.Status == SubscriptionActive && !s.PaidThisPeriod && s.DueDate.Before(now)
}

// TangibleAsset is a sellable possession; selling books the sale price as
// income and removes the record.
type TangibleAsset struct {
	ID             AssetID
	Profile        Profile
	Name           string
	EstimatedValue decimal.Decimal
	CreatedAt      time.Time
}

// =============================================================================
// HISTORY ROWS - Append-only, for display; never consulted for balances
// =============================================================================

type DebtPayment struct {
	ID     string
	DebtID DebtID
	Amount decimal.Decimal
	Date   time.Time
}

type GoalContribution struct {
	ID     string
	GoalID GoalID
	Amount decimal.Decimal
	Date   time.Time
}

type InvestmentContribution struct {
	ID           string
	InvestmentID InvestmentID
	Amount       decimal.Decimal
	Date         time.Time
}

type TaxPayment struct {
	ID        string
	Profile   Profile
	AccountID AccountID
	Amount    decimal.Decimal
	Period    string // e.g. "2024-Q1"
	Date      time.Time
}
