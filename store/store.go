/*
Package store defines the persistence contract for the ledger engine.

PURPOSE:
  The Aggregate Store is the only collaborator the engine blocks on. It
  provides per-record CRUD plus one concurrency primitive: WithTx, the
  atomic unit. Every engine operation does all of its reads and writes
  inside a single WithTx call, so partial application is impossible.

ATOMIC UNIT CONTRACT:
  - The function passed to WithTx sees a consistent snapshot.
  - If the function returns an error, every staged write is discarded and
    the error is returned unchanged.
  - If the backend detects a conflicting concurrent commit it returns
    finance.ErrConflict; retrying is the caller's responsibility.

WRITE DISCIPLINE:
  Balance fields (account balance, card used-amount, credit-line used,
  debt paid-amount, goal/investment accrued amounts) are mutated
  exclusively through the engine's atomic units. Save* methods are
  upserts; history-row Append* methods are append-only.

IMPLEMENTATIONS:
  - store/memory: in-memory with snapshot/rollback (tests, dev)
  - store/sqlite: SQLite in WAL mode, schema migrated on open
  - store/mongo:  MongoDB using multi-document transactions

SEE ALSO:
  - ledger/engine.go: The only writer of balance fields
*/
package store

import (
	"context"
	"time"

	"github.com/casaflow/ledger-engine/finance"
)

// =============================================================================
// STORE - Typed aggregate repository
// =============================================================================

// Store provides typed access to every aggregate and record kind. Get*
// methods return a finance.NotFoundError when the record is missing. List*
// methods scoped by profile treat the empty profile as "all".
type Store interface {
	// Bank accounts
	GetAccount(ctx context.Context, id finance.AccountID) (*finance.BankAccount, error)
	SaveAccount(ctx context.Context, a *finance.BankAccount) error
	ListAccounts(ctx context.Context, profile finance.Profile) ([]finance.BankAccount, error)

	// Bank cards
	GetCard(ctx context.Context, id finance.CardID) (*finance.BankCard, error)
	SaveCard(ctx context.Context, c *finance.BankCard) error
	ListCards(ctx context.Context, profile finance.Profile) ([]finance.BankCard, error)

	// Debts
	GetDebt(ctx context.Context, id finance.DebtID) (*finance.Debt, error)
	SaveDebt(ctx context.Context, d *finance.Debt) error
	ListDebts(ctx context.Context, profile finance.Profile) ([]finance.Debt, error)

	// Savings goals
	GetGoal(ctx context.Context, id finance.GoalID) (*finance.SavingsGoal, error)
	SaveGoal(ctx context.Context, g *finance.SavingsGoal) error
	ListGoals(ctx context.Context, profile finance.Profile) ([]finance.SavingsGoal, error)

	// Investments (closing an investment deletes the record)
	GetInvestment(ctx context.Context, id finance.InvestmentID) (*finance.Investment, error)
	SaveInvestment(ctx context.Context, i *finance.Investment) error
	DeleteInvestment(ctx context.Context, id finance.InvestmentID) error
	ListInvestments(ctx context.Context, profile finance.Profile) ([]finance.Investment, error)

	// Subscriptions
	GetSubscription(ctx context.Context, id finance.SubscriptionID) (*finance.Subscription, error)
	SaveSubscription(ctx context.Context, s *finance.Subscription) error
	ListSubscriptions(ctx context.Context, profile finance.Profile) ([]finance.Subscription, error)

	// Tangible assets (selling an asset deletes the record)
	GetAsset(ctx context.Context, id finance.AssetID) (*finance.TangibleAsset, error)
	SaveAsset(ctx context.Context, a *finance.TangibleAsset) error
	DeleteAsset(ctx context.Context, id finance.AssetID) error
	ListAssets(ctx context.Context, profile finance.Profile) ([]finance.TangibleAsset, error)

	// Transactions. Insert fails if the id already exists; Delete fails with
	// finance.NotFoundError if it does not (the reversal idempotency boundary).
	GetTransaction(ctx context.Context, id finance.TransactionID) (*finance.Transaction, error)
	InsertTransaction(ctx context.Context, tx *finance.Transaction) error
	UpdateTransaction(ctx context.Context, tx *finance.Transaction) error
	DeleteTransaction(ctx context.Context, id finance.TransactionID) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]finance.Transaction, error)

	// History rows (append-only)
	AppendDebtPayment(ctx context.Context, p finance.DebtPayment) error
	ListDebtPayments(ctx context.Context, debtID finance.DebtID) ([]finance.DebtPayment, error)
	AppendGoalContribution(ctx context.Context, c finance.GoalContribution) error
	ListGoalContributions(ctx context.Context, goalID finance.GoalID) ([]finance.GoalContribution, error)
	AppendInvestmentContribution(ctx context.Context, c finance.InvestmentContribution) error
	ListInvestmentContributions(ctx context.Context, id finance.InvestmentID) ([]finance.InvestmentContribution, error)
	AppendTaxPayment(ctx context.Context, p finance.TaxPayment) error
	ListTaxPayments(ctx context.Context, profile finance.Profile) ([]finance.TaxPayment, error)
}

// TransactionFilter narrows ListTransactions. Nil fields match everything.
type TransactionFilter struct {
	Profile *finance.Profile
	Type    *finance.TransactionType
	From    *time.Time
	To      *time.Time
}

// =============================================================================
// TRANSACTIONAL STORE - The atomic unit
// =============================================================================

// TxStore wraps Store with the atomic read-then-conditional-write unit.
type TxStore interface {
	Store

	// WithTx executes fn against a consistent snapshot. If fn returns an
	// error every staged write is discarded; otherwise all writes commit
	// together. Conflicting concurrent commits surface as finance.ErrConflict.
	WithTx(ctx context.Context, fn func(Store) error) error
}
