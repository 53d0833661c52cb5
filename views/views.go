/*
Package views is the derived-view layer: filtering, summaries, KPIs and
notification flags computed from the engine's output.

PURPOSE:
  Everything here is read-side. The only mutation triggered from this
  package is the lazy subscription period-rollover check, which runs when
  a profile's data is loaded (no timer, no job), delegated to the engine.

CONSISTENCY:
  This layer does not participate in the engine's atomicity: it reports
  whatever the last committed state was. Balances are read straight off
  the aggregates; nothing is recomputed from transaction history.

SEE ALSO:
  - ledger/engine.go: ResetExpiredPeriodFlags (the rollover mutation)
*/
package views

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/ledger"
	"github.com/casaflow/ledger-engine/store"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  store.Store
	engine *ledger.Engine
	now    func() time.Time
}

func NewService(s store.Store, e *ledger.Engine) *Service {
	return &Service{store: s, engine: e, now: time.Now}
}

// ProfileView is everything the presentation layer needs for one profile.
type ProfileView struct {
	Profile       finance.Profile
	Accounts      []finance.BankAccount
	Cards         []finance.BankCard
	Debts         []finance.Debt
	Goals         []finance.SavingsGoal
	Investments   []finance.Investment
	Subscriptions []finance.Subscription
	Assets        []finance.TangibleAsset
	Summary       Summary
	KPIs          KPISet
	Notifications []Notification
}

// Load fetches a profile's aggregates and the month's transactions, running
// the passive period-rollover correction first.
func (v *Service) Load(ctx context.Context, profile finance.Profile) (*ProfileView, error) {
	if _, err := v.engine.ResetExpiredPeriodFlags(ctx, profile); err != nil {
		return nil, err
	}

	now := v.now()
	period := finance.MonthOf(now)

	accounts, err := v.store.ListAccounts(ctx, profile)
	if err != nil {
		return nil, err
	}
	cards, err := v.store.ListCards(ctx, profile)
	if err != nil {
		return nil, err
	}
	debts, err := v.store.ListDebts(ctx, profile)
	if err != nil {
		return nil, err
	}
	goals, err := v.store.ListGoals(ctx, profile)
	if err != nil {
		return nil, err
	}
	investments, err := v.store.ListInvestments(ctx, profile)
	if err != nil {
		return nil, err
	}
	subscriptions, err := v.store.ListSubscriptions(ctx, profile)
	if err != nil {
		return nil, err
	}
	assets, err := v.store.ListAssets(ctx, profile)
	if err != nil {
		return nil, err
	}
	txs, err := v.store.ListTransactions(ctx, store.TransactionFilter{
		Profile: &profile,
		From:    &period.From,
		To:      &period.To,
	})
	if err != nil {
		return nil, err
	}

	return &ProfileView{
		Profile:       profile,
		Accounts:      accounts,
		Cards:         cards,
		Debts:         debts,
		Goals:         goals,
		Investments:   investments,
		Subscriptions: subscriptions,
		Assets:        assets,
		Summary:       Summarize(txs),
		KPIs:          ComputeKPIs(accounts, cards, debts, goals, investments),
		Notifications: ComputeNotifications(now, debts, subscriptions, goals),
	}, nil
}

// =============================================================================
// FILTERING - Pure functions over fetched transactions
// =============================================================================

func FilterByProfile(txs []finance.Transaction, profile finance.Profile) []finance.Transaction {
	var out []finance.Transaction
	for _, tx := range txs {
		if tx.Profile == profile {
			out = append(out, tx)
		}
	}
	return out
}

func FilterByPeriod(txs []finance.Transaction, period finance.Period) []finance.Transaction {
	var out []finance.Transaction
	for _, tx := range txs {
		if period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary aggregates a transaction set. Transfers move value between the
// profile's own accounts, so they count toward neither income nor expense.
type Summary struct {
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Net        decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

func Summarize(txs []finance.Transaction) Summary {
	s := Summary{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		switch tx.Type {
		case finance.TxIncome:
			s.Income = s.Income.Add(tx.Amount)
		case finance.TxExpense:
			s.Expense = s.Expense.Add(tx.Amount)
			s.ByCategory[tx.Category] = s.ByCategory[tx.Category].Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// =============================================================================
// KPIs
// =============================================================================

type KPISet struct {
	TotalBalance    decimal.Decimal // cash across all accounts
	CreditUsed      decimal.Decimal // credit cards + credit lines
	DebtOutstanding decimal.Decimal
	GoalSaved       decimal.Decimal
	GoalTarget      decimal.Decimal
	InvestmentValue decimal.Decimal
	InvestmentGain  decimal.Decimal
}

func ComputeKPIs(
	accounts []finance.BankAccount,
	cards []finance.BankCard,
	debts []finance.Debt,
	goals []finance.SavingsGoal,
	investments []finance.Investment,
) KPISet {
	var k KPISet
	for _, a := range accounts {
		k.TotalBalance = k.TotalBalance.Add(a.Balance)
		if a.HasCreditLine {
			k.CreditUsed = k.CreditUsed.Add(a.CreditLineUsed)
		}
	}
	for _, c := range cards {
		if c.IsCredit() {
			k.CreditUsed = k.CreditUsed.Add(c.UsedAmount)
		}
	}
	for _, d := range debts {
		k.DebtOutstanding = k.DebtOutstanding.Add(d.Remaining())
	}
	for _, g := range goals {
		k.GoalSaved = k.GoalSaved.Add(g.CurrentAmount)
		k.GoalTarget = k.GoalTarget.Add(g.TargetAmount)
	}
	for _, i := range investments {
		k.InvestmentValue = k.InvestmentValue.Add(i.CurrentValue)
		k.InvestmentGain = k.InvestmentGain.Add(i.ProfitLoss())
	}
	return k
}

// =============================================================================
// NOTIFICATIONS - Derived flags only; content/presentation is out of scope
// =============================================================================

type NotificationKind string

const (
	NotifyDebtOverdue         NotificationKind = "debt_overdue"
	NotifySubscriptionOverdue NotificationKind = "subscription_overdue"
	NotifyGoalCompleted       NotificationKind = "goal_completed"
)

type Notification struct {
	Kind  NotificationKind
	RefID string
	Name  string
}

func ComputeNotifications(
	now time.Time,
	debts []finance.Debt,
	subscriptions []finance.Subscription,
	goals []finance.SavingsGoal,
) []Notification {
	var out []Notification
	for _, d := range debts {
		if d.IsOverdue(now) {
			out = append(out, Notification{Kind: NotifyDebtOverdue, RefID: string(d.ID), Name: d.Name})
		}
	}
	for _, s := range subscriptions {
		if s.IsOverdue(now) {
			out = append(out, Notification{Kind: NotifySubscriptionOverdue, RefID: string(s.ID), Name: s.Name})
		}
	}
	for _, g := range goals {
		if g.CompletionNotified {
			out = append(out, Notification{Kind: NotifyGoalCompleted, RefID: string(g.ID), Name: g.Name})
		}
	}
	return out
}
