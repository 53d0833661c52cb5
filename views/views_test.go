package views_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/ledger"
	"github.com/casaflow/ledger-engine/store/memory"
	"github.com/casaflow/ledger-engine/views"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func tx(txType finance.TransactionType, amount int64, category string, profile finance.Profile) finance.Transaction {
	return finance.Transaction{
		Type:     txType,
		Amount:   amt(amount),
		Category: category,
		Profile:  profile,
		Date:     testNow,
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize(t *testing.T) {
	// GIVEN: Income 100,000, expenses 30,000 + 20,000, one transfer
	// THEN: Income 100,000, expense 50,000, net 50,000; transfer counted nowhere

	txs := []finance.Transaction{
		tx(finance.TxIncome, 100_000, "Salario", "personal"),
		tx(finance.TxExpense, 30_000, "Comida", "personal"),
		tx(finance.TxExpense, 20_000, "Comida", "personal"),
		tx(finance.TxTransfer, 500_000, "", "personal"),
	}

	s := views.Summarize(txs)

	assert.True(t, s.Income.Equal(amt(100_000)))
	assert.True(t, s.Expense.Equal(amt(50_000)))
	assert.True(t, s.Net.Equal(amt(50_000)))
	assert.True(t, s.ByCategory["Comida"].Equal(amt(50_000)))
}

func TestSummarize_Empty(t *testing.T) {
	s := views.Summarize(nil)
	assert.True(t, s.Income.IsZero())
	assert.True(t, s.Expense.IsZero())
	assert.True(t, s.Net.IsZero())
	assert.Empty(t, s.ByCategory)
}

// =============================================================================
// FILTERS
// =============================================================================

func TestFilterByProfile(t *testing.T) {
	txs := []finance.Transaction{
		tx(finance.TxExpense, 10, "a", "personal"),
		tx(finance.TxExpense, 20, "b", "business"),
		tx(finance.TxExpense, 30, "c", "personal"),
	}

	got := views.FilterByProfile(txs, "personal")
	assert.Len(t, got, 2)
	for _, x := range got {
		assert.Equal(t, finance.Profile("personal"), x.Profile)
	}
}

func TestFilterByPeriod(t *testing.T) {
	inside := tx(finance.TxExpense, 10, "a", "personal")
	outside := tx(finance.TxExpense, 20, "b", "personal")
	outside.Date = testNow.AddDate(0, -2, 0)

	got := views.FilterByPeriod([]finance.Transaction{inside, outside}, finance.MonthOf(testNow))
	assert.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(amt(10)))
}

// =============================================================================
// KPIs
// =============================================================================

func TestComputeKPIs(t *testing.T) {
	limit := amt(500_000)
	accounts := []finance.BankAccount{
		{ID: "a1", Balance: amt(100_000)},
		{ID: "a2", Balance: amt(50_000), HasCreditLine: true, CreditLineLimit: limit, CreditLineUsed: amt(20_000)},
	}
	cards := []finance.BankCard{
		{ID: "c1", CardType: finance.CardCredit, UsedAmount: amt(30_000)},
		{ID: "c2", CardType: finance.CardDebit, UsedAmount: amt(999)}, // debit used amount is ignored
	}
	debts := []finance.Debt{
		{ID: "d1", TotalAmount: amt(1_200_000), PaidAmount: amt(200_000)},
	}
	goals := []finance.SavingsGoal{
		{ID: "g1", TargetAmount: amt(1_000_000), CurrentAmount: amt(400_000)},
	}
	investments := []finance.Investment{
		{ID: "i1", InitialAmount: amt(300_000), CurrentValue: amt(350_000)},
	}

	k := views.ComputeKPIs(accounts, cards, debts, goals, investments)

	assert.True(t, k.TotalBalance.Equal(amt(150_000)))
	assert.True(t, k.CreditUsed.Equal(amt(50_000)), "credit line + credit card, debit ignored")
	assert.True(t, k.DebtOutstanding.Equal(amt(1_000_000)))
	assert.True(t, k.GoalSaved.Equal(amt(400_000)))
	assert.True(t, k.GoalTarget.Equal(amt(1_000_000)))
	assert.True(t, k.InvestmentValue.Equal(amt(350_000)))
	assert.True(t, k.InvestmentGain.Equal(amt(50_000)))
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestComputeNotifications(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	tomorrow := testNow.AddDate(0, 0, 1)

	debts := []finance.Debt{
		{ID: "d1", Name: "Atrasada", TotalAmount: amt(100), DueDate: yesterday},
		{ID: "d2", Name: "Al dia", TotalAmount: amt(100), DueDate: tomorrow},
	}
	subs := []finance.Subscription{
		{ID: "s1", Name: "Netflix", Status: finance.SubscriptionActive, DueDate: yesterday},
		{ID: "s2", Name: "Pagada", Status: finance.SubscriptionActive, DueDate: yesterday, PaidThisPeriod: true},
		{ID: "s3", Name: "Cancelada", Status: finance.SubscriptionCancelled, DueDate: yesterday},
	}
	goals := []finance.SavingsGoal{
		{ID: "g1", Name: "Meta", TargetAmount: amt(100), CurrentAmount: amt(100), CompletionNotified: true},
	}

	got := views.ComputeNotifications(testNow, debts, subs, goals)

	kinds := map[views.NotificationKind][]string{}
	for _, n := range got {
		kinds[n.Kind] = append(kinds[n.Kind], n.RefID)
	}
	assert.Equal(t, []string{"d1"}, kinds[views.NotifyDebtOverdue])
	assert.Equal(t, []string{"s1"}, kinds[views.NotifySubscriptionOverdue])
	assert.Equal(t, []string{"g1"}, kinds[views.NotifyGoalCompleted])
}

// =============================================================================
// LOAD - Lazy rollover wiring
// =============================================================================

func TestLoad_RunsPeriodRolloverFirst(t *testing.T) {
	// GIVEN: A subscription paid in February, loaded in March
	// WHEN: The profile view is loaded
	// THEN: The returned subscription has PaidThisPeriod already cleared

	s := memory.New()
	e := ledger.New(s, ledger.WithClock(func() time.Time { return testNow }))
	svc := views.NewService(s, e)
	ctx := context.Background()

	require.NoError(t, s.SaveSubscription(ctx, &finance.Subscription{
		ID: "sub-1", Profile: "personal", Name: "Netflix", Amount: amt(15_000),
		DueDate: testNow, AccountID: "acc-1", Status: finance.SubscriptionActive,
		PaidThisPeriod: true, LastPaymentMonth: time.February, LastPaymentYear: 2024,
	}))

	view, err := svc.Load(ctx, "personal")
	require.NoError(t, err)

	require.Len(t, view.Subscriptions, 1)
	assert.False(t, view.Subscriptions[0].PaidThisPeriod)

	stored, err := s.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.False(t, stored.PaidThisPeriod, "the correction is persisted, not just projected")
}
