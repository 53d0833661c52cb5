package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
	"github.com/casaflow/ledger-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccountRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	limit := decimal.RequireFromString("250000.50")
	account := &finance.BankAccount{
		ID:              "acc-1",
		Profile:         "personal",
		Name:            "Cuenta Corriente",
		Balance:         decimal.RequireFromString("100000.25"),
		Purpose:         finance.PurposeMain,
		MonthlyLimit:    &limit,
		HasCreditLine:   true,
		CreditLineLimit: decimal.NewFromInt(500_000),
		CreditLineUsed:  decimal.NewFromInt(20_000),
		CreatedAt:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveAccount(ctx, account))

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, account.Name, got.Name)
	assert.Equal(t, finance.PurposeMain, got.Purpose)
	assert.True(t, got.Balance.Equal(account.Balance), "decimal precision must survive the roundtrip")
	require.NotNil(t, got.MonthlyLimit)
	assert.True(t, got.MonthlyLimit.Equal(limit))
	assert.True(t, got.HasCreditLine)
	assert.True(t, got.CreditLineUsed.Equal(account.CreditLineUsed))
}

func TestSaveAccount_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	account := &finance.BankAccount{
		ID: "acc-1", Profile: "p", Name: "a",
		Balance: decimal.NewFromInt(100), Purpose: finance.PurposeMain, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveAccount(ctx, account))

	account.Balance = decimal.NewFromInt(70)
	require.NoError(t, s.SaveAccount(ctx, account))

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(70)))

	accounts, err := s.ListAccounts(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestGetAccount_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccount(context.Background(), "ghost")
	assert.True(t, finance.IsNotFound(err))
}

func TestTransactionRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := &finance.Transaction{
		ID:              "tx-1",
		Type:            finance.TxExpense,
		Amount:          decimal.RequireFromString("30000.75"),
		Date:            time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Profile:         "personal",
		Category:        "Comida",
		Description:     "mercado",
		SourceAccountID: "acc-1",
		TaxDetails:      &finance.TaxDetails{Rate: decimal.RequireFromString("0.19"), Amount: decimal.NewFromInt(5700)},
		Origin:          finance.Origin{Kind: finance.OriginDebtPayment, RefID: "debt-1"},
		CreatedAt:       time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.InsertTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(tx.Amount))
	assert.Equal(t, finance.OriginDebtPayment, got.Origin.Kind)
	assert.Equal(t, "debt-1", got.Origin.RefID)
	require.NotNil(t, got.TaxDetails)
	assert.True(t, got.TaxDetails.Rate.Equal(decimal.RequireFromString("0.19")))
}

func TestDeleteTransaction_SecondDeleteNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertTransaction(ctx, &finance.Transaction{
		ID: "tx-1", Type: finance.TxExpense, Amount: decimal.NewFromInt(1),
		Date: time.Now().UTC(), Profile: "p", CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteTransaction(ctx, "tx-1"))
	err := s.DeleteTransaction(ctx, "tx-1")
	assert.True(t, finance.IsNotFound(err))
}

func TestListTransactions_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	seed := []finance.Transaction{
		{ID: "t1", Type: finance.TxExpense, Amount: decimal.NewFromInt(1), Profile: "personal", Date: base, CreatedAt: base},
		{ID: "t2", Type: finance.TxIncome, Amount: decimal.NewFromInt(2), Profile: "personal", Date: base.AddDate(0, 0, 10), CreatedAt: base},
		{ID: "t3", Type: finance.TxExpense, Amount: decimal.NewFromInt(3), Profile: "business", Date: base.AddDate(0, 1, 0), CreatedAt: base},
	}
	for i := range seed {
		require.NoError(t, s.InsertTransaction(ctx, &seed[i]))
	}

	profile := finance.Profile("personal")
	txType := finance.TxExpense
	got, err := s.ListTransactions(ctx, store.TransactionFilter{Profile: &profile, Type: &txType})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, finance.TransactionID("t1"), got[0].ID)

	from := base.AddDate(0, 0, 5)
	to := base.AddDate(0, 0, 15)
	got, err = s.ListTransactions(ctx, store.TransactionFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, finance.TransactionID("t2"), got[0].ID)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: An account saved before the unit
	// WHEN: A unit mutates it and fails
	// THEN: The database shows the pre-unit state

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccount(ctx, &finance.BankAccount{
		ID: "acc-1", Profile: "p", Name: "a",
		Balance: decimal.NewFromInt(100), Purpose: finance.PurposeMain, CreatedAt: time.Now().UTC(),
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txs store.Store) error {
		a, err := txs.GetAccount(ctx, "acc-1")
		require.NoError(t, err)
		a.Balance = decimal.NewFromInt(0)
		require.NoError(t, txs.SaveAccount(ctx, a))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}

func TestWithTx_Commit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(txs store.Store) error {
		return txs.SaveAccount(ctx, &finance.BankAccount{
			ID: "acc-1", Profile: "p", Name: "a",
			Balance: decimal.NewFromInt(42), Purpose: finance.PurposeSavings, CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(42)))
}

func TestHistoryRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendDebtPayment(ctx, finance.DebtPayment{
		ID: "p1", DebtID: "debt-1", Amount: decimal.NewFromInt(100_000), Date: now,
	}))
	require.NoError(t, s.AppendDebtPayment(ctx, finance.DebtPayment{
		ID: "p2", DebtID: "debt-1", Amount: decimal.NewFromInt(50_000), Date: now.AddDate(0, 1, 0),
	}))

	payments, err := s.ListDebtPayments(ctx, "debt-1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "p1", payments[0].ID, "history rows are date-ordered")

	require.NoError(t, s.AppendTaxPayment(ctx, finance.TaxPayment{
		ID: "t1", Profile: "personal", AccountID: "acc-1",
		Amount: decimal.NewFromInt(120_000), Period: "2024-Q1", Date: now,
	}))
	taxes, err := s.ListTaxPayments(ctx, "personal")
	require.NoError(t, err)
	require.Len(t, taxes, 1)
	assert.Equal(t, "2024-Q1", taxes[0].Period)
}
