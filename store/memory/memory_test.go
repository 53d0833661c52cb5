package memory_test

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
	"github.com/casaflow/ledger-engine/store/memory"
)

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: An account saved before the unit
	// WHEN: A unit mutates it and then fails
	// THEN: The pre-unit state is fully restored

	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.SaveAccount(ctx, &finance.BankAccount{
		ID: "acc-1", Profile: "p", Name: "a", Balance: decimal.NewFromInt(100),
	}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s store.Store) error {
		a, err := s.GetAccount(ctx, "acc-1")
		require.NoError(t, err)
		a.Balance = decimal.NewFromInt(999)
		require.NoError(t, s.SaveAccount(ctx, a))

		require.NoError(t, s.InsertTransaction(ctx, &finance.Transaction{
			ID: "tx-1", Type: finance.TxExpense, Amount: decimal.NewFromInt(1), Profile: "p",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := m.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(100)))

	_, err = m.GetTransaction(ctx, "tx-1")
	assert.True(t, finance.IsNotFound(err))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s store.Store) error {
		return s.SaveAccount(ctx, &finance.BankAccount{
			ID: "acc-1", Profile: "p", Name: "a", Balance: decimal.NewFromInt(50),
		})
	})
	require.NoError(t, err)

	a, err := m.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(50)))
}

func TestGet_ReturnsCopy(t *testing.T) {
	// Mutating a returned aggregate without Save must not leak into the store.
	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.SaveAccount(ctx, &finance.BankAccount{
		ID: "acc-1", Profile: "p", Name: "a", Balance: decimal.NewFromInt(100),
	}))

	a, err := m.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	a.Balance = decimal.NewFromInt(0)

	again, err := m.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(100)))
}

func TestInsertTransaction_DuplicateID(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	tx := &finance.Transaction{ID: "tx-1", Type: finance.TxExpense, Amount: decimal.NewFromInt(1), Profile: "p"}
	require.NoError(t, m.InsertTransaction(ctx, tx))

	err := m.InsertTransaction(ctx, tx)
	assert.Error(t, err)
	assert.False(t, finance.IsNotFound(err))
}

func TestListTransactions_Filter(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	seed := []finance.Transaction{
		{ID: "t1", Type: finance.TxExpense, Amount: decimal.NewFromInt(1), Profile: "personal", Date: base},
		{ID: "t2", Type: finance.TxIncome, Amount: decimal.NewFromInt(2), Profile: "personal", Date: base.AddDate(0, 0, 5)},
		{ID: "t3", Type: finance.TxExpense, Amount: decimal.NewFromInt(3), Profile: "business", Date: base.AddDate(0, 1, 0)},
	}
	for i := range seed {
		require.NoError(t, m.InsertTransaction(ctx, &seed[i]))
	}

	profile := finance.Profile("personal")
	got, err := m.ListTransactions(ctx, store.TransactionFilter{Profile: &profile})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	txType := finance.TxExpense
	got, err = m.ListTransactions(ctx, store.TransactionFilter{Type: &txType})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	from := base.AddDate(0, 0, 1)
	got, err = m.ListTransactions(ctx, store.TransactionFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
