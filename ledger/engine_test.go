package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/ledger"
	"github.com/casaflow/ledger-engine/store"
	"github.com/casaflow/ledger-engine/store/memory"
)

func storeFilterAll() store.TransactionFilter {
	return store.TransactionFilter{}
}

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*ledger.Engine, *memory.Memory) {
	t.Helper()
	s := memory.New()
	e := ledger.New(s, ledger.WithClock(func() time.Time { return testNow }))
	return e, s
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func seedAccount(t *testing.T, s *memory.Memory, id string, balance int64) {
	t.Helper()
	err := s.SaveAccount(context.Background(), &finance.BankAccount{
		ID:        finance.AccountID(id),
		Profile:   "personal",
		Name:      id,
		Balance:   amt(balance),
		Purpose:   finance.PurposeMain,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
}

func seedCreditLineAccount(t *testing.T, s *memory.Memory, id string, balance, lineLimit int64) {
	t.Helper()
	err := s.SaveAccount(context.Background(), &finance.BankAccount{
		ID:              finance.AccountID(id),
		Profile:         "personal",
		Name:            id,
		Balance:         amt(balance),
		Purpose:         finance.PurposeMain,
		HasCreditLine:   true,
		CreditLineLimit: amt(lineLimit),
		CreatedAt:       testNow,
	})
	require.NoError(t, err)
}

func seedCard(t *testing.T, s *memory.Memory, id, accountID string, cardType finance.CardType) {
	t.Helper()
	err := s.SaveCard(context.Background(), &finance.BankCard{
		ID:        finance.CardID(id),
		AccountID: finance.AccountID(accountID),
		Profile:   "personal",
		Name:      id,
		CardType:  cardType,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
}

func accountBalance(t *testing.T, s *memory.Memory, id string) decimal.Decimal {
	t.Helper()
	a, err := s.GetAccount(context.Background(), finance.AccountID(id))
	require.NoError(t, err)
	return a.Balance
}

func expense(amount int64, accountID string) ledger.ApplyInput {
	return ledger.ApplyInput{
		Type:            finance.TxExpense,
		Amount:          amt(amount),
		Profile:         "personal",
		Category:        "Comida",
		SourceAccountID: finance.AccountID(accountID),
	}
}

// =============================================================================
// DECISION TABLE ROUTING
// =============================================================================

func TestApply_Income_CreditsAccount(t *testing.T) {
	// GIVEN: An account with balance 100,000
	// WHEN: Income of 50,000 is applied
	// THEN: Balance becomes 150,000 and a record with the amount exists

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, ledger.ApplyInput{
		Type:            finance.TxIncome,
		Amount:          amt(50_000),
		Profile:         "personal",
		Category:        "Salario",
		SourceAccountID: "acc-1",
	})
	require.NoError(t, err)

	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(150_000)))
	stored, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(amt(50_000)))
	assert.Equal(t, finance.OriginManual, stored.Origin.Kind)
}

func TestApply_Expense_DebitsAccount(t *testing.T) {
	// GIVEN: An account with balance 100,000
	// WHEN: An expense of 30,000 is applied
	// THEN: Balance becomes 70,000

	e, s := newTestEngine(t)
	seedAccount(t, s, "acc-1", 100_000)

	_, err := e.Apply(context.Background(), expense(30_000, "acc-1"))
	require.NoError(t, err)

	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(70_000)))
}

func TestApply_Expense_CreditCard_AccumulatesUsedAmount(t *testing.T) {
	// GIVEN: A credit card on an account with balance 100,000
	// WHEN: A card expense of 25,000 is applied
	// THEN: Card UsedAmount rises; the cash balance is untouched

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)
	seedCard(t, s, "card-1", "acc-1", finance.CardCredit)

	in := expense(25_000, "")
	in.CardID = "card-1"
	_, err := e.Apply(ctx, in)
	require.NoError(t, err)

	card, err := s.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, card.UsedAmount.Equal(amt(25_000)))
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(100_000)), "cash balance must not move for a credit card expense")
}

func TestApply_Expense_DebitCard_DebitsOwningAccount(t *testing.T) {
	// GIVEN: A debit card owned by acc-1
	// WHEN: A card expense of 25,000 is applied
	// THEN: The owning account's balance drops; UsedAmount stays zero

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)
	seedCard(t, s, "card-1", "acc-1", finance.CardDebit)

	in := expense(25_000, "")
	in.CardID = "card-1"
	_, err := e.Apply(ctx, in)
	require.NoError(t, err)

	card, err := s.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, card.UsedAmount.IsZero())
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(75_000)))
}

func TestApply_Expense_CreditLine_AccumulatesUsed(t *testing.T) {
	// GIVEN: An account with a credit line
	// WHEN: An expense flagged as credit-line funded is applied
	// THEN: CreditLineUsed rises; the cash balance is untouched

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedCreditLineAccount(t, s, "acc-1", 100_000, 500_000)

	in := expense(40_000, "acc-1")
	in.IsCreditLinePayment = true
	_, err := e.Apply(ctx, in)
	require.NoError(t, err)

	a, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, a.CreditLineUsed.Equal(amt(40_000)))
	assert.True(t, a.Balance.Equal(amt(100_000)))
}

func TestApply_Transfer_MovesBetweenAccounts(t *testing.T) {
	// GIVEN: Two accounts, 100,000 and 20,000
	// WHEN: 30,000 is transferred
	// THEN: Source drops, destination rises, total is conserved

	e, s := newTestEngine(t)
	seedAccount(t, s, "src", 100_000)
	seedAccount(t, s, "dst", 20_000)

	_, err := e.Apply(context.Background(), ledger.ApplyInput{
		Type:                 finance.TxTransfer,
		Amount:               amt(30_000),
		Profile:              "personal",
		SourceAccountID:      "src",
		DestinationAccountID: "dst",
	})
	require.NoError(t, err)

	src := accountBalance(t, s, "src")
	dst := accountBalance(t, s, "dst")
	assert.True(t, src.Equal(amt(70_000)))
	assert.True(t, dst.Equal(amt(50_000)))
	assert.True(t, src.Add(dst).Equal(amt(120_000)), "transfer must conserve total balance")
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestApply_Validation_Rejected(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	cases := []struct {
		name string
		in   ledger.ApplyInput
	}{
		{"zero amount", ledger.ApplyInput{Type: finance.TxExpense, Amount: decimal.Zero, SourceAccountID: "acc-1"}},
		{"negative amount", ledger.ApplyInput{Type: finance.TxExpense, Amount: amt(-5), SourceAccountID: "acc-1"}},
		{"no funding reference", ledger.ApplyInput{Type: finance.TxExpense, Amount: amt(10)}},
		{"income with card", ledger.ApplyInput{Type: finance.TxIncome, Amount: amt(10), SourceAccountID: "acc-1", CardID: "card-1"}},
		{"card and credit line together", ledger.ApplyInput{Type: finance.TxExpense, Amount: amt(10), SourceAccountID: "acc-1", CardID: "card-1", IsCreditLinePayment: true}},
		{"transfer without destination", ledger.ApplyInput{Type: finance.TxTransfer, Amount: amt(10), SourceAccountID: "acc-1"}},
		{"transfer to itself", ledger.ApplyInput{Type: finance.TxTransfer, Amount: amt(10), SourceAccountID: "acc-1", DestinationAccountID: "acc-1"}},
		{"unknown type", ledger.ApplyInput{Type: "loan", Amount: amt(10), SourceAccountID: "acc-1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Apply(ctx, tc.in)
			assert.True(t, finance.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// Nothing may have been written by any rejected input.
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(100_000)))
	txs, err := s.ListTransactions(ctx, storeFilterAll())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestApply_MissingAccount_NothingWritten(t *testing.T) {
	// GIVEN: An expense referencing an account that does not exist
	// WHEN: Apply runs
	// THEN: NotFound is returned and no record was inserted

	e, s := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Apply(ctx, expense(10_000, "ghost"))
	assert.True(t, finance.IsNotFound(err))

	txs, err := s.ListTransactions(ctx, storeFilterAll())
	require.NoError(t, err)
	assert.Empty(t, txs, "the record insert must roll back with the failed effect")
}

func TestApply_Transfer_MissingDestination_SourceUntouched(t *testing.T) {
	// GIVEN: A transfer whose destination does not exist
	// WHEN: Apply runs (source debit succeeds, destination credit fails)
	// THEN: The whole unit aborts; source balance is unchanged

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "src", 100_000)

	_, err := e.Apply(ctx, ledger.ApplyInput{
		Type:                 finance.TxTransfer,
		Amount:               amt(30_000),
		Profile:              "personal",
		SourceAccountID:      "src",
		DestinationAccountID: "ghost",
	})
	assert.True(t, finance.IsNotFound(err))

	assert.True(t, accountBalance(t, s, "src").Equal(amt(100_000)))
	txs, err := s.ListTransactions(ctx, storeFilterAll())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

var errDiskFull = errors.New("disk full")

// faultyTxStore lets a fixed number of account writes through inside each
// atomic unit and then fails, so tests can break a unit partway.
type faultyTxStore struct {
	store.TxStore
	allowedSaves int
}

func (f *faultyTxStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.TxStore.WithTx(ctx, func(s store.Store) error {
		return fn(&faultyStore{Store: s, remaining: &f.allowedSaves})
	})
}

type faultyStore struct {
	store.Store
	remaining *int
}

func (f *faultyStore) SaveAccount(ctx context.Context, a *finance.BankAccount) error {
	if *f.remaining <= 0 {
		return errDiskFull
	}
	*f.remaining--
	return f.Store.SaveAccount(ctx, a)
}

func TestApply_StorageFailureMidUnit_RollsBackEverything(t *testing.T) {
	// GIVEN: A store that fails on the second account write of the unit
	// WHEN: A transfer is applied (record insert and source debit succeed,
	//       destination credit fails)
	// THEN: The error surfaces and neither the record nor the debit survive

	mem := memory.New()
	seedAccount(t, mem, "src", 100_000)
	seedAccount(t, mem, "dst", 10_000)

	e := ledger.New(&faultyTxStore{TxStore: mem, allowedSaves: 1},
		ledger.WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	_, err := e.Apply(ctx, ledger.ApplyInput{
		Type:                 finance.TxTransfer,
		Amount:               amt(30_000),
		Profile:              "personal",
		SourceAccountID:      "src",
		DestinationAccountID: "dst",
	})
	require.ErrorIs(t, err, errDiskFull)

	assert.True(t, accountBalance(t, mem, "src").Equal(amt(100_000)))
	assert.True(t, accountBalance(t, mem, "dst").Equal(amt(10_000)))
	txs, err := mem.ListTransactions(ctx, storeFilterAll())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// =============================================================================
// REVERSAL
// =============================================================================

func TestReverse_RestoresBalance(t *testing.T) {
	// GIVEN: Balance 100,000, an expense of 30,000 applied (balance 70,000)
	// WHEN: The expense is reversed
	// THEN: Balance is exactly 100,000 again and the record is gone

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)
	require.True(t, accountBalance(t, s, "acc-1").Equal(amt(70_000)))

	require.NoError(t, e.Reverse(ctx, tx.ID))

	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(100_000)))
	_, err = s.GetTransaction(ctx, tx.ID)
	assert.True(t, finance.IsNotFound(err))
}

func TestReverse_Twice_NotFound(t *testing.T) {
	// GIVEN: A reversed transaction
	// WHEN: Reverse is called again with the same id
	// THEN: NotFound; the inverse is never applied twice

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)
	require.NoError(t, e.Reverse(ctx, tx.ID))

	err = e.Reverse(ctx, tx.ID)
	assert.True(t, finance.IsNotFound(err))
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(100_000)), "double reverse must not double-credit")
}

func TestReverse_CreditCardExpense(t *testing.T) {
	// GIVEN: A credit card expense raising UsedAmount
	// WHEN: It is reversed
	// THEN: UsedAmount is back to zero

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)
	seedCard(t, s, "card-1", "acc-1", finance.CardCredit)

	in := expense(25_000, "")
	in.CardID = "card-1"
	tx, err := e.Apply(ctx, in)
	require.NoError(t, err)

	require.NoError(t, e.Reverse(ctx, tx.ID))

	card, err := s.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, card.UsedAmount.IsZero())
}

func TestReverse_Transfer(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "src", 100_000)
	seedAccount(t, s, "dst", 20_000)

	tx, err := e.Apply(ctx, ledger.ApplyInput{
		Type:                 finance.TxTransfer,
		Amount:               amt(30_000),
		Profile:              "personal",
		SourceAccountID:      "src",
		DestinationAccountID: "dst",
	})
	require.NoError(t, err)

	require.NoError(t, e.Reverse(ctx, tx.ID))

	assert.True(t, accountBalance(t, s, "src").Equal(amt(100_000)))
	assert.True(t, accountBalance(t, s, "dst").Equal(amt(20_000)))
}

// =============================================================================
// EDIT / AMEND
// =============================================================================

func TestEdit_DescriptiveFieldsOnly(t *testing.T) {
	// GIVEN: An applied expense
	// WHEN: Description and category are edited
	// THEN: The fields change; amount and balances do not

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)

	desc := "almuerzo"
	cat := "Restaurantes"
	updated, err := e.Edit(ctx, tx.ID, ledger.EditInput{Description: &desc, Category: &cat})
	require.NoError(t, err)

	assert.Equal(t, "almuerzo", updated.Description)
	assert.Equal(t, "Restaurantes", updated.Category)
	assert.True(t, updated.Amount.Equal(amt(30_000)), "edit must not change the amount")
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(70_000)), "edit must not touch balances")
}

func TestEdit_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	desc := "x"
	_, err := e.Edit(context.Background(), "ghost", ledger.EditInput{Description: &desc})
	assert.True(t, finance.IsNotFound(err))
}

func TestAmend_ReappliesEffect(t *testing.T) {
	// GIVEN: Balance 100,000 with an applied expense of 30,000
	// WHEN: The transaction is amended to 20,000
	// THEN: Balance is 80,000, the id is kept, CreatedAt is preserved

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)

	amended, err := e.Amend(ctx, tx.ID, expense(20_000, "acc-1"))
	require.NoError(t, err)

	assert.Equal(t, tx.ID, amended.ID)
	assert.Equal(t, tx.CreatedAt, amended.CreatedAt)
	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(80_000)))
}

func TestAmend_ChangeType(t *testing.T) {
	// GIVEN: An expense of 30,000 (balance 70,000)
	// WHEN: Amended into an income of 10,000
	// THEN: Balance is 110,000: old effect gone, new effect applied

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)

	_, err = e.Amend(ctx, tx.ID, ledger.ApplyInput{
		Type:            finance.TxIncome,
		Amount:          amt(10_000),
		Profile:         "personal",
		SourceAccountID: "acc-1",
	})
	require.NoError(t, err)

	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(110_000)))
}

func TestAmend_InvalidReplacement_NothingChanges(t *testing.T) {
	// GIVEN: An applied expense
	// WHEN: Amend is called with an invalid replacement
	// THEN: Validation fails before any store access; state is untouched

	e, s := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, s, "acc-1", 100_000)

	tx, err := e.Apply(ctx, expense(30_000, "acc-1"))
	require.NoError(t, err)

	_, err = e.Amend(ctx, tx.ID, expense(-5, "acc-1"))
	assert.True(t, finance.IsValidation(err))

	assert.True(t, accountBalance(t, s, "acc-1").Equal(amt(70_000)))
	stored, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(amt(30_000)))
}

// =============================================================================
// PERIOD ROLLOVER
// =============================================================================

func TestResetExpiredPeriodFlags(t *testing.T) {
	// GIVEN: One subscription paid last month, one paid this month
	// WHEN: ResetExpiredPeriodFlags runs
	// THEN: Only the stale flag is cleared

	e, s := newTestEngine(t)
	ctx := context.Background()

	stale := finance.Subscription{
		ID: "sub-stale", Profile: "personal", Name: "Netflix", Amount: amt(15_000),
		Status: finance.SubscriptionActive, PaidThisPeriod: true,
		LastPaymentMonth: time.February, LastPaymentYear: 2024,
	}
	fresh := finance.Subscription{
		ID: "sub-fresh", Profile: "personal", Name: "Spotify", Amount: amt(6_000),
		Status: finance.SubscriptionActive, PaidThisPeriod: true,
		LastPaymentMonth: time.March, LastPaymentYear: 2024,
	}
	require.NoError(t, s.SaveSubscription(ctx, &stale))
	require.NoError(t, s.SaveSubscription(ctx, &fresh))

	count, err := e.ResetExpiredPeriodFlags(ctx, "personal")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.GetSubscription(ctx, "sub-stale")
	require.NoError(t, err)
	assert.False(t, got.PaidThisPeriod)

	got, err = s.GetSubscription(ctx, "sub-fresh")
	require.NoError(t, err)
	assert.True(t, got.PaidThisPeriod)
}
