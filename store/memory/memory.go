/*
Package memory provides an in-memory TxStore implementation.

PURPOSE:
  Used by tests and the dev server. Atomicity is simulated the same way as
  a transactional database: WithTx snapshots the whole state up front and
  restores it if the unit fails, so a failing step can never leave a
  partial delta behind.

CONCURRENCY:
  One RWMutex serializes atomic units, so snapshot invalidation cannot
  occur here and finance.ErrConflict is never returned. The SQLite and
  Mongo stores are where real conflicts surface.

SEE ALSO:
  - store/store.go: Interface contract
  - store/sqlite:   Production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	s  state
}

// state holds every record by value so snapshot/restore is a plain copy.
type state struct {
	accounts      map[finance.AccountID]finance.BankAccount
	cards         map[finance.CardID]finance.BankCard
	debts         map[finance.DebtID]finance.Debt
	goals         map[finance.GoalID]finance.SavingsGoal
	investments   map[finance.InvestmentID]finance.Investment
	subscriptions map[finance.SubscriptionID]finance.Subscription
	assets        map[finance.AssetID]finance.TangibleAsset
	transactions  map[finance.TransactionID]finance.Transaction

	debtPayments    []finance.DebtPayment
	goalContribs    []finance.GoalContribution
	investContribs  []finance.InvestmentContribution
	taxPayments     []finance.TaxPayment
}

func New() *Memory {
	return &Memory{s: newState()}
}

func newState() state {
	return state{
		accounts:      make(map[finance.AccountID]finance.BankAccount),
		cards:         make(map[finance.CardID]finance.BankCard),
		debts:         make(map[finance.DebtID]finance.Debt),
		goals:         make(map[finance.GoalID]finance.SavingsGoal),
		investments:   make(map[finance.InvestmentID]finance.Investment),
		subscriptions: make(map[finance.SubscriptionID]finance.Subscription),
		assets:        make(map[finance.AssetID]finance.TangibleAsset),
		transactions:  make(map[finance.TransactionID]finance.Transaction),
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.cards {
		c.cards[k] = v
	}
	for k, v := range st.debts {
		c.debts[k] = v
	}
	for k, v := range st.goals {
		c.goals[k] = v
	}
	for k, v := range st.investments {
		c.investments[k] = v
	}
	for k, v := range st.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range st.assets {
		c.assets[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	c.debtPayments = append([]finance.DebtPayment(nil), st.debtPayments...)
	c.goalContribs = append([]finance.GoalContribution(nil), st.goalContribs...)
	c.investContribs = append([]finance.InvestmentContribution(nil), st.investContribs...)
	c.taxPayments = append([]finance.TaxPayment(nil), st.taxPayments...)
	return c
}

// WithTx executes fn against the live state under the write lock. On error
// the pre-unit snapshot is restored, discarding every staged write.
func (m *Memory) WithTx(ctx context.Context, fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	if err := fn(&view{s: &m.s}); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

// =============================================================================
// LOCKED DELEGATION - Memory implements Store by locking around a view
// =============================================================================

func (m *Memory) read(fn func(*view) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{s: &m.s})
}

func (m *Memory) write(fn func(*view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{s: &m.s})
}

func (m *Memory) GetAccount(ctx context.Context, id finance.AccountID) (a *finance.BankAccount, err error) {
	err = m.read(func(v *view) error { a, err = v.GetAccount(ctx, id); return err })
	return
}

func (m *Memory) SaveAccount(ctx context.Context, a *finance.BankAccount) error {
	return m.write(func(v *view) error { return v.SaveAccount(ctx, a) })
}

func (m *Memory) ListAccounts(ctx context.Context, p finance.Profile) (out []finance.BankAccount, err error) {
	err = m.read(func(v *view) error { out, err = v.ListAccounts(ctx, p); return err })
	return
}

func (m *Memory) GetCard(ctx context.Context, id finance.CardID) (c *finance.BankCard, err error) {
	err = m.read(func(v *view) error { c, err = v.GetCard(ctx, id); return err })
	return
}

func (m *Memory) SaveCard(ctx context.Context, c *finance.BankCard) error {
	return m.write(func(v *view) error { return v.SaveCard(ctx, c) })
}

func (m *Memory) ListCards(ctx context.Context, p finance.Profile) (out []finance.BankCard, err error) {
	err = m.read(func(v *view) error { out, err = v.ListCards(ctx, p); return err })
	return
}

func (m *Memory) GetDebt(ctx context.Context, id finance.DebtID) (d *finance.Debt, err error) {
	err = m.read(func(v *view) error { d, err = v.GetDebt(ctx, id); return err })
	return
}

func (m *Memory) SaveDebt(ctx context.Context, d *finance.Debt) error {
	return m.write(func(v *view) error { return v.SaveDebt(ctx, d) })
}

func (m *Memory) ListDebts(ctx context.Context, p finance.Profile) (out []finance.Debt, err error) {
	err = m.read(func(v *view) error { out, err = v.ListDebts(ctx, p); return err })
	return
}

func (m *Memory) GetGoal(ctx context.Context, id finance.GoalID) (g *finance.SavingsGoal, err error) {
	err = m.read(func(v *view) error { g, err = v.GetGoal(ctx, id); return err })
	return
}

func (m *Memory) SaveGoal(ctx context.Context, g *finance.SavingsGoal) error {
	return m.write(func(v *view) error { return v.SaveGoal(ctx, g) })
}

func (m *Memory) ListGoals(ctx context.Context, p finance.Profile) (out []finance.SavingsGoal, err error) {
	err = m.read(func(v *view) error { out, err = v.ListGoals(ctx, p); return err })
	return
}

func (m *Memory) GetInvestment(ctx context.Context, id finance.InvestmentID) (i *finance.Investment, err error) {
	err = m.read(func(v *view) error { i, err = v.GetInvestment(ctx, id); return err })
	return
}

func (m *Memory) SaveInvestment(ctx context.Context, i *finance.Investment) error {
	return m.write(func(v *view) error { return v.SaveInvestment(ctx, i) })
}

func (m *Memory) DeleteInvestment(ctx context.Context, id finance.InvestmentID) error {
	return m.write(func(v *view) error { return v.DeleteInvestment(ctx, id) })
}

func (m *Memory) ListInvestments(ctx context.Context, p finance.Profile) (out []finance.Investment, err error) {
	err = m.read(func(v *view) error { out, err = v.ListInvestments(ctx, p); return err })
	return
}

func (m *Memory) GetSubscription(ctx context.Context, id finance.SubscriptionID) (s *finance.Subscription, err error) {
	err = m.read(func(v *view) error { s, err = v.GetSubscription(ctx, id); return err })
	return
}

func (m *Memory) SaveSubscription(ctx context.Context, s *finance.Subscription) error {
	return m.write(func(v *view) error { return v.SaveSubscription(ctx, s) })
}

func (m *Memory) ListSubscriptions(ctx context.Context, p finance.Profile) (out []finance.Subscription, err error) {
	err = m.read(func(v *view) error { out, err = v.ListSubscriptions(ctx, p); return err })
	return
}

func (m *Memory) GetAsset(ctx context.Context, id finance.AssetID) (a *finance.TangibleAsset, err error) {
	err = m.read(func(v *view) error { a, err = v.GetAsset(ctx, id); return err })
	return
}

func (m *Memory) SaveAsset(ctx context.Context, a *finance.TangibleAsset) error {
	return m.write(func(v *view) error { return v.SaveAsset(ctx, a) })
}

func (m *Memory) DeleteAsset(ctx context.Context, id finance.AssetID) error {
	return m.write(func(v *view) error { return v.DeleteAsset(ctx, id) })
}

func (m *Memory) ListAssets(ctx context.Context, p finance.Profile) (out []finance.TangibleAsset, err error) {
	err = m.read(func(v *view) error { out, err = v.ListAssets(ctx, p); return err })
	return
}

func (m *Memory) GetTransaction(ctx context.Context, id finance.TransactionID) (t *finance.Transaction, err error) {
	err = m.read(func(v *view) error { t, err = v.GetTransaction(ctx, id); return err })
	return
}

func (m *Memory) InsertTransaction(ctx context.Context, t *finance.Transaction) error {
	return m.write(func(v *view) error { return v.InsertTransaction(ctx, t) })
}

func (m *Memory) UpdateTransaction(ctx context.Context, t *finance.Transaction) error {
	return m.write(func(v *view) error { return v.UpdateTransaction(ctx, t) })
}

func (m *Memory) DeleteTransaction(ctx context.Context, id finance.TransactionID) error {
	return m.write(func(v *view) error { return v.DeleteTransaction(ctx, id) })
}

func (m *Memory) ListTransactions(ctx context.Context, f store.TransactionFilter) (out []finance.Transaction, err error) {
	err = m.read(func(v *view) error { out, err = v.ListTransactions(ctx, f); return err })
	return
}

func (m *Memory) AppendDebtPayment(ctx context.Context, p finance.DebtPayment) error {
	return m.write(func(v *view) error { return v.AppendDebtPayment(ctx, p) })
}

func (m *Memory) ListDebtPayments(ctx context.Context, id finance.DebtID) (out []finance.DebtPayment, err error) {
	err = m.read(func(v *view) error { out, err = v.ListDebtPayments(ctx, id); return err })
	return
}

func (m *Memory) AppendGoalContribution(ctx context.Context, c finance.GoalContribution) error {
	return m.write(func(v *view) error { return v.AppendGoalContribution(ctx, c) })
}

func (m *Memory) ListGoalContributions(ctx context.Context, id finance.GoalID) (out []finance.GoalContribution, err error) {
	err = m.read(func(v *view) error { out, err = v.ListGoalContributions(ctx, id); return err })
	return
}

func (m *Memory) AppendInvestmentContribution(ctx context.Context, c finance.InvestmentContribution) error {
	return m.write(func(v *view) error { return v.AppendInvestmentContribution(ctx, c) })
}

func (m *Memory) ListInvestmentContributions(ctx context.Context, id finance.InvestmentID) (out []finance.InvestmentContribution, err error) {
	err = m.read(func(v *view) error { out, err = v.ListInvestmentContributions(ctx, id); return err })
	return
}

func (m *Memory) AppendTaxPayment(ctx context.Context, p finance.TaxPayment) error {
	return m.write(func(v *view) error { return v.AppendTaxPayment(ctx, p) })
}

func (m *Memory) ListTaxPayments(ctx context.Context, p finance.Profile) (out []finance.TaxPayment, err error) {
	err = m.read(func(v *view) error { out, err = v.ListTaxPayments(ctx, p); return err })
	return
}

// =============================================================================
// VIEW - Unlocked Store over the live state (used inside WithTx)
// =============================================================================

type view struct {
	s *state
}

func (v *view) GetAccount(_ context.Context, id finance.AccountID) (*finance.BankAccount, error) {
	a, ok := v.s.accounts[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "account", ID: string(id)}
	}
	return &a, nil
}

func (v *view) SaveAccount(_ context.Context, a *finance.BankAccount) error {
	v.s.accounts[a.ID] = *a
	return nil
}

func (v *view) ListAccounts(_ context.Context, p finance.Profile) ([]finance.BankAccount, error) {
	var out []finance.BankAccount
	for _, a := range v.s.accounts {
		if p == "" || a.Profile == p {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetCard(_ context.Context, id finance.CardID) (*finance.BankCard, error) {
	c, ok := v.s.cards[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "card", ID: string(id)}
	}
	return &c, nil
}

func (v *view) SaveCard(_ context.Context, c *finance.BankCard) error {
	v.s.cards[c.ID] = *c
	return nil
}

func (v *view) ListCards(_ context.Context, p finance.Profile) ([]finance.BankCard, error) {
	var out []finance.BankCard
	for _, c := range v.s.cards {
		if p == "" || c.Profile == p {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetDebt(_ context.Context, id finance.DebtID) (*finance.Debt, error) {
	d, ok := v.s.debts[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "debt", ID: string(id)}
	}
	return &d, nil
}

func (v *view) SaveDebt(_ context.Context, d *finance.Debt) error {
	v.s.debts[d.ID] = *d
	return nil
}

func (v *view) ListDebts(_ context.Context, p finance.Profile) ([]finance.Debt, error) {
	var out []finance.Debt
	for _, d := range v.s.debts {
		if p == "" || d.Profile == p {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetGoal(_ context.Context, id finance.GoalID) (*finance.SavingsGoal, error) {
	g, ok := v.s.goals[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "goal", ID: string(id)}
	}
	return &g, nil
}

func (v *view) SaveGoal(_ context.Context, g *finance.SavingsGoal) error {
	v.s.goals[g.ID] = *g
	return nil
}

func (v *view) ListGoals(_ context.Context, p finance.Profile) ([]finance.SavingsGoal, error) {
	var out []finance.SavingsGoal
	for _, g := range v.s.goals {
		if p == "" || g.Profile == p {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetInvestment(_ context.Context, id finance.InvestmentID) (*finance.Investment, error) {
	i, ok := v.s.investments[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "investment", ID: string(id)}
	}
	return &i, nil
}

func (v *view) SaveInvestment(_ context.Context, i *finance.Investment) error {
	v.s.investments[i.ID] = *i
	return nil
}

func (v *view) DeleteInvestment(_ context.Context, id finance.InvestmentID) error {
	if _, ok := v.s.investments[id]; !ok {
		return &finance.NotFoundError{Kind: "investment", ID: string(id)}
	}
	delete(v.s.investments, id)
	return nil
}

func (v *view) ListInvestments(_ context.Context, p finance.Profile) ([]finance.Investment, error) {
	var out []finance.Investment
	for _, i := range v.s.investments {
		if p == "" || i.Profile == p {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetSubscription(_ context.Context, id finance.SubscriptionID) (*finance.Subscription, error) {
	s, ok := v.s.subscriptions[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "subscription", ID: string(id)}
	}
	return &s, nil
}

func (v *view) SaveSubscription(_ context.Context, s *finance.Subscription) error {
	v.s.subscriptions[s.ID] = *s
	return nil
}

func (v *view) ListSubscriptions(_ context.Context, p finance.Profile) ([]finance.Subscription, error) {
	var out []finance.Subscription
	for _, s := range v.s.subscriptions {
		if p == "" || s.Profile == p {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetAsset(_ context.Context, id finance.AssetID) (*finance.TangibleAsset, error) {
	a, ok := v.s.assets[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "asset", ID: string(id)}
	}
	return &a, nil
}

func (v *view) SaveAsset(_ context.Context, a *finance.TangibleAsset) error {
	v.s.assets[a.ID] = *a
	return nil
}

func (v *view) DeleteAsset(_ context.Context, id finance.AssetID) error {
	if _, ok := v.s.assets[id]; !ok {
		return &finance.NotFoundError{Kind: "asset", ID: string(id)}
	}
	delete(v.s.assets, id)
	return nil
}

func (v *view) ListAssets(_ context.Context, p finance.Profile) ([]finance.TangibleAsset, error) {
	var out []finance.TangibleAsset
	for _, a := range v.s.assets {
		if p == "" || a.Profile == p {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetTransaction(_ context.Context, id finance.TransactionID) (*finance.Transaction, error) {
	t, ok := v.s.transactions[id]
	if !ok {
		return nil, &finance.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	return &t, nil
}

func (v *view) InsertTransaction(_ context.Context, t *finance.Transaction) error {
	if _, ok := v.s.transactions[t.ID]; ok {
		return &finance.InvariantError{Check: "transaction id already exists: " + string(t.ID)}
	}
	v.s.transactions[t.ID] = *t
	return nil
}

func (v *view) UpdateTransaction(_ context.Context, t *finance.Transaction) error {
	if _, ok := v.s.transactions[t.ID]; !ok {
		return &finance.NotFoundError{Kind: "transaction", ID: string(t.ID)}
	}
	v.s.transactions[t.ID] = *t
	return nil
}

func (v *view) DeleteTransaction(_ context.Context, id finance.TransactionID) error {
	if _, ok := v.s.transactions[id]; !ok {
		return &finance.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	delete(v.s.transactions, id)
	return nil
}

func (v *view) ListTransactions(_ context.Context, f store.TransactionFilter) ([]finance.Transaction, error) {
	var out []finance.Transaction
	for _, t := range v.s.transactions {
		if f.Profile != nil && t.Profile != *f.Profile {
			continue
		}
		if f.Type != nil && t.Type != *f.Type {
			continue
		}
		if f.From != nil && t.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && t.Date.After(*f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v *view) AppendDebtPayment(_ context.Context, p finance.DebtPayment) error {
	v.s.debtPayments = append(v.s.debtPayments, p)
	return nil
}

func (v *view) ListDebtPayments(_ context.Context, id finance.DebtID) ([]finance.DebtPayment, error) {
	var out []finance.DebtPayment
	for _, p := range v.s.debtPayments {
		if p.DebtID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (v *view) AppendGoalContribution(_ context.Context, c finance.GoalContribution) error {
	v.s.goalContribs = append(v.s.goalContribs, c)
	return nil
}

func (v *view) ListGoalContributions(_ context.Context, id finance.GoalID) ([]finance.GoalContribution, error) {
	var out []finance.GoalContribution
	for _, c := range v.s.goalContribs {
		if c.GoalID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v *view) AppendInvestmentContribution(_ context.Context, c finance.InvestmentContribution) error {
	v.s.investContribs = append(v.s.investContribs, c)
	return nil
}

func (v *view) ListInvestmentContributions(_ context.Context, id finance.InvestmentID) ([]finance.InvestmentContribution, error) {
	var out []finance.InvestmentContribution
	for _, c := range v.s.investContribs {
		if c.InvestmentID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v *view) AppendTaxPayment(_ context.Context, p finance.TaxPayment) error {
	v.s.taxPayments = append(v.s.taxPayments, p)
	return nil
}

func (v *view) ListTaxPayments(_ context.Context, profile finance.Profile) ([]finance.TaxPayment, error) {
	var out []finance.TaxPayment
	for _, p := range v.s.taxPayments {
		if profile == "" || p.Profile == profile {
			out = append(out, p)
		}
	}
	return out, nil
}

// Interface checks.
var (
	_ store.Store   = (*Memory)(nil)
	_ store.TxStore = (*Memory)(nil)
	_ store.Store   = (*view)(nil)
)
