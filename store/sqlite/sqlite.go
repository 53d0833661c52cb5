/*
Package sqlite provides the SQLite-backed TxStore implementation.

PURPOSE:
  Production persistence for the ledger engine. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

ATOMIC UNIT:
  WithTx wraps one database transaction, so the unit's reads and writes
  see one snapshot. SQLITE_BUSY / SQLITE_LOCKED from a competing writer
  surfaces as finance.ErrConflict; the caller decides whether to retry.

MONEY REPRESENTATION:
  All money columns are TEXT holding decimal strings. Never REAL: a
  running balance accumulated in floating point drifts.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory:   In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
)

// Store implements store.TxStore using SQLite.
type Store struct {
	conn
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database (tests).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes
	// writers ahead of SQLite's own lock.
	db.SetMaxOpenConns(1)

	s := &Store{conn: conn{q: db}, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// WithTx executes fn inside one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if err := fn(&conn{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

func mapSQLiteErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", finance.ErrConflict, err)
		}
	}
	return err
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		balance TEXT NOT NULL,
		purpose TEXT NOT NULL,
		monthly_limit TEXT,
		has_credit_line BOOLEAN NOT NULL DEFAULT FALSE,
		credit_line_limit TEXT NOT NULL DEFAULT '0',
		credit_line_used TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_profile ON accounts(profile);

	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		card_type TEXT NOT NULL,
		used_amount TEXT NOT NULL DEFAULT '0',
		credit_limit TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cards_profile ON cards(profile);
	CREATE INDEX IF NOT EXISTS idx_cards_account ON cards(account_id);

	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL DEFAULT '0',
		monthly_payment TEXT NOT NULL DEFAULT '0',
		due_date TEXT NOT NULL,
		account_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_debts_profile ON debts(profile);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT NOT NULL DEFAULT '0',
		completion_notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_profile ON goals(profile);

	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		initial_amount TEXT NOT NULL,
		current_value TEXT NOT NULL,
		purpose TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_investments_profile ON investments(profile);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		account_id TEXT,
		card_id TEXT,
		status TEXT NOT NULL,
		paid_this_period BOOLEAN NOT NULL DEFAULT FALSE,
		last_payment_month INTEGER NOT NULL DEFAULT 0,
		last_payment_year INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_profile ON subscriptions(profile);

	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		name TEXT NOT NULL,
		estimated_value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assets_profile ON assets(profile);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		profile TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		source_account_id TEXT NOT NULL DEFAULT '',
		destination_account_id TEXT NOT NULL DEFAULT '',
		card_id TEXT NOT NULL DEFAULT '',
		is_credit_line_payment BOOLEAN NOT NULL DEFAULT FALSE,
		tax_rate TEXT,
		tax_amount TEXT,
		origin_kind TEXT NOT NULL DEFAULT 'manual',
		origin_ref TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_profile_date ON transactions(profile, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(tx_type);

	CREATE TABLE IF NOT EXISTS debt_payments (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_debt_payments_debt ON debt_payments(debt_id);

	CREATE TABLE IF NOT EXISTS goal_contributions (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goal_contributions_goal ON goal_contributions(goal_id);

	CREATE TABLE IF NOT EXISTS investment_contributions (
		id TEXT PRIMARY KEY,
		investment_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_investment_contributions_investment
		ON investment_contributions(investment_id);

	CREATE TABLE IF NOT EXISTS tax_payments (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		period TEXT NOT NULL,
		date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tax_payments_profile ON tax_payments(profile);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONN - Store methods shared by *sql.DB and *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q querier
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// profileQuery appends the optional profile filter and a stable ordering.
func (c *conn) profileQuery(ctx context.Context, base string, profile finance.Profile) (*sql.Rows, error) {
	if profile == "" {
		rows, err := c.q.QueryContext(ctx, base+` ORDER BY id`)
		return rows, mapSQLiteErr(err)
	}
	rows, err := c.q.QueryContext(ctx, base+` WHERE profile = ? ORDER BY id`, profile)
	return rows, mapSQLiteErr(err)
}

// deleteByID deletes one row, translating zero rows affected to NotFound.
func (c *conn) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &finance.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

const accountCols = `id, profile, name, balance, purpose, monthly_limit,
	has_credit_line, credit_line_limit, credit_line_used, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*finance.BankAccount, error) {
	var a finance.BankAccount
	var balance, creditLimit, creditUsed, createdAt string
	var monthlyLimit sql.NullString
	err := row.Scan(&a.ID, &a.Profile, &a.Name, &balance, &a.Purpose, &monthlyLimit,
		&a.HasCreditLine, &creditLimit, &creditUsed, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Balance = mustDecimal(balance)
	a.CreditLineLimit = mustDecimal(creditLimit)
	a.CreditLineUsed = mustDecimal(creditUsed)
	a.CreatedAt = parseTime(createdAt)
	if monthlyLimit.Valid {
		d := mustDecimal(monthlyLimit.String)
		a.MonthlyLimit = &d
	}
	return &a, nil
}

func (c *conn) GetAccount(ctx context.Context, id finance.AccountID) (*finance.BankAccount, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "account", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return a, nil
}

func (c *conn) SaveAccount(ctx context.Context, a *finance.BankAccount) error {
	var monthlyLimit any
	if a.MonthlyLimit != nil {
		monthlyLimit = a.MonthlyLimit.String()
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			balance = excluded.balance, purpose = excluded.purpose,
			monthly_limit = excluded.monthly_limit,
			has_credit_line = excluded.has_credit_line,
			credit_line_limit = excluded.credit_line_limit,
			credit_line_used = excluded.credit_line_used`,
		a.ID, a.Profile, a.Name, a.Balance.String(), a.Purpose, monthlyLimit,
		a.HasCreditLine, a.CreditLineLimit.String(), a.CreditLineUsed.String(),
		a.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListAccounts(ctx context.Context, profile finance.Profile) ([]finance.BankAccount, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+accountCols+` FROM accounts`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Cards
// -----------------------------------------------------------------------------

const cardCols = `id, account_id, profile, name, card_type, used_amount, credit_limit, created_at`

func scanCard(row interface{ Scan(...any) error }) (*finance.BankCard, error) {
	var card finance.BankCard
	var used, limit, createdAt string
	err := row.Scan(&card.ID, &card.AccountID, &card.Profile, &card.Name, &card.CardType,
		&used, &limit, &createdAt)
	if err != nil {
		return nil, err
	}
	card.UsedAmount = mustDecimal(used)
	card.CreditLimit = mustDecimal(limit)
	card.CreatedAt = parseTime(createdAt)
	return &card, nil
}

func (c *conn) GetCard(ctx context.Context, id finance.CardID) (*finance.BankCard, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+cardCols+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "card", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return card, nil
}

func (c *conn) SaveCard(ctx context.Context, card *finance.BankCard) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO cards (`+cardCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id, profile = excluded.profile,
			name = excluded.name, card_type = excluded.card_type,
			used_amount = excluded.used_amount, credit_limit = excluded.credit_limit`,
		card.ID, card.AccountID, card.Profile, card.Name, card.CardType,
		card.UsedAmount.String(), card.CreditLimit.String(),
		card.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListCards(ctx context.Context, profile finance.Profile) ([]finance.BankCard, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+cardCols+` FROM cards`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.BankCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Debts
// -----------------------------------------------------------------------------

const debtCols = `id, profile, name, total_amount, paid_amount, monthly_payment, due_date, account_id, created_at`

func scanDebt(row interface{ Scan(...any) error }) (*finance.Debt, error) {
	var d finance.Debt
	var total, paid, monthly, dueDate, createdAt string
	err := row.Scan(&d.ID, &d.Profile, &d.Name, &total, &paid, &monthly, &dueDate,
		&d.AccountID, &createdAt)
	if err != nil {
		return nil, err
	}
	d.TotalAmount = mustDecimal(total)
	d.PaidAmount = mustDecimal(paid)
	d.MonthlyPayment = mustDecimal(monthly)
	d.DueDate = parseTime(dueDate)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (c *conn) GetDebt(ctx context.Context, id finance.DebtID) (*finance.Debt, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+debtCols+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "debt", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return d, nil
}

func (c *conn) SaveDebt(ctx context.Context, d *finance.Debt) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO debts (`+debtCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			total_amount = excluded.total_amount, paid_amount = excluded.paid_amount,
			monthly_payment = excluded.monthly_payment, due_date = excluded.due_date,
			account_id = excluded.account_id`,
		d.ID, d.Profile, d.Name, d.TotalAmount.String(), d.PaidAmount.String(),
		d.MonthlyPayment.String(), d.DueDate.Format(time.RFC3339Nano), d.AccountID,
		d.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListDebts(ctx context.Context, profile finance.Profile) ([]finance.Debt, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+debtCols+` FROM debts`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Goals
// -----------------------------------------------------------------------------

const goalCols = `id, profile, name, target_amount, current_amount, completion_notified, created_at`

func scanGoal(row interface{ Scan(...any) error }) (*finance.SavingsGoal, error) {
	var g finance.SavingsGoal
	var target, current, createdAt string
	err := row.Scan(&g.ID, &g.Profile, &g.Name, &target, &current, &g.CompletionNotified, &createdAt)
	if err != nil {
		return nil, err
	}
	g.TargetAmount = mustDecimal(target)
	g.CurrentAmount = mustDecimal(current)
	g.CreatedAt = parseTime(createdAt)
	return &g, nil
}

func (c *conn) GetGoal(ctx context.Context, id finance.GoalID) (*finance.SavingsGoal, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "goal", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return g, nil
}

func (c *conn) SaveGoal(ctx context.Context, g *finance.SavingsGoal) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO goals (`+goalCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			target_amount = excluded.target_amount,
			current_amount = excluded.current_amount,
			completion_notified = excluded.completion_notified`,
		g.ID, g.Profile, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.CompletionNotified, g.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListGoals(ctx context.Context, profile finance.Profile) ([]finance.SavingsGoal, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+goalCols+` FROM goals`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Investments
// -----------------------------------------------------------------------------

const investmentCols = `id, profile, name, initial_amount, current_value, purpose, created_at`

func scanInvestment(row interface{ Scan(...any) error }) (*finance.Investment, error) {
	var i finance.Investment
	var initial, current, createdAt string
	err := row.Scan(&i.ID, &i.Profile, &i.Name, &initial, &current, &i.Purpose, &createdAt)
	if err != nil {
		return nil, err
	}
	i.InitialAmount = mustDecimal(initial)
	i.CurrentValue = mustDecimal(current)
	i.CreatedAt = parseTime(createdAt)
	return &i, nil
}

func (c *conn) GetInvestment(ctx context.Context, id finance.InvestmentID) (*finance.Investment, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+investmentCols+` FROM investments WHERE id = ?`, id)
	i, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "investment", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return i, nil
}

func (c *conn) SaveInvestment(ctx context.Context, i *finance.Investment) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO investments (`+investmentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			initial_amount = excluded.initial_amount,
			current_value = excluded.current_value, purpose = excluded.purpose`,
		i.ID, i.Profile, i.Name, i.InitialAmount.String(), i.CurrentValue.String(),
		i.Purpose, i.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) DeleteInvestment(ctx context.Context, id finance.InvestmentID) error {
	return c.deleteByID(ctx, "investments", "investment", string(id))
}

func (c *conn) ListInvestments(ctx context.Context, profile finance.Profile) ([]finance.Investment, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+investmentCols+` FROM investments`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.Investment
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

const subscriptionCols = `id, profile, name, amount, due_date, account_id, card_id,
	status, paid_this_period, last_payment_month, last_payment_year, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (*finance.Subscription, error) {
	var s finance.Subscription
	var amount, dueDate, createdAt string
	var accountID, cardID sql.NullString
	var month int
	err := row.Scan(&s.ID, &s.Profile, &s.Name, &amount, &dueDate, &accountID, &cardID,
		&s.Status, &s.PaidThisPeriod, &month, &s.LastPaymentYear, &createdAt)
	if err != nil {
		return nil, err
	}
	s.Amount = mustDecimal(amount)
	s.DueDate = parseTime(dueDate)
	s.CreatedAt = parseTime(createdAt)
	s.AccountID = finance.AccountID(accountID.String)
	s.CardID = finance.CardID(cardID.String)
	s.LastPaymentMonth = time.Month(month)
	return &s, nil
}

func (c *conn) GetSubscription(ctx context.Context, id finance.SubscriptionID) (*finance.Subscription, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+subscriptionCols+` FROM subscriptions WHERE id = ?`, id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "subscription", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return s, nil
}

func (c *conn) SaveSubscription(ctx context.Context, s *finance.Subscription) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			amount = excluded.amount, due_date = excluded.due_date,
			account_id = excluded.account_id, card_id = excluded.card_id,
			status = excluded.status, paid_this_period = excluded.paid_this_period,
			last_payment_month = excluded.last_payment_month,
			last_payment_year = excluded.last_payment_year`,
		s.ID, s.Profile, s.Name, s.Amount.String(), s.DueDate.Format(time.RFC3339Nano),
		string(s.AccountID), string(s.CardID), s.Status, s.PaidThisPeriod,
		int(s.LastPaymentMonth), s.LastPaymentYear, s.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListSubscriptions(ctx context.Context, profile finance.Profile) ([]finance.Subscription, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+subscriptionCols+` FROM subscriptions`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Assets
// -----------------------------------------------------------------------------

const assetCols = `id, profile, name, estimated_value, created_at`

func scanAsset(row interface{ Scan(...any) error }) (*finance.TangibleAsset, error) {
	var a finance.TangibleAsset
	var value, createdAt string
	err := row.Scan(&a.ID, &a.Profile, &a.Name, &value, &createdAt)
	if err != nil {
		return nil, err
	}
	a.EstimatedValue = mustDecimal(value)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (c *conn) GetAsset(ctx context.Context, id finance.AssetID) (*finance.TangibleAsset, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+assetCols+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "asset", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return a, nil
}

func (c *conn) SaveAsset(ctx context.Context, a *finance.TangibleAsset) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO assets (`+assetCols+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile, name = excluded.name,
			estimated_value = excluded.estimated_value`,
		a.ID, a.Profile, a.Name, a.EstimatedValue.String(),
		a.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) DeleteAsset(ctx context.Context, id finance.AssetID) error {
	return c.deleteByID(ctx, "assets", "asset", string(id))
}

func (c *conn) ListAssets(ctx context.Context, profile finance.Profile) ([]finance.TangibleAsset, error) {
	rows, err := c.profileQuery(ctx, `SELECT `+assetCols+` FROM assets`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.TangibleAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

const txCols = `id, tx_type, amount, date, profile, category, description,
	source_account_id, destination_account_id, card_id, is_credit_line_payment,
	tax_rate, tax_amount, origin_kind, origin_ref, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*finance.Transaction, error) {
	var t finance.Transaction
	var amount, date, createdAt string
	var taxRate, taxAmount sql.NullString
	err := row.Scan(&t.ID, &t.Type, &amount, &date, &t.Profile, &t.Category, &t.Description,
		&t.SourceAccountID, &t.DestinationAccountID, &t.CardID, &t.IsCreditLinePayment,
		&taxRate, &taxAmount, &t.Origin.Kind, &t.Origin.RefID, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Amount = mustDecimal(amount)
	t.Date = parseTime(date)
	t.CreatedAt = parseTime(createdAt)
	if taxRate.Valid || taxAmount.Valid {
		t.TaxDetails = &finance.TaxDetails{
			Rate:   mustDecimal(taxRate.String),
			Amount: mustDecimal(taxAmount.String),
		}
	}
	return &t, nil
}

func (c *conn) GetTransaction(ctx context.Context, id finance.TransactionID) (*finance.Transaction, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+txCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &finance.NotFoundError{Kind: "transaction", ID: string(id)}
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return t, nil
}

func (c *conn) InsertTransaction(ctx context.Context, t *finance.Transaction) error {
	var taxRate, taxAmount any
	if t.TaxDetails != nil {
		taxRate = t.TaxDetails.Rate.String()
		taxAmount = t.TaxDetails.Amount.String()
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO transactions (`+txCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Amount.String(), t.Date.Format(time.RFC3339Nano), t.Profile,
		t.Category, t.Description, t.SourceAccountID, t.DestinationAccountID, t.CardID,
		t.IsCreditLinePayment, taxRate, taxAmount, t.Origin.Kind, t.Origin.RefID,
		t.CreatedAt.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

// UpdateTransaction rewrites descriptive fields only. Amount, type and
// funding references are immutable through this path.
func (c *conn) UpdateTransaction(ctx context.Context, t *finance.Transaction) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE transactions SET category = ?, description = ?, date = ?
		WHERE id = ?`,
		t.Category, t.Description, t.Date.Format(time.RFC3339Nano), t.ID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &finance.NotFoundError{Kind: "transaction", ID: string(t.ID)}
	}
	return nil
}

func (c *conn) DeleteTransaction(ctx context.Context, id finance.TransactionID) error {
	return c.deleteByID(ctx, "transactions", "transaction", string(id))
}

func (c *conn) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]finance.Transaction, error) {
	query := `SELECT ` + txCols + ` FROM transactions WHERE 1=1`
	var args []any
	if f.Profile != nil {
		query += ` AND profile = ?`
		args = append(args, *f.Profile)
	}
	if f.Type != nil {
		query += ` AND tx_type = ?`
		args = append(args, *f.Type)
	}
	if f.From != nil {
		query += ` AND date >= ?`
		args = append(args, f.From.Format(time.RFC3339Nano))
	}
	if f.To != nil {
		query += ` AND date <= ?`
		args = append(args, f.To.Format(time.RFC3339Nano))
	}
	query += ` ORDER BY date`

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []finance.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// History rows
// -----------------------------------------------------------------------------

func (c *conn) AppendDebtPayment(ctx context.Context, p finance.DebtPayment) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO debt_payments (id, debt_id, amount, date) VALUES (?, ?, ?, ?)`,
		p.ID, p.DebtID, p.Amount.String(), p.Date.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListDebtPayments(ctx context.Context, debtID finance.DebtID) ([]finance.DebtPayment, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT id, debt_id, amount, date FROM debt_payments WHERE debt_id = ? ORDER BY date`, debtID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []finance.DebtPayment
	for rows.Next() {
		var p finance.DebtPayment
		var amount, date string
		if err := rows.Scan(&p.ID, &p.DebtID, &amount, &date); err != nil {
			return nil, err
		}
		p.Amount = mustDecimal(amount)
		p.Date = parseTime(date)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *conn) AppendGoalContribution(ctx context.Context, g finance.GoalContribution) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO goal_contributions (id, goal_id, amount, date) VALUES (?, ?, ?, ?)`,
		g.ID, g.GoalID, g.Amount.String(), g.Date.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListGoalContributions(ctx context.Context, goalID finance.GoalID) ([]finance.GoalContribution, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT id, goal_id, amount, date FROM goal_contributions WHERE goal_id = ? ORDER BY date`, goalID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []finance.GoalContribution
	for rows.Next() {
		var g finance.GoalContribution
		var amount, date string
		if err := rows.Scan(&g.ID, &g.GoalID, &amount, &date); err != nil {
			return nil, err
		}
		g.Amount = mustDecimal(amount)
		g.Date = parseTime(date)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (c *conn) AppendInvestmentContribution(ctx context.Context, i finance.InvestmentContribution) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO investment_contributions (id, investment_id, amount, date) VALUES (?, ?, ?, ?)`,
		i.ID, i.InvestmentID, i.Amount.String(), i.Date.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListInvestmentContributions(ctx context.Context, id finance.InvestmentID) ([]finance.InvestmentContribution, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT id, investment_id, amount, date FROM investment_contributions WHERE investment_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []finance.InvestmentContribution
	for rows.Next() {
		var i finance.InvestmentContribution
		var amount, date string
		if err := rows.Scan(&i.ID, &i.InvestmentID, &amount, &date); err != nil {
			return nil, err
		}
		i.Amount = mustDecimal(amount)
		i.Date = parseTime(date)
		out = append(out, i)
	}
	return out, rows.Err()
}

func (c *conn) AppendTaxPayment(ctx context.Context, p finance.TaxPayment) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO tax_payments (id, profile, account_id, amount, period, date) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Profile, p.AccountID, p.Amount.String(), p.Period, p.Date.Format(time.RFC3339Nano))
	return mapSQLiteErr(err)
}

func (c *conn) ListTaxPayments(ctx context.Context, profile finance.Profile) ([]finance.TaxPayment, error) {
	query := `SELECT id, profile, account_id, amount, period, date FROM tax_payments`
	var args []any
	if profile != "" {
		query += ` WHERE profile = ?`
		args = append(args, profile)
	}
	query += ` ORDER BY date`

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []finance.TaxPayment
	for rows.Next() {
		var p finance.TaxPayment
		var amount, date string
		if err := rows.Scan(&p.ID, &p.Profile, &p.AccountID, &amount, &p.Period, &date); err != nil {
			return nil, err
		}
		p.Amount = mustDecimal(amount)
		p.Date = parseTime(date)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Interface checks.
var (
	_ store.Store   = (*conn)(nil)
	_ store.TxStore = (*Store)(nil)
)
