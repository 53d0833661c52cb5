/*
Package mongo provides the MongoDB-backed TxStore implementation.

PURPOSE:
  Document persistence for the ledger engine, for deployments that already
  run MongoDB. Requires a replica set: the atomic unit maps to a
  multi-document transaction, which standalone servers do not support.

ATOMIC UNIT:
  WithTx runs fn inside one session transaction. The driver's transient
  transaction errors (write conflicts, primary stepdown) surface as
  finance.ErrConflict; the engine never retries on its own, so the retry
  decision stays with the caller.

MONEY REPRESENTATION:
  Money fields are stored as decimal strings, same as the SQLite backend.
  Never float64.

SEE ALSO:
  - store/store.go:  Interface definitions
  - store/sqlite:    SQL implementation of the same contract
*/
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
)

const (
	colAccounts                = "accounts"
	colCards                   = "cards"
	colDebts                   = "debts"
	colGoals                   = "goals"
	colInvestments             = "investments"
	colSubscriptions           = "subscriptions"
	colAssets                  = "assets"
	colTransactions            = "transactions"
	colDebtPayments            = "debt_payments"
	colGoalContributions       = "goal_contributions"
	colInvestmentContributions = "investment_contributions"
	colTaxPayments             = "tax_payments"
)

// Store implements store.TxStore using MongoDB.
type Store struct {
	conn
	client *mongo.Client
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{conn: conn{db: db}, client: client}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	profileIdx := mongo.IndexModel{Keys: bson.D{{Key: "profile", Value: 1}}}
	for _, col := range []string{colAccounts, colCards, colDebts, colGoals,
		colInvestments, colSubscriptions, colAssets, colTaxPayments} {
		if _, err := s.db.Collection(col).Indexes().CreateOne(ctx, profileIdx); err != nil {
			return err
		}
	}
	_, err := s.db.Collection(colTransactions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "profile", Value: 1}, {Key: "date", Value: 1}},
	})
	return err
}

// WithTx runs fn inside one session transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return mapMongoErr(err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return mapMongoErr(err)
		}
		if err := fn(&conn{db: s.db, sess: sc}); err != nil {
			sc.AbortTransaction(sc)
			return mapMongoErr(err)
		}
		if err := sc.CommitTransaction(sc); err != nil {
			return mapMongoErr(err)
		}
		return nil
	})
}

// mapMongoErr translates driver-level contention into the conflict sentinel.
// Domain errors pass through untouched.
func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult") {
			return fmt.Errorf("%w: %v", finance.ErrConflict, err)
		}
	}
	return err
}

// =============================================================================
// CONN - Store methods bound to a database, optionally inside a session
// =============================================================================

type conn struct {
	db   *mongo.Database
	sess mongo.SessionContext
}

// c binds operations to the active session context when inside WithTx.
func (c *conn) c(ctx context.Context) context.Context {
	if c.sess != nil {
		return c.sess
	}
	return ctx
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func getOne[T any](c *conn, ctx context.Context, col, kind, id string) (*T, error) {
	var doc T
	err := c.db.Collection(col).FindOne(c.c(ctx), bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &finance.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return &doc, nil
}

func (c *conn) upsert(ctx context.Context, col, id string, doc any) error {
	opts := options.Replace().SetUpsert(true)
	_, err := c.db.Collection(col).ReplaceOne(c.c(ctx), bson.M{"_id": id}, doc, opts)
	return mapMongoErr(err)
}

func (c *conn) deleteOne(ctx context.Context, col, kind, id string) error {
	res, err := c.db.Collection(col).DeleteOne(c.c(ctx), bson.M{"_id": id})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.DeletedCount == 0 {
		return &finance.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func listDocs[D any, T any](c *conn, ctx context.Context, col string, filter bson.M, sort bson.D, conv func(D) T) ([]T, error) {
	opts := options.Find().SetSort(sort)
	cur, err := c.db.Collection(col).Find(c.c(ctx), filter, opts)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []T
	for cur.Next(c.c(ctx)) {
		var doc D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, conv(doc))
	}
	return out, cur.Err()
}

func profileFilter(profile finance.Profile) bson.M {
	if profile == "" {
		return bson.M{}
	}
	return bson.M{"profile": string(profile)}
}

var byID = bson.D{{Key: "_id", Value: 1}}
var byDate = bson.D{{Key: "date", Value: 1}}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

type accountDoc struct {
	ID              string    `bson:"_id"`
	Profile         string    `bson:"profile"`
	Name            string    `bson:"name"`
	Balance         string    `bson:"balance"`
	Purpose         string    `bson:"purpose"`
	MonthlyLimit    *string   `bson:"monthly_limit,omitempty"`
	HasCreditLine   bool      `bson:"has_credit_line"`
	CreditLineLimit string    `bson:"credit_line_limit"`
	CreditLineUsed  string    `bson:"credit_line_used"`
	CreatedAt       time.Time `bson:"created_at"`
}

func toAccountDoc(a *finance.BankAccount) accountDoc {
	d := accountDoc{
		ID:              string(a.ID),
		Profile:         string(a.Profile),
		Name:            a.Name,
		Balance:         a.Balance.String(),
		Purpose:         string(a.Purpose),
		HasCreditLine:   a.HasCreditLine,
		CreditLineLimit: a.CreditLineLimit.String(),
		CreditLineUsed:  a.CreditLineUsed.String(),
		CreatedAt:       a.CreatedAt,
	}
	if a.MonthlyLimit != nil {
		s := a.MonthlyLimit.String()
		d.MonthlyLimit = &s
	}
	return d
}

func fromAccountDoc(d accountDoc) finance.BankAccount {
	a := finance.BankAccount{
		ID:              finance.AccountID(d.ID),
		Profile:         finance.Profile(d.Profile),
		Name:            d.Name,
		Balance:         dec(d.Balance),
		Purpose:         finance.AccountPurpose(d.Purpose),
		HasCreditLine:   d.HasCreditLine,
		CreditLineLimit: dec(d.CreditLineLimit),
		CreditLineUsed:  dec(d.CreditLineUsed),
		CreatedAt:       d.CreatedAt,
	}
	if d.MonthlyLimit != nil {
		l := dec(*d.MonthlyLimit)
		a.MonthlyLimit = &l
	}
	return a
}

func (c *conn) GetAccount(ctx context.Context, id finance.AccountID) (*finance.BankAccount, error) {
	doc, err := getOne[accountDoc](c, ctx, colAccounts, "account", string(id))
	if err != nil {
		return nil, err
	}
	a := fromAccountDoc(*doc)
	return &a, nil
}

func (c *conn) SaveAccount(ctx context.Context, a *finance.BankAccount) error {
	return c.upsert(ctx, colAccounts, string(a.ID), toAccountDoc(a))
}

func (c *conn) ListAccounts(ctx context.Context, profile finance.Profile) ([]finance.BankAccount, error) {
	return listDocs(c, ctx, colAccounts, profileFilter(profile), byID, fromAccountDoc)
}

// -----------------------------------------------------------------------------
// Cards
// -----------------------------------------------------------------------------

type cardDoc struct {
	ID          string    `bson:"_id"`
	AccountID   string    `bson:"account_id"`
	Profile     string    `bson:"profile"`
	Name        string    `bson:"name"`
	CardType    string    `bson:"card_type"`
	UsedAmount  string    `bson:"used_amount"`
	CreditLimit string    `bson:"credit_limit"`
	CreatedAt   time.Time `bson:"created_at"`
}

func toCardDoc(card *finance.BankCard) cardDoc {
	return cardDoc{
		ID:          string(card.ID),
		AccountID:   string(card.AccountID),
		Profile:     string(card.Profile),
		Name:        card.Name,
		CardType:    string(card.CardType),
		UsedAmount:  card.UsedAmount.String(),
		CreditLimit: card.CreditLimit.String(),
		CreatedAt:   card.CreatedAt,
	}
}

func fromCardDoc(d cardDoc) finance.BankCard {
	return finance.BankCard{
		ID:          finance.CardID(d.ID),
		AccountID:   finance.AccountID(d.AccountID),
		Profile:     finance.Profile(d.Profile),
		Name:        d.Name,
		CardType:    finance.CardType(d.CardType),
		UsedAmount:  dec(d.UsedAmount),
		CreditLimit: dec(d.CreditLimit),
		CreatedAt:   d.CreatedAt,
	}
}

func (c *conn) GetCard(ctx context.Context, id finance.CardID) (*finance.BankCard, error) {
	doc, err := getOne[cardDoc](c, ctx, colCards, "card", string(id))
	if err != nil {
		return nil, err
	}
	card := fromCardDoc(*doc)
	return &card, nil
}

func (c *conn) SaveCard(ctx context.Context, card *finance.BankCard) error {
	return c.upsert(ctx, colCards, string(card.ID), toCardDoc(card))
}

func (c *conn) ListCards(ctx context.Context, profile finance.Profile) ([]finance.BankCard, error) {
	return listDocs(c, ctx, colCards, profileFilter(profile), byID, fromCardDoc)
}

// -----------------------------------------------------------------------------
// Debts
// -----------------------------------------------------------------------------

type debtDoc struct {
	ID             string    `bson:"_id"`
	Profile        string    `bson:"profile"`
	Name           string    `bson:"name"`
	TotalAmount    string    `bson:"total_amount"`
	PaidAmount     string    `bson:"paid_amount"`
	MonthlyPayment string    `bson:"monthly_payment"`
	DueDate        time.Time `bson:"due_date"`
	AccountID      string    `bson:"account_id"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toDebtDoc(d *finance.Debt) debtDoc {
	return debtDoc{
		ID:             string(d.ID),
		Profile:        string(d.Profile),
		Name:           d.Name,
		TotalAmount:    d.TotalAmount.String(),
		PaidAmount:     d.PaidAmount.String(),
		MonthlyPayment: d.MonthlyPayment.String(),
		DueDate:        d.DueDate,
		AccountID:      string(d.AccountID),
		CreatedAt:      d.CreatedAt,
	}
}

func fromDebtDoc(d debtDoc) finance.Debt {
	return finance.Debt{
		ID:             finance.DebtID(d.ID),
		Profile:        finance.Profile(d.Profile),
		Name:           d.Name,
		TotalAmount:    dec(d.TotalAmount),
		PaidAmount:     dec(d.PaidAmount),
		MonthlyPayment: dec(d.MonthlyPayment),
		DueDate:        d.DueDate,
		AccountID:      finance.AccountID(d.AccountID),
		CreatedAt:      d.CreatedAt,
	}
}

func (c *conn) GetDebt(ctx context.Context, id finance.DebtID) (*finance.Debt, error) {
	doc, err := getOne[debtDoc](c, ctx, colDebts, "debt", string(id))
	if err != nil {
		return nil, err
	}
	d := fromDebtDoc(*doc)
	return &d, nil
}

func (c *conn) SaveDebt(ctx context.Context, d *finance.Debt) error {
	return c.upsert(ctx, colDebts, string(d.ID), toDebtDoc(d))
}

func (c *conn) ListDebts(ctx context.Context, profile finance.Profile) ([]finance.Debt, error) {
	return listDocs(c, ctx, colDebts, profileFilter(profile), byID, fromDebtDoc)
}

// -----------------------------------------------------------------------------
// Goals
// -----------------------------------------------------------------------------

type goalDoc struct {
	ID                 string    `bson:"_id"`
	Profile            string    `bson:"profile"`
	Name               string    `bson:"name"`
	TargetAmount       string    `bson:"target_amount"`
	CurrentAmount      string    `bson:"current_amount"`
	CompletionNotified bool      `bson:"completion_notified"`
	CreatedAt          time.Time `bson:"created_at"`
}

func toGoalDoc(g *finance.SavingsGoal) goalDoc {
	return goalDoc{
		ID:                 string(g.ID),
		Profile:            string(g.Profile),
		Name:               g.Name,
		TargetAmount:       g.TargetAmount.String(),
		CurrentAmount:      g.CurrentAmount.String(),
		CompletionNotified: g.CompletionNotified,
		CreatedAt:          g.CreatedAt,
	}
}

func fromGoalDoc(d goalDoc) finance.SavingsGoal {
	return finance.SavingsGoal{
		ID:                 finance.GoalID(d.ID),
		Profile:            finance.Profile(d.Profile),
		Name:               d.Name,
		TargetAmount:       dec(d.TargetAmount),
		CurrentAmount:      dec(d.CurrentAmount),
		CompletionNotified: d.CompletionNotified,
		CreatedAt:          d.CreatedAt,
	}
}

func (c *conn) GetGoal(ctx context.Context, id finance.GoalID) (*finance.SavingsGoal, error) {
	doc, err := getOne[goalDoc](c, ctx, colGoals, "goal", string(id))
	if err != nil {
		return nil, err
	}
	g := fromGoalDoc(*doc)
	return &g, nil
}

func (c *conn) SaveGoal(ctx context.Context, g *finance.SavingsGoal) error {
	return c.upsert(ctx, colGoals, string(g.ID), toGoalDoc(g))
}

func (c *conn) ListGoals(ctx context.Context, profile finance.Profile) ([]finance.SavingsGoal, error) {
	return listDocs(c, ctx, colGoals, profileFilter(profile), byID, fromGoalDoc)
}

// -----------------------------------------------------------------------------
// Investments
// -----------------------------------------------------------------------------

type investmentDoc struct {
	ID            string    `bson:"_id"`
	Profile       string    `bson:"profile"`
	Name          string    `bson:"name"`
	InitialAmount string    `bson:"initial_amount"`
	CurrentValue  string    `bson:"current_value"`
	Purpose       string    `bson:"purpose"`
	CreatedAt     time.Time `bson:"created_at"`
}

func toInvestmentDoc(i *finance.Investment) investmentDoc {
	return investmentDoc{
		ID:            string(i.ID),
		Profile:       string(i.Profile),
		Name:          i.Name,
		InitialAmount: i.InitialAmount.String(),
		CurrentValue:  i.CurrentValue.String(),
		Purpose:       string(i.Purpose),
		CreatedAt:     i.CreatedAt,
	}
}

func fromInvestmentDoc(d investmentDoc) finance.Investment {
	return finance.Investment{
		ID:            finance.InvestmentID(d.ID),
		Profile:       finance.Profile(d.Profile),
		Name:          d.Name,
		InitialAmount: dec(d.InitialAmount),
		CurrentValue:  dec(d.CurrentValue),
		Purpose:       finance.InvestmentPurpose(d.Purpose),
		CreatedAt:     d.CreatedAt,
	}
}

func (c *conn) GetInvestment(ctx context.Context, id finance.InvestmentID) (*finance.Investment, error) {
	doc, err := getOne[investmentDoc](c, ctx, colInvestments, "investment", string(id))
	if err != nil {
		return nil, err
	}
	i := fromInvestmentDoc(*doc)
	return &i, nil
}

func (c *conn) SaveInvestment(ctx context.Context, i *finance.Investment) error {
	return c.upsert(ctx, colInvestments, string(i.ID), toInvestmentDoc(i))
}

func (c *conn) DeleteInvestment(ctx context.Context, id finance.InvestmentID) error {
	return c.deleteOne(ctx, colInvestments, "investment", string(id))
}

func (c *conn) ListInvestments(ctx context.Context, profile finance.Profile) ([]finance.Investment, error) {
	return listDocs(c, ctx, colInvestments, profileFilter(profile), byID, fromInvestmentDoc)
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

type subscriptionDoc struct {
	ID               string    `bson:"_id"`
	Profile          string    `bson:"profile"`
	Name             string    `bson:"name"`
	Amount           string    `bson:"amount"`
	DueDate          time.Time `bson:"due_date"`
	AccountID        string    `bson:"account_id"`
	CardID           string    `bson:"card_id"`
	Status           string    `bson:"status"`
	PaidThisPeriod   bool      `bson:"paid_this_period"`
	LastPaymentMonth int       `bson:"last_payment_month"`
	LastPaymentYear  int       `bson:"last_payment_year"`
	CreatedAt        time.Time `bson:"created_at"`
}

func toSubscriptionDoc(s *finance.Subscription) subscriptionDoc {
	return subscriptionDoc{
		ID:               string(s.ID),
		Profile:          string(s.Profile),
		Name:             s.Name,
		Amount:           s.Amount.String(),
		DueDate:          s.DueDate,
		AccountID:        string(s.AccountID),
		CardID:           string(s.CardID),
		Status:           string(s.Status),
		PaidThisPeriod:   s.PaidThisPeriod,
		LastPaymentMonth: int(s.LastPaymentMonth),
		LastPaymentYear:  s.LastPaymentYear,
		CreatedAt:        s.CreatedAt,
	}
}

func fromSubscriptionDoc(d subscriptionDoc) finance.Subscription {
	return finance.Subscription{
		ID:               finance.SubscriptionID(d.ID),
		Profile:          finance.Profile(d.Profile),
		Name:             d.Name,
		Amount:           dec(d.Amount),
		DueDate:          d.DueDate,
		AccountID:        finance.AccountID(d.AccountID),
		CardID:           finance.CardID(d.CardID),
		Status:           finance.SubscriptionStatus(d.Status),
		PaidThisPeriod:   d.PaidThisPeriod,
		LastPaymentMonth: time.Month(d.LastPaymentMonth),
		LastPaymentYear:  d.LastPaymentYear,
		CreatedAt:        d.CreatedAt,
	}
}

func (c *conn) GetSubscription(ctx context.Context, id finance.SubscriptionID) (*finance.Subscription, error) {
	doc, err := getOne[subscriptionDoc](c, ctx, colSubscriptions, "subscription", string(id))
	if err != nil {
		return nil, err
	}
	s := fromSubscriptionDoc(*doc)
	return &s, nil
}

func (c *conn) SaveSubscription(ctx context.Context, s *finance.Subscription) error {
	return c.upsert(ctx, colSubscriptions, string(s.ID), toSubscriptionDoc(s))
}

func (c *conn) ListSubscriptions(ctx context.Context, profile finance.Profile) ([]finance.Subscription, error) {
	return listDocs(c, ctx, colSubscriptions, profileFilter(profile), byID, fromSubscriptionDoc)
}

// -----------------------------------------------------------------------------
// Assets
// -----------------------------------------------------------------------------

type assetDoc struct {
	ID             string    `bson:"_id"`
	Profile        string    `bson:"profile"`
	Name           string    `bson:"name"`
	EstimatedValue string    `bson:"estimated_value"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toAssetDoc(a *finance.TangibleAsset) assetDoc {
	return assetDoc{
		ID:             string(a.ID),
		Profile:        string(a.Profile),
		Name:           a.Name,
		EstimatedValue: a.EstimatedValue.String(),
		CreatedAt:      a.CreatedAt,
	}
}

func fromAssetDoc(d assetDoc) finance.TangibleAsset {
	return finance.TangibleAsset{
		ID:             finance.AssetID(d.ID),
		Profile:        finance.Profile(d.Profile),
		Name:           d.Name,
		EstimatedValue: dec(d.EstimatedValue),
		CreatedAt:      d.CreatedAt,
	}
}

func (c *conn) GetAsset(ctx context.Context, id finance.AssetID) (*finance.TangibleAsset, error) {
	doc, err := getOne[assetDoc](c, ctx, colAssets, "asset", string(id))
	if err != nil {
		return nil, err
	}
	a := fromAssetDoc(*doc)
	return &a, nil
}

func (c *conn) SaveAsset(ctx context.Context, a *finance.TangibleAsset) error {
	return c.upsert(ctx, colAssets, string(a.ID), toAssetDoc(a))
}

func (c *conn) DeleteAsset(ctx context.Context, id finance.AssetID) error {
	return c.deleteOne(ctx, colAssets, "asset", string(id))
}

func (c *conn) ListAssets(ctx context.Context, profile finance.Profile) ([]finance.TangibleAsset, error) {
	return listDocs(c, ctx, colAssets, profileFilter(profile), byID, fromAssetDoc)
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

type transactionDoc struct {
	ID                   string    `bson:"_id"`
	Type                 string    `bson:"tx_type"`
	Amount               string    `bson:"amount"`
	Date                 time.Time `bson:"date"`
	Profile              string    `bson:"profile"`
	Category             string    `bson:"category"`
	Description          string    `bson:"description"`
	SourceAccountID      string    `bson:"source_account_id"`
	DestinationAccountID string    `bson:"destination_account_id"`
	CardID               string    `bson:"card_id"`
	IsCreditLinePayment  bool      `bson:"is_credit_line_payment"`
	TaxRate              *string   `bson:"tax_rate,omitempty"`
	TaxAmount            *string   `bson:"tax_amount,omitempty"`
	OriginKind           string    `bson:"origin_kind"`
	OriginRef            string    `bson:"origin_ref"`
	CreatedAt            time.Time `bson:"created_at"`
}

func toTransactionDoc(t *finance.Transaction) transactionDoc {
	d := transactionDoc{
		ID:                   string(t.ID),
		Type:                 string(t.Type),
		Amount:               t.Amount.String(),
		Date:                 t.Date,
		Profile:              string(t.Profile),
		Category:             t.Category,
		Description:          t.Description,
		SourceAccountID:      string(t.SourceAccountID),
		DestinationAccountID: string(t.DestinationAccountID),
		CardID:               string(t.CardID),
		IsCreditLinePayment:  t.IsCreditLinePayment,
		OriginKind:           string(t.Origin.Kind),
		OriginRef:            t.Origin.RefID,
		CreatedAt:            t.CreatedAt,
	}
	if t.TaxDetails != nil {
		rate := t.TaxDetails.Rate.String()
		amount := t.TaxDetails.Amount.String()
		d.TaxRate = &rate
		d.TaxAmount = &amount
	}
	return d
}

func fromTransactionDoc(d transactionDoc) finance.Transaction {
	t := finance.Transaction{
		ID:                   finance.TransactionID(d.ID),
		Type:                 finance.TransactionType(d.Type),
		Amount:               dec(d.Amount),
		Date:                 d.Date,
		Profile:              finance.Profile(d.Profile),
		Category:             d.Category,
		Description:          d.Description,
		SourceAccountID:      finance.AccountID(d.SourceAccountID),
		DestinationAccountID: finance.AccountID(d.DestinationAccountID),
		CardID:               finance.CardID(d.CardID),
		IsCreditLinePayment:  d.IsCreditLinePayment,
		Origin: finance.Origin{
			Kind:  finance.OriginKind(d.OriginKind),
			RefID: d.OriginRef,
		},
		CreatedAt: d.CreatedAt,
	}
	if d.TaxRate != nil || d.TaxAmount != nil {
		details := &finance.TaxDetails{}
		if d.TaxRate != nil {
			details.Rate = dec(*d.TaxRate)
		}
		if d.TaxAmount != nil {
			details.Amount = dec(*d.TaxAmount)
		}
		t.TaxDetails = details
	}
	return t
}

func (c *conn) GetTransaction(ctx context.Context, id finance.TransactionID) (*finance.Transaction, error) {
	doc, err := getOne[transactionDoc](c, ctx, colTransactions, "transaction", string(id))
	if err != nil {
		return nil, err
	}
	t := fromTransactionDoc(*doc)
	return &t, nil
}

func (c *conn) InsertTransaction(ctx context.Context, t *finance.Transaction) error {
	_, err := c.db.Collection(colTransactions).InsertOne(c.c(ctx), toTransactionDoc(t))
	if mongo.IsDuplicateKeyError(err) {
		return &finance.InvariantError{Check: "transaction id already exists"}
	}
	return mapMongoErr(err)
}

func (c *conn) UpdateTransaction(ctx context.Context, t *finance.Transaction) error {
	res, err := c.db.Collection(colTransactions).UpdateOne(c.c(ctx),
		bson.M{"_id": string(t.ID)},
		bson.M{"$set": bson.M{
			"category":    t.Category,
			"description": t.Description,
			"date":        t.Date,
		}})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return &finance.NotFoundError{Kind: "transaction", ID: string(t.ID)}
	}
	return nil
}

func (c *conn) DeleteTransaction(ctx context.Context, id finance.TransactionID) error {
	return c.deleteOne(ctx, colTransactions, "transaction", string(id))
}

func (c *conn) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]finance.Transaction, error) {
	filter := bson.M{}
	if f.Profile != nil {
		filter["profile"] = string(*f.Profile)
	}
	if f.Type != nil {
		filter["tx_type"] = string(*f.Type)
	}
	if f.From != nil || f.To != nil {
		dateRange := bson.M{}
		if f.From != nil {
			dateRange["$gte"] = *f.From
		}
		if f.To != nil {
			dateRange["$lte"] = *f.To
		}
		filter["date"] = dateRange
	}
	return listDocs(c, ctx, colTransactions, filter, byDate, fromTransactionDoc)
}

// -----------------------------------------------------------------------------
// History rows
// -----------------------------------------------------------------------------

type debtPaymentDoc struct {
	ID     string    `bson:"_id"`
	DebtID string    `bson:"debt_id"`
	Amount string    `bson:"amount"`
	Date   time.Time `bson:"date"`
}

func (c *conn) AppendDebtPayment(ctx context.Context, p finance.DebtPayment) error {
	_, err := c.db.Collection(colDebtPayments).InsertOne(c.c(ctx), debtPaymentDoc{
		ID: string(p.ID), DebtID: string(p.DebtID), Amount: p.Amount.String(), Date: p.Date,
	})
	return mapMongoErr(err)
}

func (c *conn) ListDebtPayments(ctx context.Context, debtID finance.DebtID) ([]finance.DebtPayment, error) {
	return listDocs(c, ctx, colDebtPayments, bson.M{"debt_id": string(debtID)}, byDate,
		func(d debtPaymentDoc) finance.DebtPayment {
			return finance.DebtPayment{
				ID: d.ID, DebtID: finance.DebtID(d.DebtID), Amount: dec(d.Amount), Date: d.Date,
			}
		})
}

type goalContributionDoc struct {
	ID     string    `bson:"_id"`
	GoalID string    `bson:"goal_id"`
	Amount string    `bson:"amount"`
	Date   time.Time `bson:"date"`
}

func (c *conn) AppendGoalContribution(ctx context.Context, g finance.GoalContribution) error {
	_, err := c.db.Collection(colGoalContributions).InsertOne(c.c(ctx), goalContributionDoc{
		ID: string(g.ID), GoalID: string(g.GoalID), Amount: g.Amount.String(), Date: g.Date,
	})
	return mapMongoErr(err)
}

func (c *conn) ListGoalContributions(ctx context.Context, goalID finance.GoalID) ([]finance.GoalContribution, error) {
	return listDocs(c, ctx, colGoalContributions, bson.M{"goal_id": string(goalID)}, byDate,
		func(d goalContributionDoc) finance.GoalContribution {
			return finance.GoalContribution{
				ID: d.ID, GoalID: finance.GoalID(d.GoalID), Amount: dec(d.Amount), Date: d.Date,
			}
		})
}

type investmentContributionDoc struct {
	ID           string    `bson:"_id"`
	InvestmentID string    `bson:"investment_id"`
	Amount       string    `bson:"amount"`
	Date         time.Time `bson:"date"`
}

func (c *conn) AppendInvestmentContribution(ctx context.Context, i finance.InvestmentContribution) error {
	_, err := c.db.Collection(colInvestmentContributions).InsertOne(c.c(ctx), investmentContributionDoc{
		ID: string(i.ID), InvestmentID: string(i.InvestmentID), Amount: i.Amount.String(), Date: i.Date,
	})
	return mapMongoErr(err)
}

func (c *conn) ListInvestmentContributions(ctx context.Context, id finance.InvestmentID) ([]finance.InvestmentContribution, error) {
	return listDocs(c, ctx, colInvestmentContributions, bson.M{"investment_id": string(id)}, byDate,
		func(d investmentContributionDoc) finance.InvestmentContribution {
			return finance.InvestmentContribution{
				ID: d.ID, InvestmentID: finance.InvestmentID(d.InvestmentID), Amount: dec(d.Amount), Date: d.Date,
			}
		})
}

type taxPaymentDoc struct {
	ID        string    `bson:"_id"`
	Profile   string    `bson:"profile"`
	AccountID string    `bson:"account_id"`
	Amount    string    `bson:"amount"`
	Period    string    `bson:"period"`
	Date      time.Time `bson:"date"`
}

func (c *conn) AppendTaxPayment(ctx context.Context, p finance.TaxPayment) error {
	_, err := c.db.Collection(colTaxPayments).InsertOne(c.c(ctx), taxPaymentDoc{
		ID: string(p.ID), Profile: string(p.Profile), AccountID: string(p.AccountID),
		Amount: p.Amount.String(), Period: p.Period, Date: p.Date,
	})
	return mapMongoErr(err)
}

func (c *conn) ListTaxPayments(ctx context.Context, profile finance.Profile) ([]finance.TaxPayment, error) {
	return listDocs(c, ctx, colTaxPayments, profileFilter(profile), byDate,
		func(d taxPaymentDoc) finance.TaxPayment {
			return finance.TaxPayment{
				ID: d.ID, Profile: finance.Profile(d.Profile), AccountID: finance.AccountID(d.AccountID),
				Amount: dec(d.Amount), Period: d.Period, Date: d.Date,
			}
		})
}

// Interface checks.
var (
	_ store.Store   = (*conn)(nil)
	_ store.TxStore = (*Store)(nil)
)
