/*
Package ledger implements the mutation engine for the household finance
tracker.

PURPOSE:
  One logical financial event in, one atomic state change out. The engine
  persists the Transaction record and mutates every denormalized balance
  it affects (account balance, card used-credit, credit-line used amount,
  debt paid amount, goal/investment accrued amount) as a single atomic
  unit, and can reverse those effects exactly when the event is deleted.

CRITICAL INVARIANTS:
  1. ALL-OR-NOTHING: every read and write of an operation happens inside
     one store.WithTx unit; a failure anywhere leaves nothing applied.
  2. EXACTLY-ONCE: the sum of balance deltas committed equals the
     transaction's recorded effect exactly once.
  3. SINGLE WRITER: balance fields are written nowhere else in the
     system. Presentation code reads aggregates; it never patches them.
  4. NO IMPLICIT RETRY: a finance.ErrConflict from the store propagates
     to the caller unchanged.

EDIT SEMANTICS:
  Edit only rewrites descriptive fields (description, category, date) and
  never re-derives balance deltas. Amend is the safe full edit: it
  reverses the old transaction and applies the replacement inside one
  atomic unit.

SEE ALSO:
  - delta.go:    The balance decision table
  - compound.go: Debt/goal/investment/subscription/asset/tax operations
  - store/:      The atomic unit contract
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/pkg/metrics"
	"github.com/casaflow/ledger-engine/store"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store   store.TxStore
	log     zerolog.Logger
	metrics *metrics.Collector

	// Overridable for tests.
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithClock fixes the engine's notion of "now". Tests use this to make due
// dates and period rollover deterministic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(s store.TxStore, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyInput is the plain structured input for a single financial event.
type ApplyInput struct {
	Type        finance.TransactionType
	Amount      decimal.Decimal
	Date        time.Time
	Profile     finance.Profile
	Category    string
	Description string

	SourceAccountID      finance.AccountID
	DestinationAccountID finance.AccountID
	CardID               finance.CardID
	IsCreditLinePayment  bool

	TaxDetails *finance.TaxDetails
	Origin     *finance.Origin // nil = manual
}

// Apply validates the input, persists the Transaction record and mutates
// exactly the balance target(s) from the decision table, all in one atomic
// unit.
func (e *Engine) Apply(ctx context.Context, in ApplyInput) (*finance.Transaction, error) {
	tx, err := e.buildTransaction(in)
	if err != nil {
		e.metrics.RecordFailure("validation")
		return nil, err
	}

	err = e.store.WithTx(ctx, func(s store.Store) error {
		return e.applyInUnit(ctx, s, tx)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(tx.Type))
	e.log.Debug().
		Str("tx_id", string(tx.ID)).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Msg("transaction applied")
	return tx, nil
}

// applyInUnit inserts the record and applies its effect. Exported-shape
// helper shared with compound operations, which run it inside their own
// larger atomic unit.
func (e *Engine) applyInUnit(ctx context.Context, s store.Store, tx *finance.Transaction) error {
	if err := s.InsertTransaction(ctx, tx); err != nil {
		return err
	}
	return applyEffect(ctx, s, tx, false)
}

// buildTransaction validates input and stamps identity. Runs before any
// store access; nothing is written when it fails.
func (e *Engine) buildTransaction(in ApplyInput) (*finance.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}
	if in.SourceAccountID == "" && in.CardID == "" {
		return nil, &finance.ValidationError{Field: "source_account_id", Reason: "a funding account or card is required"}
	}

	switch in.Type {
	case finance.TxIncome:
		if in.SourceAccountID == "" {
			return nil, &finance.ValidationError{Field: "source_account_id", Reason: "income requires a credited account"}
		}
		if in.CardID != "" || in.IsCreditLinePayment {
			return nil, &finance.ValidationError{Field: "type", Reason: "income cannot reference a card or credit line"}
		}
	case finance.TxExpense:
		if in.CardID != "" && in.IsCreditLinePayment {
			return nil, &finance.ValidationError{Field: "card_id", Reason: "card and credit-line funding are mutually exclusive"}
		}
		if in.CardID == "" && in.SourceAccountID == "" {
			return nil, &finance.ValidationError{Field: "source_account_id", Reason: "expense requires an account or card"}
		}
	case finance.TxTransfer:
		if in.DestinationAccountID == "" {
			return nil, &finance.ValidationError{Field: "destination_account_id", Reason: "transfer requires a destination account"}
		}
		if in.DestinationAccountID == in.SourceAccountID {
			return nil, &finance.ValidationError{Field: "destination_account_id", Reason: "transfer source and destination must differ"}
		}
		if in.CardID != "" || in.IsCreditLinePayment {
			return nil, &finance.ValidationError{Field: "type", Reason: "transfer cannot reference a card or credit line"}
		}
	default:
		return nil, &finance.ValidationError{Field: "type", Reason: "unknown transaction type"}
	}

	origin := finance.ManualOrigin()
	if in.Origin != nil {
		origin = *in.Origin
	}
	date := in.Date
	if date.IsZero() {
		date = e.now()
	}

	return &finance.Transaction{
		ID:                   finance.TransactionID(e.newID()),
		Type:                 in.Type,
		Amount:               in.Amount,
		Date:                 date,
		Profile:              in.Profile,
		Category:             in.Category,
		Description:          in.Description,
		SourceAccountID:      in.SourceAccountID,
		DestinationAccountID: in.DestinationAccountID,
		CardID:               in.CardID,
		IsCreditLinePayment:  in.IsCreditLinePayment,
		TaxDetails:           in.TaxDetails,
		Origin:               origin,
		CreatedAt:            e.now(),
	}, nil
}

// =============================================================================
// REVERSE
// =============================================================================

// Reverse undoes a transaction: it recomputes the decision table with every
// delta sign flipped against the aggregates' current state, applies the
// inverse and deletes the record in one atomic unit.
//
// Calling twice is rejected: the second call finds no record and fails with
// finance.ErrNotFound instead of silently applying a second inverse.
func (e *Engine) Reverse(ctx context.Context, id finance.TransactionID) error {
	err := e.store.WithTx(ctx, func(s store.Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := applyEffect(ctx, s, tx, true); err != nil {
			return err
		}
		return s.DeleteTransaction(ctx, id)
	})
	if err != nil {
		e.recordError(err)
		return err
	}

	e.metrics.RecordReversal()
	e.log.Debug().Str("tx_id", string(id)).Msg("transaction reversed")
	return nil
}

// =============================================================================
// EDIT / AMEND
// =============================================================================

// EditInput carries the descriptive fields the narrow edit may change.
type EditInput struct {
	Description *string
	Category    *string
	Date        *time.Time
}

// Edit overwrites descriptive fields only. It deliberately does not
// re-derive balance deltas; amount, type and funding references cannot be
// changed through this path. Use Amend for a balance-safe full edit.
func (e *Engine) Edit(ctx context.Context, id finance.TransactionID, in EditInput) (*finance.Transaction, error) {
	var updated *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if in.Description != nil {
			tx.Description = *in.Description
		}
		if in.Category != nil {
			tx.Category = *in.Category
		}
		if in.Date != nil {
			tx.Date = *in.Date
		}
		updated = tx
		return s.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}
	return updated, nil
}

// Amend replaces a transaction wholesale: the old effect is reversed and the
// replacement applied inside the same atomic unit, so balances can never
// desynchronize from the stored amount. The record keeps its id.
func (e *Engine) Amend(ctx context.Context, id finance.TransactionID, in ApplyInput) (*finance.Transaction, error) {
	replacement, err := e.buildTransaction(in)
	if err != nil {
		e.metrics.RecordFailure("validation")
		return nil, err
	}
	replacement.ID = id

	err = e.store.WithTx(ctx, func(s store.Store) error {
		old, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := applyEffect(ctx, s, old, true); err != nil {
			return err
		}
		if err := s.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		replacement.CreatedAt = old.CreatedAt
		return e.applyInUnit(ctx, s, replacement)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(replacement.Type))
	e.log.Debug().Str("tx_id", string(id)).Msg("transaction amended")
	return replacement, nil
}

// =============================================================================
// PERIOD ROLLOVER
// =============================================================================

// ResetExpiredPeriodFlags clears PaidThisPeriod on subscriptions whose last
// payment falls in an earlier calendar period. Passive: executed on data
// load, no timer, no side effect beyond the flag correction. Returns the
// number of subscriptions corrected.
func (e *Engine) ResetExpiredPeriodFlags(ctx context.Context, profile finance.Profile) (int, error) {
	count := 0
	now := e.now()
	err := e.store.WithTx(ctx, func(s store.Store) error {
		subs, err := s.ListSubscriptions(ctx, profile)
		if err != nil {
			return err
		}
		for i := range subs {
			if !subs[i].NeedsPeriodReset(now) {
				continue
			}
			subs[i].PaidThisPeriod = false
			if err := s.SaveSubscription(ctx, &subs[i]); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// =============================================================================
// ERROR ACCOUNTING
// =============================================================================

func (e *Engine) recordError(err error) {
	switch {
	case finance.IsConflict(err):
		e.metrics.RecordConflict()
		e.metrics.RecordFailure("conflict")
	case finance.IsNotFound(err):
		e.metrics.RecordFailure("not_found")
	case finance.IsValidation(err):
		e.metrics.RecordFailure("validation")
	default:
		e.metrics.RecordFailure("internal")
		// Invariant violations are programming errors; make them loud.
		e.log.Error().Err(err).Msg("ledger operation failed")
	}
}
