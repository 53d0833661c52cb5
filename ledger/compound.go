/*
compound.go - Compound operations

PURPOSE:
  Each compound operation is one ledger mutation plus one or more dependent
  aggregate updates, committed together: pay a debt, contribute to a goal
  or investment, close an investment, pay a subscription, sell an asset,
  pay tax. If any step cannot be committed, none of it is; the first
  failing step's error propagates unchanged and no compensation is needed
  because nothing was written.

PRECONDITIONS:
  The engine checks structural invariants only (positive amount, existing
  references, active subscription). Business limits - "is the funding
  account balance sufficient" - are the caller's concern, matching the
  presentation layer's pre-flight checks.

SEE ALSO:
  - engine.go: applyInUnit, the shared record-write + effect step
  - finance/period.go: Due-date advancement
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
)

// Display categories stamped by compound operations. Provenance is carried
// by Transaction.Origin; nothing branches on these strings.
const (
	CategoryDebtPayment      = "Pago de Deuda"
	CategoryGoalContribution = "Ahorro para Metas"
	CategoryInvestment       = "Inversiones y Ahorros"
	CategoryInvestmentIncome = "Ingresos por Inversión"
	CategorySubscriptions    = "Suscripciones"
	CategoryAssetSale        = "Venta de Activos"
	CategoryTaxes            = "Impuestos"
)

// =============================================================================
// DEBTS
// =============================================================================

// PayDebt books an expense against the debt's funding account, raises the
// paid amount and advances the due date one period, and appends a payment
// history row - one atomic unit.
func (e *Engine) PayDebt(ctx context.Context, debtID finance.DebtID, amount decimal.Decimal, taxDetails *finance.TaxDetails) (*finance.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		debt, err := s.GetDebt(ctx, debtID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxExpense,
			Amount:          amount,
			Profile:         debt.Profile,
			Category:        CategoryDebtPayment,
			Description:     debt.Name,
			SourceAccountID: debt.AccountID,
			TaxDetails:      taxDetails,
			Origin:          &finance.Origin{Kind: finance.OriginDebtPayment, RefID: string(debtID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		debt.PaidAmount = debt.PaidAmount.Add(amount)
		debt.DueDate = finance.NextPeriod(debt.DueDate)
		if err := s.SaveDebt(ctx, debt); err != nil {
			return err
		}

		return s.AppendDebtPayment(ctx, finance.DebtPayment{
			ID:     e.newID(),
			DebtID: debtID,
			Amount: amount,
			Date:   tx.Date,
		})
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxExpense))
	e.log.Debug().Str("debt_id", string(debtID)).Str("amount", amount.String()).Msg("debt payment applied")
	return tx, nil
}

// =============================================================================
// SAVINGS GOALS
// =============================================================================

// ContributeToGoal books an expense from the source account and raises the
// goal's accrued amount. The first time the goal reaches its target the
// CompletionNotified flag flips true, exactly once; later contributions
// never re-trigger it.
func (e *Engine) ContributeToGoal(ctx context.Context, goalID finance.GoalID, amount decimal.Decimal, sourceAccountID finance.AccountID) (*finance.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		goal, err := s.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxExpense,
			Amount:          amount,
			Profile:         goal.Profile,
			Category:        CategoryGoalContribution,
			Description:     goal.Name,
			SourceAccountID: sourceAccountID,
			Origin:          &finance.Origin{Kind: finance.OriginGoalContribution, RefID: string(goalID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		if goal.IsComplete() && !goal.CompletionNotified {
			goal.CompletionNotified = true
		}
		if err := s.SaveGoal(ctx, goal); err != nil {
			return err
		}

		return s.AppendGoalContribution(ctx, finance.GoalContribution{
			ID:     e.newID(),
			GoalID: goalID,
			Amount: amount,
			Date:   tx.Date,
		})
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxExpense))
	return tx, nil
}

// =============================================================================
// INVESTMENTS
// =============================================================================

// ContributeToInvestment books an expense and raises both the investment's
// current value and its cost basis: new capital is not a gain.
func (e *Engine) ContributeToInvestment(ctx context.Context, investmentID finance.InvestmentID, amount decimal.Decimal, sourceAccountID finance.AccountID) (*finance.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		inv, err := s.GetInvestment(ctx, investmentID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxExpense,
			Amount:          amount,
			Profile:         inv.Profile,
			Category:        CategoryInvestment,
			Description:     inv.Name,
			SourceAccountID: sourceAccountID,
			Origin:          &finance.Origin{Kind: finance.OriginInvestmentContribution, RefID: string(investmentID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		inv.CurrentValue = inv.CurrentValue.Add(amount)
		inv.InitialAmount = inv.InitialAmount.Add(amount)
		if err := s.SaveInvestment(ctx, inv); err != nil {
			return err
		}

		return s.AppendInvestmentContribution(ctx, finance.InvestmentContribution{
			ID:           e.newID(),
			InvestmentID: investmentID,
			Amount:       amount,
			Date:         tx.Date,
		})
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxExpense))
	return tx, nil
}

// CloseInvestment books the final value as income to the destination account
// and deletes the investment record. Profit or loss is finalValue minus the
// cost basis, computed by whoever reads the transaction - it is never stored.
func (e *Engine) CloseInvestment(ctx context.Context, investmentID finance.InvestmentID, finalValue decimal.Decimal, destinationAccountID finance.AccountID) (*finance.Transaction, error) {
	if !finalValue.IsPositive() {
		return nil, &finance.ValidationError{Field: "final_value", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		inv, err := s.GetInvestment(ctx, investmentID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxIncome,
			Amount:          finalValue,
			Profile:         inv.Profile,
			Category:        CategoryInvestmentIncome,
			Description:     inv.Name,
			SourceAccountID: destinationAccountID,
			Origin:          &finance.Origin{Kind: finance.OriginInvestmentClose, RefID: string(investmentID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		return s.DeleteInvestment(ctx, investmentID)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxIncome))
	return tx, nil
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// PaySubscription books the charge against the subscription's card or
// account, advances the due date one period and marks the period paid.
// Paying a cancelled subscription is a validation error.
func (e *Engine) PaySubscription(ctx context.Context, subscriptionID finance.SubscriptionID, amount decimal.Decimal) (*finance.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		sub, err := s.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != finance.SubscriptionActive {
			return &finance.ValidationError{Field: "subscription", Reason: "subscription is cancelled"}
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxExpense,
			Amount:          amount,
			Profile:         sub.Profile,
			Category:        CategorySubscriptions,
			Description:     sub.Name,
			SourceAccountID: sub.AccountID,
			CardID:          sub.CardID,
			Origin:          &finance.Origin{Kind: finance.OriginSubscriptionPayment, RefID: string(subscriptionID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		now := e.now()
		sub.DueDate = finance.NextPeriod(sub.DueDate)
		sub.PaidThisPeriod = true
		sub.LastPaymentMonth = now.Month()
		sub.LastPaymentYear = now.Year()
		return s.SaveSubscription(ctx, sub)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxExpense))
	return tx, nil
}

// =============================================================================
// TANGIBLE ASSETS
// =============================================================================

// SellTangibleAsset books the sale price as income to the destination
// account and deletes the asset record.
func (e *Engine) SellTangibleAsset(ctx context.Context, assetID finance.AssetID, salePrice decimal.Decimal, destinationAccountID finance.AccountID) (*finance.Transaction, error) {
	if !salePrice.IsPositive() {
		return nil, &finance.ValidationError{Field: "sale_price", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		asset, err := s.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxIncome,
			Amount:          salePrice,
			Profile:         asset.Profile,
			Category:        CategoryAssetSale,
			Description:     asset.Name,
			SourceAccountID: destinationAccountID,
			Origin:          &finance.Origin{Kind: finance.OriginAssetSale, RefID: string(assetID)},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		return s.DeleteAsset(ctx, assetID)
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxIncome))
	return tx, nil
}

// =============================================================================
// TAXES
// =============================================================================

// PayTax books an expense from the source account and appends a tax payment
// history row for the given period (e.g. "2024-Q1").
func (e *Engine) PayTax(ctx context.Context, amount decimal.Decimal, sourceAccountID finance.AccountID, period string) (*finance.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &finance.ValidationError{Field: "amount", Reason: "must be strictly positive"}
	}

	var tx *finance.Transaction
	err := e.store.WithTx(ctx, func(s store.Store) error {
		account, err := s.GetAccount(ctx, sourceAccountID)
		if err != nil {
			return err
		}

		tx, err = e.buildTransaction(ApplyInput{
			Type:            finance.TxExpense,
			Amount:          amount,
			Profile:         account.Profile,
			Category:        CategoryTaxes,
			Description:     period,
			SourceAccountID: sourceAccountID,
			Origin:          &finance.Origin{Kind: finance.OriginTaxPayment, RefID: period},
		})
		if err != nil {
			return err
		}
		if err := e.applyInUnit(ctx, s, tx); err != nil {
			return err
		}

		return s.AppendTaxPayment(ctx, finance.TaxPayment{
			ID:        e.newID(),
			Profile:   account.Profile,
			AccountID: sourceAccountID,
			Amount:    amount,
			Period:    period,
			Date:      tx.Date,
		})
	})
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	e.metrics.RecordMutation(string(finance.TxExpense))
	return tx, nil
}
