/*
delta.go - The balance decision table

PURPOSE:
  Given a transaction, decide exactly which denormalized balance fields
  change and by how much. This is the single place in the system that
  knows the routing rules; Apply and Reverse both run the same table,
  Reverse with every sign flipped.

DECISION TABLE:

  | type     | card set? | card credit? | credit-line flag? | mutation                          |
  |----------|-----------|--------------|-------------------|-----------------------------------|
  | income   | -         | -            | -                 | account.Balance += amount         |
  | expense  | yes       | yes          | -                 | card.UsedAmount += amount         |
  | expense  | yes       | no           | -                 | account.Balance -= amount         |
  | expense  | no        | -            | true              | account.CreditLineUsed += amount  |
  | expense  | no        | -            | false             | account.Balance -= amount         |
  | transfer | -         | -            | -                 | source -= amount, dest += amount  |

  For a debit/prepaid card expense the mutated account is the card's
  owning account, not the transaction's source account field.

GUARANTEE:
  applyEffect runs inside the caller's atomic unit. It reads the current
  aggregate state through the unit's snapshot, so reversal never compounds
  drift from concurrent mutations, and a failure at any row leaves nothing
  applied once the unit aborts.

SEE ALSO:
  - engine.go: Wraps this in WithTx together with the record write
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/casaflow/ledger-engine/finance"
	"github.com/casaflow/ledger-engine/store"
)

// applyEffect mutates the balance target(s) for tx. With invert=true every
// delta sign is flipped, producing the exact inverse (used by Reverse).
//
// Must be called inside a WithTx unit. Returns finance.NotFoundError if a
// referenced account or card is missing, finance.InvariantError if the
// table produces no target (which validation should have made impossible).
func applyEffect(ctx context.Context, s store.Store, tx *finance.Transaction, invert bool) error {
	amount := tx.Amount
	if invert {
		amount = amount.Neg()
	}

	switch tx.Type {
	case finance.TxIncome:
		return addToBalance(ctx, s, tx.SourceAccountID, amount)

	case finance.TxExpense:
		switch {
		case tx.CardID != "":
			return applyCardExpense(ctx, s, tx.CardID, amount)
		case tx.IsCreditLinePayment:
			return addToCreditLine(ctx, s, tx.SourceAccountID, amount)
		default:
			return addToBalance(ctx, s, tx.SourceAccountID, amount.Neg())
		}

	case finance.TxTransfer:
		if err := addToBalance(ctx, s, tx.SourceAccountID, amount.Neg()); err != nil {
			return err
		}
		return addToBalance(ctx, s, tx.DestinationAccountID, amount)
	}

	return &finance.InvariantError{Check: "decision table produced no balance target for type " + string(tx.Type)}
}

// applyCardExpense routes a card expense: credit cards accumulate UsedAmount,
// debit/prepaid cards debit the owning account's cash balance directly.
func applyCardExpense(ctx context.Context, s store.Store, id finance.CardID, amount decimal.Decimal) error {
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return err
	}
	if card.IsCredit() {
		card.UsedAmount = card.UsedAmount.Add(amount)
		return s.SaveCard(ctx, card)
	}
	return addToBalance(ctx, s, card.AccountID, amount.Neg())
}

func addToBalance(ctx context.Context, s store.Store, id finance.AccountID, delta decimal.Decimal) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	account.Balance = account.Balance.Add(delta)
	return s.SaveAccount(ctx, account)
}

func addToCreditLine(ctx context.Context, s store.Store, id finance.AccountID, delta decimal.Decimal) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	account.CreditLineUsed = account.CreditLineUsed.Add(delta)
	return s.SaveAccount(ctx, account)
}
