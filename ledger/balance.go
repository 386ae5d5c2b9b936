/*
balance.go - Balance invariant engine

PURPOSE:
  Pure balance-delta math. Given a transaction mutation, compute the exact
  new balance(s) required to keep every touched account's invariant true:

    balance == opening balance + sum of signed transaction amounts

CRITICAL INVARIANTS:
  1. PURE: no I/O, no branching on external state, never fails on
     resolved input. All fallibility lives in the command service.
  2. PAIRED: callers persist the transaction mutation and the returned
     balance change(s) as one atomic unit. Half a change is never written.
  3. SUMMED: an update that stays on one account applies reversal and
     reapplication as a single summed delta, never as two persisted writes.

CURRENCY:
  No conversion. A transaction moved to an account with a different
  currency applies its raw amount to each account's own ledger.
*/
package ledger

import "github.com/shopspring/decimal"

// BalanceChange is one account's new balance, to be persisted together with
// the transaction mutation that produced it.
type BalanceChange struct {
	AccountID  AccountID
	NewBalance decimal.Decimal
}

// CreateDelta returns the signed balance effect of recording a transaction:
// +amount for income, -amount for expense.
func CreateDelta(typ TxType, amount decimal.Decimal) decimal.Decimal {
	if typ == TxIncome {
		return amount
	}
	return amount.Neg()
}

// DeleteDelta returns the inverse of CreateDelta: the effect of removing a
// previously recorded transaction.
func DeleteDelta(typ TxType, amount decimal.Decimal) decimal.Decimal {
	return CreateDelta(typ, amount).Neg()
}

// ApplyCreate returns the account's balance after recording a transaction.
func ApplyCreate(account *Account, typ TxType, amount decimal.Decimal) decimal.Decimal {
	return account.Balance.Add(CreateDelta(typ, amount))
}

// ApplyDelete returns the account's balance after removing a transaction.
func ApplyDelete(account *Account, typ TxType, amount decimal.Decimal) decimal.Decimal {
	return account.Balance.Add(DeleteDelta(typ, amount))
}

// ApplyUpdate computes the balance change set for editing a transaction from
// (oldAccount, oldTyp, oldAmount) to (newAccount, newTyp, newAmount). All six
// inputs must already be resolved; defaulting absent fields is the command
// service's job.
//
// Same account: one change carrying reversal + reapplication summed.
// Different accounts: two changes, ordered by ascending account id so that
// concurrent cross-account updates always lock in the same order.
func ApplyUpdate(oldAccount *Account, oldTyp TxType, oldAmount decimal.Decimal,
	newAccount *Account, newTyp TxType, newAmount decimal.Decimal) []BalanceChange {

	reversal := DeleteDelta(oldTyp, oldAmount)
	application := CreateDelta(newTyp, newAmount)

	if oldAccount.ID == newAccount.ID {
		return []BalanceChange{{
			AccountID:  oldAccount.ID,
			NewBalance: oldAccount.Balance.Add(reversal).Add(application),
		}}
	}

	changes := []BalanceChange{
		{AccountID: oldAccount.ID, NewBalance: oldAccount.Balance.Add(reversal)},
		{AccountID: newAccount.ID, NewBalance: newAccount.Balance.Add(application)},
	}
	if changes[1].AccountID < changes[0].AccountID {
		changes[0], changes[1] = changes[1], changes[0]
	}
	return changes
}
