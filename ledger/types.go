/*
Package ledger implements the account-balance ledger: accounts holding a
stored balance, income/expense transactions recorded against categories,
and the rules that keep the two consistent.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: owns a running balance in a single currency
  - Transaction: a signed balance change (sign carried by Type, not Amount)
  - Category: shared read-only reference data
  - TransactionChanges: per-field presence bits for partial updates

DESIGN PRINCIPLES:
  1. Precision: all money arithmetic uses decimal.Decimal, never float64
  2. Single writer: Account.Balance is only ever mutated in lock-step with
     a transaction mutation, inside one atomic store unit
  3. Presence, not truthiness: a partial update distinguishes "set note to
     empty" from "leave note alone" via pointer fields

SEE ALSO:
  - balance.go: balance-delta computation
  - command.go: the only writer of transactions and balances
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string
type CategoryID string
type UserID string

// =============================================================================
// TRANSACTION TYPE
// =============================================================================

type TxType string

const (
	TxIncome  TxType = "income"  // adds to the account balance
	TxExpense TxType = "expense" // subtracts from the account balance
)

// Valid reports whether t is one of the recognized transaction types.
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account holds a user's running balance in one currency.
//
// INVARIANT: Balance equals the opening balance plus the signed sum of every
// transaction currently attributed to the account. The invariant holds after
// every command, including failed ones.
//
// Version is an optimistic-concurrency counter: every balance write checks
// and bumps it, so two concurrent edits against the same account can never
// silently drop a delta.
type Account struct {
	ID        AccountID
	UserID    UserID
	Name      string
	Method    string // display metadata, e.g. "cash", "bank", "mobile money"
	Balance   decimal.Decimal
	Currency  string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is a single income or expense event on an account.
// Amount is always positive; the sign is carried by Type.
type Transaction struct {
	ID         TransactionID
	AccountID  AccountID
	UserID     UserID // denormalized owner, equal to the owning account's owner
	CategoryID CategoryID
	Amount     decimal.Decimal
	Type       TxType
	Note       string
	Date       time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Delta returns the signed balance effect of the transaction.
func (t Transaction) Delta() decimal.Decimal {
	return CreateDelta(t.Type, t.Amount)
}

// =============================================================================
// CATEGORY - Shared reference data, read-only from the ledger's side
// =============================================================================

type Category struct {
	ID    CategoryID
	Name  string
	Type  TxType
	Icon  string
	Color string
}

// =============================================================================
// PARTIAL UPDATES
// =============================================================================

// TransactionChanges carries the fields of an update request. A nil field
// means "keep the stored value". Resolution to final values happens in the
// command service before any balance math runs.
type TransactionChanges struct {
	AccountID  *AccountID
	CategoryID *CategoryID
	Amount     *decimal.Decimal
	Type       *TxType
	Note       *string
	Date       *time.Time
}

// Empty reports whether no field was supplied at all.
func (c TransactionChanges) Empty() bool {
	return c.AccountID == nil && c.CategoryID == nil && c.Amount == nil &&
		c.Type == nil && c.Note == nil && c.Date == nil
}

// =============================================================================
// ENRICHED ROWS - What queries return
// =============================================================================

// AccountSummary is the slice of account metadata attached to query results.
type AccountSummary struct {
	ID       AccountID
	Name     string
	Method   string
	Currency string
}

// CategorySummary is the slice of category metadata attached to query results.
type CategorySummary struct {
	ID    CategoryID
	Name  string
	Type  TxType
	Icon  string
	Color string
}

// TransactionDetail is a transaction enriched with its account and category
// summaries, as returned by the query service.
type TransactionDetail struct {
	Transaction
	Account  AccountSummary
	Category CategorySummary
}

// Summary returns the account's query-result projection.
func (a Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Method: a.Method, Currency: a.Currency}
}

// Summary returns the category's query-result projection.
func (c Category) Summary() CategorySummary {
	return CategorySummary{ID: c.ID, Name: c.Name, Type: c.Type, Icon: c.Icon, Color: c.Color}
}
