/*
store.go - Persistence interface for accounts, transactions, and categories

PURPOSE:
  Defines the interface between the ledger services and the database.
  Different implementations can use SQLite or in-memory storage.

ATOMIC PAIRING CONTRACT:
  Every command pairs a transaction row mutation with one or two account
  balance writes. TxStore.WithTx is the mechanism: the command service runs
  the whole read-compute-write sequence inside fn, and the store commits or
  rolls back the pair as a unit. No reader ever observes one half.

VERSIONED BALANCE WRITES:
  UpdateAccountBalance carries the version the caller read. A mismatch means
  another command committed in between; the store returns ErrConflict and
  the whole command is retried from scratch.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite (WAL, foreign keys, migrations)
  - ledger/store: in-memory, for tests and dev
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store handles persistence of accounts, transactions, and categories.
// Lookup methods return (nil, nil) on miss; translating a miss into
// NotFoundError is the services' job, so ownership filtering stays in
// one place.
type Store interface {
	// GetAccount returns an account regardless of owner (admin reads).
	GetAccount(ctx context.Context, id AccountID) (*Account, error)

	// GetUserAccount returns the account only if it belongs to userID.
	GetUserAccount(ctx context.Context, id AccountID, userID UserID) (*Account, error)

	// SaveAccount inserts or replaces an account record. Account creation is
	// the surrounding application's concern; balances are never written
	// through this method after creation.
	SaveAccount(ctx context.Context, account *Account) error

	// ListAccounts returns a user's accounts, ordered by name.
	ListAccounts(ctx context.Context, userID UserID) ([]Account, error)

	// UpdateAccountBalance writes a new balance if and only if the stored
	// version still equals expectedVersion, bumping the version. Returns
	// ErrConflict on a version mismatch.
	UpdateAccountBalance(ctx context.Context, id AccountID, balance decimal.Decimal, expectedVersion int64) error

	// GetCategory returns a category by id. Categories are shared reference
	// data: existence-checked, never mutated here.
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)

	// ListCategories returns all categories, ordered by name.
	ListCategories(ctx context.Context) ([]Category, error)

	// GetUserTransaction resolves a transaction through its owning account,
	// filtering on the account's owner. A guessed id for another user's
	// transaction misses exactly like a nonexistent one.
	GetUserTransaction(ctx context.Context, id TransactionID, userID UserID) (*Transaction, error)

	// InsertTransaction persists a new transaction row.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// UpdateTransaction replaces a transaction row's mutable fields.
	UpdateTransaction(ctx context.Context, tx *Transaction) error

	// DeleteTransaction removes a transaction row.
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// ListTransactionDetails returns an account's transactions inside the
	// window, enriched with account and category summaries, ordered by date
	// descending with a stable insertion-order tiebreak.
	ListTransactionDetails(ctx context.Context, accountID AccountID, w Window) ([]TransactionDetail, error)

	// ListAllTransactionDetails returns the most recent transactions across
	// all accounts and users. Privilege gating happens before the core is
	// invoked; this is a plain read.
	ListAllTransactionDetails(ctx context.Context, limit int) ([]TransactionDetail, error)
}

// TxStore wraps Store with atomic-unit support.
// If fn returns an error the unit is rolled back; otherwise it is committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
