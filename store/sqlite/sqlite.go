/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Production persistence for accounts, transactions, and categories. The
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMIC PAIRING:
  WithTx wraps the command service's read-compute-write sequence in a
  database transaction. A transaction row mutation and its account balance
  write(s) commit together or not at all; no reader observes one half.

VERSIONED BALANCE WRITES:
  UpdateAccountBalance is a compare-and-swap on the account's version
  column. A concurrent commit in between turns the write into a no-op and
  surfaces ledger.ErrConflict, which the command service retries.

TIME ENCODING:
  All timestamps are stored UTC in a fixed-width millisecond layout so that
  string comparison in SQL matches chronological order. Mixed-precision
  RFC3339 would not sort correctly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Versioned SQL migrations embedded in the binary, applied on New() via
  golang-migrate. See migrate.go.

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/farmwise/ledger/ledger"
)

// timeLayout is fixed-width millisecond UTC. Lexicographic order on stored
// strings equals chronological order, which the windowed queries rely on.
const timeLayout = "2006-01-02T15:04:05.000Z"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and applies pending
// migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, &ledger.StorageError{Op: "open database", Err: err}
	}
	// A single connection keeps ":memory:" coherent and matches SQLite's
	// single-writer model.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, &ledger.StorageError{Op: "migrate database", Err: err}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every statement
// helper runs identically inside and outside an atomic unit.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &ledger.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// txStore routes every Store call through the open *sql.Tx.
type txStore struct {
	q *sql.Tx
}

func (t *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return getAccount(ctx, t.q, id)
}
func (t *txStore) GetUserAccount(ctx context.Context, id ledger.AccountID, userID ledger.UserID) (*ledger.Account, error) {
	return getUserAccount(ctx, t.q, id, userID)
}
func (t *txStore) SaveAccount(ctx context.Context, account *ledger.Account) error {
	return saveAccount(ctx, t.q, account)
}
func (t *txStore) ListAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	return listAccounts(ctx, t.q, userID)
}
func (t *txStore) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance decimal.Decimal, expectedVersion int64) error {
	return updateAccountBalance(ctx, t.q, id, balance, expectedVersion)
}
func (t *txStore) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	return getCategory(ctx, t.q, id)
}
func (t *txStore) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	return listCategories(ctx, t.q)
}
func (t *txStore) GetUserTransaction(ctx context.Context, id ledger.TransactionID, userID ledger.UserID) (*ledger.Transaction, error) {
	return getUserTransaction(ctx, t.q, id, userID)
}
func (t *txStore) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return insertTransaction(ctx, t.q, tx)
}
func (t *txStore) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return updateTransaction(ctx, t.q, tx)
}
func (t *txStore) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	return deleteTransaction(ctx, t.q, id)
}
func (t *txStore) ListTransactionDetails(ctx context.Context, accountID ledger.AccountID, w ledger.Window) ([]ledger.TransactionDetail, error) {
	return listTransactionDetails(ctx, t.q, accountID, w)
}
func (t *txStore) ListAllTransactionDetails(ctx context.Context, limit int) ([]ledger.TransactionDetail, error) {
	return listAllTransactionDetails(ctx, t.q, limit)
}

// =============================================================================
// DIRECT (NON-TRANSACTIONAL) ACCESS
// =============================================================================

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func (s *Store) GetUserAccount(ctx context.Context, id ledger.AccountID, userID ledger.UserID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUserAccount(ctx, s.db, id, userID)
}

func (s *Store) SaveAccount(ctx context.Context, account *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, account)
}

func (s *Store) ListAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db, userID)
}

func (s *Store) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance decimal.Decimal, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccountBalance(ctx, s.db, id, balance, expectedVersion)
}

func (s *Store) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCategory(ctx, s.db, id)
}

func (s *Store) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCategories(ctx, s.db)
}

func (s *Store) GetUserTransaction(ctx context.Context, id ledger.TransactionID, userID ledger.UserID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUserTransaction(ctx, s.db, id, userID)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, tx)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, tx)
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func (s *Store) ListTransactionDetails(ctx context.Context, accountID ledger.AccountID, w ledger.Window) ([]ledger.TransactionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactionDetails(ctx, s.db, accountID, w)
}

func (s *Store) ListAllTransactionDetails(ctx context.Context, limit int) ([]ledger.TransactionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAllTransactionDetails(ctx, s.db, limit)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = "id, user_id, name, method, balance, currency, version, created_at, updated_at"

func getAccount(ctx context.Context, q querier, id ledger.AccountID) (*ledger.Account, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

func getUserAccount(ctx context.Context, q querier, id ledger.AccountID, userID ledger.UserID) (*ledger.Account, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? AND user_id = ?", id, userID)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*ledger.Account, error) {
	var (
		acc                  ledger.Account
		balance              string
		createdAt, updatedAt string
	)
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Method, &balance,
		&acc.Currency, &acc.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "scan account", Err: err}
	}
	acc.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, &ledger.StorageError{Op: "parse account balance", Err: err}
	}
	acc.CreatedAt = decodeTime(createdAt)
	acc.UpdatedAt = decodeTime(updatedAt)
	return &acc, nil
}

func saveAccount(ctx context.Context, q querier, account *ledger.Account) error {
	if account.Version == 0 {
		account.Version = 1
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = time.Now()

	// Balance and version are deliberately not updatable here: after
	// creation they move only through UpdateAccountBalance.
	query := `
		INSERT INTO accounts (id, user_id, name, method, balance, currency, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			method = excluded.method,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		account.ID, account.UserID, account.Name, account.Method,
		account.Balance.String(), account.Currency, account.Version,
		encodeTime(account.CreatedAt), encodeTime(account.UpdatedAt),
	)
	if err != nil {
		return &ledger.StorageError{Op: "save account", Err: err}
	}
	return nil
}

func listAccounts(ctx context.Context, q querier, userID ledger.UserID) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	accounts := []ledger.Account{}
	for rows.Next() {
		var (
			acc                           ledger.Account
			balance, createdAt, updatedAt string
		)
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Method, &balance,
			&acc.Currency, &acc.Version, &createdAt, &updatedAt); err != nil {
			return nil, &ledger.StorageError{Op: "scan account", Err: err}
		}
		acc.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, &ledger.StorageError{Op: "parse account balance", Err: err}
		}
		acc.CreatedAt = decodeTime(createdAt)
		acc.UpdatedAt = decodeTime(updatedAt)
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func updateAccountBalance(ctx context.Context, q querier, id ledger.AccountID, balance decimal.Decimal, expectedVersion int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		balance.String(), encodeTime(time.Now()), id, expectedVersion,
	)
	if err != nil {
		return &ledger.StorageError{Op: "update account balance", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "update account balance", Err: err}
	}
	if affected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func getCategory(ctx context.Context, q querier, id ledger.CategoryID) (*ledger.Category, error) {
	var c ledger.Category
	err := q.QueryRowContext(ctx,
		"SELECT id, name, type, icon, color FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get category", Err: err}
	}
	return &c, nil
}

func listCategories(ctx context.Context, q querier) ([]ledger.Category, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, type, icon, color FROM categories ORDER BY name")
	if err != nil {
		return nil, &ledger.StorageError{Op: "list categories", Err: err}
	}
	defer rows.Close()

	categories := []ledger.Category{}
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color); err != nil {
			return nil, &ledger.StorageError{Op: "scan category", Err: err}
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func getUserTransaction(ctx context.Context, q querier, id ledger.TransactionID, userID ledger.UserID) (*ledger.Transaction, error) {
	// Resolved through the owning account: a guessed id belonging to
	// another user misses exactly like a nonexistent one.
	row := q.QueryRowContext(ctx, `
		SELECT t.id, t.account_id, t.user_id, t.category_id, t.amount, t.tx_type,
		       t.note, t.date, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND a.user_id = ?`, id, userID)

	var (
		tx                         ledger.Transaction
		amount                     string
		date, createdAt, updatedAt string
	)
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.UserID, &tx.CategoryID, &amount,
		&tx.Type, &tx.Note, &date, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get transaction", Err: err}
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, &ledger.StorageError{Op: "parse transaction amount", Err: err}
	}
	tx.Date = decodeTime(date)
	tx.CreatedAt = decodeTime(createdAt)
	tx.UpdatedAt = decodeTime(updatedAt)
	return &tx, nil
}

func insertTransaction(ctx context.Context, q querier, tx *ledger.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, user_id, category_id, amount, tx_type, note, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, tx.UserID, tx.CategoryID, tx.Amount.String(),
		tx.Type, tx.Note, encodeTime(tx.Date), encodeTime(tx.CreatedAt), encodeTime(tx.UpdatedAt),
	)
	if err != nil {
		return &ledger.StorageError{Op: "insert transaction", Err: err}
	}
	return nil
}

func updateTransaction(ctx context.Context, q querier, tx *ledger.Transaction) error {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, amount = ?, tx_type = ?, note = ?, date = ?, updated_at = ?
		WHERE id = ?`,
		tx.AccountID, tx.CategoryID, tx.Amount.String(), tx.Type, tx.Note,
		encodeTime(tx.Date), encodeTime(tx.UpdatedAt), tx.ID,
	)
	if err != nil {
		return &ledger.StorageError{Op: "update transaction", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "update transaction", Err: err}
	}
	if affected == 0 {
		return &ledger.NotFoundError{Resource: "transaction"}
	}
	return nil
}

func deleteTransaction(ctx context.Context, q querier, id ledger.TransactionID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return &ledger.StorageError{Op: "delete transaction", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "delete transaction", Err: err}
	}
	if affected == 0 {
		return &ledger.NotFoundError{Resource: "transaction"}
	}
	return nil
}

// =============================================================================
// ENRICHED LISTINGS
// =============================================================================

const detailColumns = `
	t.id, t.account_id, t.user_id, t.category_id, t.amount, t.tx_type,
	t.note, t.date, t.created_at, t.updated_at,
	a.name, a.method, a.currency,
	c.name, c.type, c.icon, c.color`

const detailJoins = `
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	JOIN categories c ON c.id = t.category_id`

func listTransactionDetails(ctx context.Context, q querier, accountID ledger.AccountID, w ledger.Window) ([]ledger.TransactionDetail, error) {
	query := "SELECT" + detailColumns + detailJoins + `
		WHERE t.account_id = ? AND t.date >= ?`
	args := []any{accountID, encodeTime(w.Start)}
	if !w.OpenEnded {
		query += " AND t.date <= ?"
		args = append(args, encodeTime(w.End))
	}
	query += `
		ORDER BY t.date DESC, t.created_at ASC, t.id ASC`

	return queryDetails(ctx, q, query, args...)
}

func listAllTransactionDetails(ctx context.Context, q querier, limit int) ([]ledger.TransactionDetail, error) {
	query := "SELECT" + detailColumns + detailJoins + `
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ?`
	return queryDetails(ctx, q, query, limit)
}

func queryDetails(ctx context.Context, q querier, query string, args ...any) ([]ledger.TransactionDetail, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	details := []ledger.TransactionDetail{}
	for rows.Next() {
		var (
			d                          ledger.TransactionDetail
			amount                     string
			date, createdAt, updatedAt string
		)
		if err := rows.Scan(
			&d.Transaction.ID, &d.Transaction.AccountID, &d.UserID, &d.Transaction.CategoryID, &amount, &d.Type,
			&d.Note, &date, &createdAt, &updatedAt,
			&d.Account.Name, &d.Account.Method, &d.Account.Currency,
			&d.Category.Name, &d.Category.Type, &d.Category.Icon, &d.Category.Color,
		); err != nil {
			return nil, &ledger.StorageError{Op: "scan transaction", Err: err}
		}
		d.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, &ledger.StorageError{Op: "parse transaction amount", Err: err}
		}
		d.Date = decodeTime(date)
		d.CreatedAt = decodeTime(createdAt)
		d.UpdatedAt = decodeTime(updatedAt)
		d.Account.ID = d.Transaction.AccountID
		d.Category.ID = d.Transaction.CategoryID
		details = append(details, d)
	}
	return details, rows.Err()
}
