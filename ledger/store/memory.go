// Package store provides ledger.TxStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmwise/ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a mutex-guarded in-memory TxStore. WithTx runs fn against a
// cloned state and swaps it in on success, so a failed unit leaves nothing
// behind, matching the SQLite store's rollback semantics.
type Memory struct {
	mu sync.RWMutex
	st *memState
}

type memState struct {
	accounts     map[ledger.AccountID]ledger.Account
	categories   map[ledger.CategoryID]ledger.Category
	transactions map[ledger.TransactionID]ledger.Transaction
	order        map[ledger.TransactionID]int64 // insertion sequence, stable sort tiebreak
	seq          int64
}

func NewMemory() *Memory {
	return &Memory{st: newMemState()}
}

func newMemState() *memState {
	return &memState{
		accounts:     make(map[ledger.AccountID]ledger.Account),
		categories:   make(map[ledger.CategoryID]ledger.Category),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		order:        make(map[ledger.TransactionID]int64),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.order {
		c.order[k] = v
	}
	c.seq = s.seq
	return c
}

// SaveCategory loads reference data. Not part of ledger.Store: the ledger
// never mutates categories, fixtures and seeds do.
func (m *Memory) SaveCategory(c ledger.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.categories[c.ID] = c
}

// =============================================================================
// ledger.TxStore
// =============================================================================

func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.st.clone()
	if err := fn(&view{st: staged}); err != nil {
		return err
	}
	m.st = staged
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).GetAccount(ctx, id)
}

func (m *Memory) GetUserAccount(ctx context.Context, id ledger.AccountID, userID ledger.UserID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).GetUserAccount(ctx, id, userID)
}

func (m *Memory) SaveAccount(ctx context.Context, account *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{st: m.st}).SaveAccount(ctx, account)
}

func (m *Memory) ListAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).ListAccounts(ctx, userID)
}

func (m *Memory) UpdateAccountBalance(ctx context.Context, id ledger.AccountID, balance decimal.Decimal, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{st: m.st}).UpdateAccountBalance(ctx, id, balance, expectedVersion)
}

func (m *Memory) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).GetCategory(ctx, id)
}

func (m *Memory) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).ListCategories(ctx)
}

func (m *Memory) GetUserTransaction(ctx context.Context, id ledger.TransactionID, userID ledger.UserID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).GetUserTransaction(ctx, id, userID)
}

func (m *Memory) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{st: m.st}).InsertTransaction(ctx, tx)
}

func (m *Memory) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{st: m.st}).UpdateTransaction(ctx, tx)
}

func (m *Memory) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{st: m.st}).DeleteTransaction(ctx, id)
}

func (m *Memory) ListTransactionDetails(ctx context.Context, accountID ledger.AccountID, w ledger.Window) ([]ledger.TransactionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).ListTransactionDetails(ctx, accountID, w)
}

func (m *Memory) ListAllTransactionDetails(ctx context.Context, limit int) ([]ledger.TransactionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (&view{st: m.st}).ListAllTransactionDetails(ctx, limit)
}

// =============================================================================
// VIEW - Unlocked state access, used directly inside WithTx
// =============================================================================

type view struct {
	st *memState
}

func (v *view) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	if acc, ok := v.st.accounts[id]; ok {
		return &acc, nil
	}
	return nil, nil
}

func (v *view) GetUserAccount(_ context.Context, id ledger.AccountID, userID ledger.UserID) (*ledger.Account, error) {
	if acc, ok := v.st.accounts[id]; ok && acc.UserID == userID {
		return &acc, nil
	}
	return nil, nil
}

func (v *view) SaveAccount(_ context.Context, account *ledger.Account) error {
	if account.Version == 0 {
		account.Version = 1
	}
	v.st.accounts[account.ID] = *account
	return nil
}

func (v *view) ListAccounts(_ context.Context, userID ledger.UserID) ([]ledger.Account, error) {
	accounts := []ledger.Account{}
	for _, acc := range v.st.accounts {
		if acc.UserID == userID {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (v *view) UpdateAccountBalance(_ context.Context, id ledger.AccountID, balance decimal.Decimal, expectedVersion int64) error {
	acc, ok := v.st.accounts[id]
	if !ok {
		return &ledger.NotFoundError{Resource: "account"}
	}
	if acc.Version != expectedVersion {
		return ledger.ErrConflict
	}
	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = time.Now()
	v.st.accounts[id] = acc
	return nil
}

func (v *view) GetCategory(_ context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	if c, ok := v.st.categories[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (v *view) ListCategories(_ context.Context) ([]ledger.Category, error) {
	categories := []ledger.Category{}
	for _, c := range v.st.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (v *view) GetUserTransaction(_ context.Context, id ledger.TransactionID, userID ledger.UserID) (*ledger.Transaction, error) {
	tx, ok := v.st.transactions[id]
	if !ok {
		return nil, nil
	}
	acc, ok := v.st.accounts[tx.AccountID]
	if !ok || acc.UserID != userID {
		return nil, nil
	}
	return &tx, nil
}

func (v *view) InsertTransaction(_ context.Context, tx *ledger.Transaction) error {
	v.st.seq++
	v.st.transactions[tx.ID] = *tx
	v.st.order[tx.ID] = v.st.seq
	return nil
}

func (v *view) UpdateTransaction(_ context.Context, tx *ledger.Transaction) error {
	if _, ok := v.st.transactions[tx.ID]; !ok {
		return &ledger.NotFoundError{Resource: "transaction"}
	}
	v.st.transactions[tx.ID] = *tx
	return nil
}

func (v *view) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	if _, ok := v.st.transactions[id]; !ok {
		return &ledger.NotFoundError{Resource: "transaction"}
	}
	delete(v.st.transactions, id)
	delete(v.st.order, id)
	return nil
}

func (v *view) ListTransactionDetails(_ context.Context, accountID ledger.AccountID, w ledger.Window) ([]ledger.TransactionDetail, error) {
	var txs []ledger.Transaction
	for _, tx := range v.st.transactions {
		if tx.AccountID == accountID && w.Contains(tx.Date) {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return v.st.order[txs[i].ID] < v.st.order[txs[j].ID]
	})
	return v.enrich(txs), nil
}

func (v *view) ListAllTransactionDetails(_ context.Context, limit int) ([]ledger.TransactionDetail, error) {
	var txs []ledger.Transaction
	for _, tx := range v.st.transactions {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		return v.st.order[txs[i].ID] > v.st.order[txs[j].ID]
	})
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return v.enrich(txs), nil
}

func (v *view) enrich(txs []ledger.Transaction) []ledger.TransactionDetail {
	details := make([]ledger.TransactionDetail, 0, len(txs))
	for _, tx := range txs {
		d := ledger.TransactionDetail{Transaction: tx}
		if acc, ok := v.st.accounts[tx.AccountID]; ok {
			d.Account = acc.Summary()
		}
		if cat, ok := v.st.categories[tx.CategoryID]; ok {
			d.Category = cat.Summary()
		}
		details = append(details, d)
	}
	return details
}
