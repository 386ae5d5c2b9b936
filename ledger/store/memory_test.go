package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmwise/ledger/ledger"
	"github.com/farmwise/ledger/ledger/store"
)

func seedMem(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	err := mem.SaveAccount(context.Background(), &ledger.Account{
		ID:       "acc-a",
		UserID:   "user-alice",
		Name:     "Cash box",
		Balance:  decimal.RequireFromString("100.00"),
		Currency: "USD",
		Version:  1,
	})
	require.NoError(t, err)
	return mem
}

func memTx(id string, date time.Time) *ledger.Transaction {
	return &ledger.Transaction{
		ID:         ledger.TransactionID(id),
		AccountID:  "acc-a",
		UserID:     "user-alice",
		CategoryID: "cat-food",
		Amount:     decimal.RequireFromString("5.00"),
		Type:       ledger.TxExpense,
		Date:       date,
	}
}

func TestMemoryWithTx_ErrorRollsBackEveryWrite(t *testing.T) {
	// GIVEN: An atomic unit that inserts a row, moves a balance, then fails
	// WHEN: The unit returns its error
	// THEN: Neither the row nor the balance change is observable

	mem := seedMem(t)
	boom := errors.New("boom")

	err := mem.WithTx(context.Background(), func(st ledger.Store) error {
		if err := st.InsertTransaction(context.Background(), memTx("tx-1", time.Now())); err != nil {
			return err
		}
		if err := st.UpdateAccountBalance(context.Background(), "acc-a", decimal.RequireFromString("95.00"), 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	account, getErr := mem.GetAccount(context.Background(), "acc-a")
	require.NoError(t, getErr)
	assert.True(t, decimal.RequireFromString("100.00").Equal(account.Balance))
	assert.Equal(t, int64(1), account.Version)

	all, listErr := mem.ListAllTransactionDetails(context.Background(), 10)
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

func TestMemoryWithTx_CommitPublishesBothWrites(t *testing.T) {
	mem := seedMem(t)

	err := mem.WithTx(context.Background(), func(st ledger.Store) error {
		if err := st.InsertTransaction(context.Background(), memTx("tx-1", time.Now())); err != nil {
			return err
		}
		return st.UpdateAccountBalance(context.Background(), "acc-a", decimal.RequireFromString("95.00"), 1)
	})
	require.NoError(t, err)

	account, err := mem.GetAccount(context.Background(), "acc-a")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("95.00").Equal(account.Balance))
	assert.Equal(t, int64(2), account.Version)
}

func TestMemoryUpdateAccountBalance_StaleVersion_Conflict(t *testing.T) {
	// GIVEN: An account whose stored version is 1
	// WHEN: Writing a balance with an outdated expected version
	// THEN: ErrConflict, and the balance stays untouched

	mem := seedMem(t)

	err := mem.UpdateAccountBalance(context.Background(), "acc-a", decimal.RequireFromString("50.00"), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	account, getErr := mem.GetAccount(context.Background(), "acc-a")
	require.NoError(t, getErr)
	assert.True(t, decimal.RequireFromString("100.00").Equal(account.Balance))
}

func TestMemoryGetAccount_ReturnsCopy(t *testing.T) {
	// Mutating a returned account must not leak into the store.
	mem := seedMem(t)

	account, err := mem.GetAccount(context.Background(), "acc-a")
	require.NoError(t, err)
	account.Balance = decimal.RequireFromString("1.00")

	again, err := mem.GetAccount(context.Background(), "acc-a")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.00").Equal(again.Balance))
}

func TestMemoryListTransactionDetails_SortsDateDescThenInsertion(t *testing.T) {
	// Two rows share a date; the later insertion wins the tie consistently.
	mem := seedMem(t)
	mem.SaveCategory(ledger.Category{ID: "cat-food", Name: "Food", Type: ledger.TxExpense})

	date := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, mem.InsertTransaction(context.Background(), memTx("tx-old", date.Add(-time.Hour))))
	require.NoError(t, mem.InsertTransaction(context.Background(), memTx("tx-first", date)))
	require.NoError(t, mem.InsertTransaction(context.Background(), memTx("tx-second", date)))

	details, err := mem.ListTransactionDetails(context.Background(), "acc-a",
		ledger.Window{OpenEnded: true})
	require.NoError(t, err)
	require.Len(t, details, 3)

	assert.Equal(t, ledger.TransactionID("tx-first"), details[0].Transaction.ID)
	assert.Equal(t, ledger.TransactionID("tx-second"), details[1].Transaction.ID)
	assert.Equal(t, ledger.TransactionID("tx-old"), details[2].Transaction.ID)
}
