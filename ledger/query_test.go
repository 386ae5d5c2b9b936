package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmwise/ledger/ledger"
	"github.com/farmwise/ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(d int) *time.Time {
	t := time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
	return &t
}

// seedHistory records three expenses on acc-a dated March 5, 10, and 20,
// plus one on Bob's account, and returns their transaction ids in insertion
// order.
func seedHistory(t *testing.T, svc *ledger.CommandService) []ledger.TransactionID {
	t.Helper()
	var ids []ledger.TransactionID
	for _, d := range []int{5, 10, 20} {
		in := expense("acc-a", "10.00")
		in.Date = day(d)
		detail, err := svc.Create(context.Background(), userAlice, in)
		require.NoError(t, err)
		ids = append(ids, detail.Transaction.ID)
	}
	in := expense("acc-bob", "7.00")
	in.Date = day(10)
	_, err := svc.Create(context.Background(), userBob, in)
	require.NoError(t, err)
	return ids
}

func newTestQueries(t *testing.T) (*ledger.QueryService, *ledger.CommandService, *store.Memory) {
	t.Helper()
	svc, mem := newTestLedger(t)
	seedAccount(t, mem, "acc-a", userAlice, "100.00")
	seedAccount(t, mem, "acc-bob", userBob, "100.00")
	return ledger.NewQueryService(mem), svc, mem
}

// =============================================================================
// WINDOW FILTERING
// =============================================================================

func TestList_CustomWindow_FiltersInclusive(t *testing.T) {
	// GIVEN: Expenses on March 5, 10, and 20
	// WHEN: Listing [March 5, March 10 23:59:59] explicitly
	// THEN: Only the first two come back

	queries, svc, _ := newTestQueries(t)
	ids := seedHistory(t, svc)

	details, err := queries.List(context.Background(), userAlice, "acc-a",
		ledger.IntervalCustom, "2024-03-05", "2024-03-10T23:59:59Z")
	require.NoError(t, err)

	require.Len(t, details, 2)
	// Date descending: March 10 first.
	assert.Equal(t, ids[1], details[0].Transaction.ID)
	assert.Equal(t, ids[0], details[1].Transaction.ID)
}

func TestList_All_ReturnsEverythingDateDescending(t *testing.T) {
	queries, svc, _ := newTestQueries(t)
	ids := seedHistory(t, svc)

	details, err := queries.List(context.Background(), userAlice, "acc-a",
		ledger.IntervalAll, "", "")
	require.NoError(t, err)

	require.Len(t, details, 3)
	assert.Equal(t, ids[2], details[0].Transaction.ID)
	assert.Equal(t, ids[1], details[1].Transaction.ID)
	assert.Equal(t, ids[0], details[2].Transaction.ID)
}

func TestList_EnrichesAccountAndCategory(t *testing.T) {
	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	details, err := queries.List(context.Background(), userAlice, "acc-a",
		ledger.IntervalAll, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, details)

	assert.Equal(t, ledger.AccountID("acc-a"), details[0].Account.ID)
	assert.Equal(t, "USD", details[0].Account.Currency)
	assert.Equal(t, "Food", details[0].Category.Name)
}

func TestList_EmptyWindow_EmptyListNotError(t *testing.T) {
	// A window containing nothing is an empty result, never an error.
	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	details, err := queries.List(context.Background(), userAlice, "acc-a",
		ledger.IntervalCustom, "2019-01-01", "2019-12-31")
	require.NoError(t, err)
	assert.NotNil(t, details)
	assert.Empty(t, details)
}

// =============================================================================
// VALIDATION AND OWNERSHIP
// =============================================================================

func TestList_BogusInterval_ValidationError(t *testing.T) {
	queries, _, _ := newTestQueries(t)

	_, err := queries.List(context.Background(), userAlice, "acc-a",
		ledger.Interval("bogus"), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestList_WindowValidatedBeforeAccountLookup(t *testing.T) {
	// A bad interval fails even when the account would also be missing.
	queries, _, _ := newTestQueries(t)

	_, err := queries.List(context.Background(), userAlice, "acc-missing",
		ledger.Interval("bogus"), "", "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestList_ForeignAccount_NotFound(t *testing.T) {
	// GIVEN: acc-bob belongs to Bob
	// WHEN: Alice lists its history
	// THEN: NotFound, same as for an account that does not exist

	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	_, err := queries.List(context.Background(), userAlice, "acc-bob",
		ledger.IntervalAll, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err2 := queries.List(context.Background(), userAlice, "acc-missing",
		ledger.IntervalAll, "", "")
	assert.Equal(t, err.Error(), err2.Error())
}

// =============================================================================
// ADMIN READS
// =============================================================================

func TestListAllForAccount_BypassesOwnership(t *testing.T) {
	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	details, err := queries.ListAllForAccount(context.Background(), "acc-bob",
		ledger.IntervalAll, "", "")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, ledger.UserID("user-bob"), details[0].UserID)
}

func TestListAcrossAccounts_MostRecentFirstWithLimit(t *testing.T) {
	// GIVEN: Four transactions across two users
	// WHEN: Listing across accounts with limit 2
	// THEN: The two most recently recorded come back, newest first

	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	details, err := queries.ListAcrossAccounts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, ledger.AccountID("acc-bob"), details[0].Transaction.AccountID)
	assert.Equal(t, ledger.AccountID("acc-a"), details[1].Transaction.AccountID)
}

func TestListAcrossAccounts_NonPositiveLimit_Defaults(t *testing.T) {
	queries, svc, _ := newTestQueries(t)
	seedHistory(t, svc)

	details, err := queries.ListAcrossAccounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, details, 4)
}
