package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmwise/ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func acct(id string, balance string) *ledger.Account {
	return &ledger.Account{
		ID:      ledger.AccountID(id),
		Balance: dec(balance),
	}
}

// =============================================================================
// DELTA TESTS
// =============================================================================

func TestCreateDelta_IncomeIsPositive_ExpenseIsNegative(t *testing.T) {
	assert.True(t, dec("20").Equal(ledger.CreateDelta(ledger.TxIncome, dec("20"))))
	assert.True(t, dec("-20").Equal(ledger.CreateDelta(ledger.TxExpense, dec("20"))))
}

func TestDeleteDelta_IsInverseOfCreateDelta(t *testing.T) {
	for _, typ := range []ledger.TxType{ledger.TxIncome, ledger.TxExpense} {
		amount := dec("13.37")
		sum := ledger.CreateDelta(typ, amount).Add(ledger.DeleteDelta(typ, amount))
		assert.True(t, sum.IsZero(), "create + delete must cancel for %s", typ)
	}
}

func TestApplyCreate_ExpenseReducesBalance(t *testing.T) {
	// GIVEN: Account A with balance 100.00
	// WHEN: Recording a 20.00 expense
	// THEN: New balance is 80.00

	a := acct("acc-a", "100.00")
	newBalance := ledger.ApplyCreate(a, ledger.TxExpense, dec("20.00"))
	assert.True(t, dec("80.00").Equal(newBalance), "got %s", newBalance)
}

func TestApplyDelete_RestoresPreCreateBalance(t *testing.T) {
	// GIVEN: A balance that already absorbed a 20.00 expense (80.00)
	// WHEN: Deleting that expense
	// THEN: Balance returns to 100.00 exactly

	a := acct("acc-a", "80.00")
	newBalance := ledger.ApplyDelete(a, ledger.TxExpense, dec("20.00"))
	assert.True(t, dec("100.00").Equal(newBalance))
}

// =============================================================================
// UPDATE CHANGE-SET TESTS
// =============================================================================

func TestApplyUpdate_SameAccount_SingleSummedChange(t *testing.T) {
	// GIVEN: Account at 80.00 holding a 20.00 expense
	// WHEN: The expense amount changes to 30.00
	// THEN: One change: reverse +20, apply -30, net 70.00

	a := acct("acc-a", "80.00")
	changes := ledger.ApplyUpdate(a, ledger.TxExpense, dec("20.00"), a, ledger.TxExpense, dec("30.00"))

	require.Len(t, changes, 1)
	assert.Equal(t, ledger.AccountID("acc-a"), changes[0].AccountID)
	assert.True(t, dec("70.00").Equal(changes[0].NewBalance), "got %s", changes[0].NewBalance)
}

func TestApplyUpdate_TypeFlip_SameAccount(t *testing.T) {
	// GIVEN: Account at 120.00 holding a 20.00 income
	// WHEN: The income becomes an expense of the same amount
	// THEN: Net effect is -40.00 (reverse +20, apply -20)

	a := acct("acc-a", "120.00")
	changes := ledger.ApplyUpdate(a, ledger.TxIncome, dec("20.00"), a, ledger.TxExpense, dec("20.00"))

	require.Len(t, changes, 1)
	assert.True(t, dec("80.00").Equal(changes[0].NewBalance))
}

func TestApplyUpdate_CrossAccount_TwoChangesAscendingID(t *testing.T) {
	// GIVEN: Accounts A (90.00, holds a 40.00 income) and B (50.00)
	// WHEN: Moving the income from A to B
	// THEN: A loses the income, B gains it, changes ordered by account id

	a := acct("acc-a", "90.00")
	b := acct("acc-b", "50.00")
	changes := ledger.ApplyUpdate(a, ledger.TxIncome, dec("40.00"), b, ledger.TxIncome, dec("40.00"))

	require.Len(t, changes, 2)
	assert.Equal(t, ledger.AccountID("acc-a"), changes[0].AccountID)
	assert.True(t, dec("50.00").Equal(changes[0].NewBalance))
	assert.Equal(t, ledger.AccountID("acc-b"), changes[1].AccountID)
	assert.True(t, dec("90.00").Equal(changes[1].NewBalance))
}

func TestApplyUpdate_CrossAccount_OrderIndependentOfDirection(t *testing.T) {
	// GIVEN: A move from the higher-id account to the lower-id one
	// WHEN: Computing the change set
	// THEN: Changes still come back in ascending account-id order

	a := acct("acc-a", "10.00")
	z := acct("acc-z", "60.00")
	changes := ledger.ApplyUpdate(z, ledger.TxExpense, dec("5.00"), a, ledger.TxExpense, dec("5.00"))

	require.Len(t, changes, 2)
	assert.Equal(t, ledger.AccountID("acc-a"), changes[0].AccountID)
	assert.True(t, dec("5.00").Equal(changes[0].NewBalance))
	assert.Equal(t, ledger.AccountID("acc-z"), changes[1].AccountID)
	assert.True(t, dec("65.00").Equal(changes[1].NewBalance))
}

func TestApplyUpdate_RoundTrip_RestoresOriginalBalance(t *testing.T) {
	// GIVEN: A balance after an update from 20.00 to 30.00
	// WHEN: Applying the reverting update (30.00 back to 20.00)
	// THEN: Balance is bit-for-bit back at the pre-update value

	a := acct("acc-a", "80.00")
	forward := ledger.ApplyUpdate(a, ledger.TxExpense, dec("20.00"), a, ledger.TxExpense, dec("30.00"))
	require.Len(t, forward, 1)

	after := &ledger.Account{ID: a.ID, Balance: forward[0].NewBalance}
	back := ledger.ApplyUpdate(after, ledger.TxExpense, dec("30.00"), after, ledger.TxExpense, dec("20.00"))
	require.Len(t, back, 1)
	assert.True(t, a.Balance.Equal(back[0].NewBalance))
}

func TestTransactionDelta_MatchesCreateDelta(t *testing.T) {
	tx := ledger.Transaction{Type: ledger.TxExpense, Amount: dec("12.50")}
	assert.True(t, dec("-12.50").Equal(tx.Delta()))
}
