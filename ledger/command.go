/*
command.go - Transaction command service

PURPOSE:
  The only writer of Transaction rows and Account balances. Orchestrates
  create/update/delete: ownership and referential checks, partial-update
  resolution, balance math via balance.go, and the atomic pairing of the
  transaction mutation with its balance change(s).

REQUEST FLOW (every command):
  1. Validate input            -> ValidationError
  2. Resolve account/category/transaction with ownership filter -> NotFoundError
  3. Compute new balance(s)    -> pure, balance.go
  4. Persist pair inside WithTx, balance writes version-checked
  5. On version conflict, retry the whole command; budget exhausted -> ConflictError

CONCURRENCY:
  Two concurrent commands against the same account serialize through the
  versioned balance write: the loser's WithTx rolls back and the command
  re-reads, re-computes, and re-writes. Cross-account updates write balances
  in ascending account-id order.
*/
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// balanceRetryBudget bounds how many times a command is re-run after a
// version conflict before surfacing ConflictError.
const balanceRetryBudget = 3

// CommandService orchestrates all ledger writes.
type CommandService struct {
	store TxStore
	now   func() time.Time
	newID func() string
}

func NewCommandService(store TxStore) *CommandService {
	return &CommandService{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// CreateInput is a fully-specified creation request. Date nil means "now".
type CreateInput struct {
	AccountID  AccountID
	CategoryID CategoryID
	Amount     decimal.Decimal
	Type       TxType
	Note       string
	Date       *time.Time
}

// Create records a transaction and applies its balance delta to the owning
// account as one atomic unit.
func (s *CommandService) Create(ctx context.Context, userID UserID, in CreateInput) (*TransactionDetail, error) {
	if err := validateAmountType(in.Amount, in.Type); err != nil {
		return nil, err
	}

	var detail *TransactionDetail
	err := s.withRetry(ctx, in.AccountID, func(st Store) error {
		account, err := st.GetUserAccount(ctx, in.AccountID, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return &NotFoundError{Resource: "account"}
		}

		category, err := st.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return &NotFoundError{Resource: "category"}
		}

		now := s.now()
		date := now
		if in.Date != nil {
			date = *in.Date
		}
		tx := &Transaction{
			ID:         TransactionID(s.newID()),
			AccountID:  account.ID,
			UserID:     account.UserID,
			CategoryID: category.ID,
			Amount:     in.Amount,
			Type:       in.Type,
			Note:       in.Note,
			Date:       date,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		newBalance := ApplyCreate(account, in.Type, in.Amount)

		if err := st.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if err := st.UpdateAccountBalance(ctx, account.ID, newBalance, account.Version); err != nil {
			return err
		}

		detail = &TransactionDetail{Transaction: *tx, Account: account.Summary(), Category: category.Summary()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Update edits a transaction. Absent fields keep their stored values; the
// old state's balance effect is reversed and the new state's applied, summed
// when the account is unchanged, split across both accounts when it moves.
func (s *CommandService) Update(ctx context.Context, userID UserID, id TransactionID, changes TransactionChanges) (*TransactionDetail, error) {
	var detail *TransactionDetail
	err := s.withRetry(ctx, "", func(st Store) error {
		tx, err := st.GetUserTransaction(ctx, id, userID)
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Resource: "transaction"}
		}

		oldAccount, err := st.GetUserAccount(ctx, tx.AccountID, userID)
		if err != nil {
			return err
		}
		if oldAccount == nil {
			return &NotFoundError{Resource: "account"}
		}
		oldType, oldAmount := tx.Type, tx.Amount

		// Resolve the new state: anything not supplied defaults to the
		// stored value.
		newAccount := oldAccount
		if changes.AccountID != nil && *changes.AccountID != tx.AccountID {
			newAccount, err = st.GetUserAccount(ctx, *changes.AccountID, userID)
			if err != nil {
				return err
			}
			if newAccount == nil {
				return &NotFoundError{Resource: "account"}
			}
		}
		if changes.CategoryID != nil && *changes.CategoryID != tx.CategoryID {
			moved, err := st.GetCategory(ctx, *changes.CategoryID)
			if err != nil {
				return err
			}
			if moved == nil {
				return &NotFoundError{Resource: "category"}
			}
			tx.CategoryID = moved.ID
		}

		newType, newAmount := oldType, oldAmount
		if changes.Type != nil {
			newType = *changes.Type
		}
		if changes.Amount != nil {
			newAmount = *changes.Amount
		}
		if err := validateAmountType(newAmount, newType); err != nil {
			return err
		}

		tx.AccountID = newAccount.ID
		tx.Type = newType
		tx.Amount = newAmount
		if changes.Note != nil {
			tx.Note = *changes.Note
		}
		if changes.Date != nil {
			tx.Date = *changes.Date
		}
		tx.UpdatedAt = s.now()

		balanceChanges := ApplyUpdate(oldAccount, oldType, oldAmount, newAccount, newType, newAmount)

		if err := st.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		versions := map[AccountID]int64{oldAccount.ID: oldAccount.Version, newAccount.ID: newAccount.Version}
		for _, change := range balanceChanges {
			if err := st.UpdateAccountBalance(ctx, change.AccountID, change.NewBalance, versions[change.AccountID]); err != nil {
				return err
			}
		}

		category, err := st.GetCategory(ctx, tx.CategoryID)
		if err != nil {
			return err
		}
		detail = &TransactionDetail{Transaction: *tx, Account: newAccount.Summary()}
		if category != nil {
			detail.Category = category.Summary()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Delete removes a transaction and reverses its balance effect as one
// atomic unit.
func (s *CommandService) Delete(ctx context.Context, userID UserID, id TransactionID) error {
	return s.withRetry(ctx, "", func(st Store) error {
		tx, err := st.GetUserTransaction(ctx, id, userID)
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Resource: "transaction"}
		}

		account, err := st.GetUserAccount(ctx, tx.AccountID, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return &NotFoundError{Resource: "account"}
		}

		newBalance := ApplyDelete(account, tx.Type, tx.Amount)

		if err := st.DeleteTransaction(ctx, tx.ID); err != nil {
			return err
		}
		return st.UpdateAccountBalance(ctx, account.ID, newBalance, account.Version)
	})
}

// withRetry runs fn in an atomic unit, re-running the whole unit on version
// conflicts until the budget is spent.
func (s *CommandService) withRetry(ctx context.Context, accountID AccountID, fn func(Store) error) error {
	var err error
	for attempt := 0; attempt < balanceRetryBudget; attempt++ {
		err = s.store.WithTx(ctx, fn)
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return &ConflictError{AccountID: accountID, Attempts: balanceRetryBudget}
}

func validateAmountType(amount decimal.Decimal, typ TxType) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !typ.Valid() {
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	return nil
}
