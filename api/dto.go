/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY REPRESENTATION:
  Amounts and balances cross the wire as decimal strings ("125.50"), never
  JSON numbers. Clients that parse them as floats lose precision; clients
  that keep them as strings round-trip exactly.

PARTIAL UPDATES:
  UpdateTransactionRequest uses pointer fields so that an absent field and
  an explicitly empty field stay distinguishable after decoding.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/farmwise/ledger/ledger"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Method    string `json:"method"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// AccountSummaryDTO is the account slice embedded in transaction responses.
type AccountSummaryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Method   string `json:"method"`
	Currency string `json:"currency"`
}

// TransactionDTO represents a transaction enriched with its account and
// category in API responses.
type TransactionDTO struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Amount    string            `json:"amount"`
	Type      string            `json:"type"`
	Note      string            `json:"note,omitempty"`
	Date      string            `json:"date"`
	Account   AccountSummaryDTO `json:"account"`
	Category  CategoryDTO       `json:"category"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Method   string `json:"method"`
	Balance  string `json:"balance"` // opening balance, decimal string
	Currency string `json:"currency"`
}

// CreateTransactionRequest is the request to record a transaction.
// Date is optional; absent means "now".
type CreateTransactionRequest struct {
	AccountID  string `json:"account_id"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Type       string `json:"type"`
	Note       string `json:"note,omitempty"`
	Date       string `json:"date,omitempty"`
}

// UpdateTransactionRequest is the request to edit a transaction. Every
// field is optional; absent fields keep their stored values.
type UpdateTransactionRequest struct {
	AccountID  *string `json:"account_id,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Amount     *string `json:"amount,omitempty"`
	Type       *string `json:"type,omitempty"`
	Note       *string `json:"note,omitempty"`
	Date       *string `json:"date,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Method:    a.Method,
		Balance:   a.Balance.String(),
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func toCategoryDTO(c ledger.CategorySummary) CategoryDTO {
	return CategoryDTO{
		ID:    string(c.ID),
		Name:  c.Name,
		Type:  string(c.Type),
		Icon:  c.Icon,
		Color: c.Color,
	}
}

func toTransactionDTO(d ledger.TransactionDetail) TransactionDTO {
	return TransactionDTO{
		ID:        string(d.Transaction.ID),
		AccountID: string(d.Transaction.AccountID),
		Amount:    d.Amount.String(),
		Type:      string(d.Type),
		Note:      d.Note,
		Date:      d.Date.Format(time.RFC3339),
		Account: AccountSummaryDTO{
			ID:       string(d.Account.ID),
			Name:     d.Account.Name,
			Method:   d.Account.Method,
			Currency: d.Account.Currency,
		},
		Category:  toCategoryDTO(d.Category),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(details []ledger.TransactionDetail) []TransactionDTO {
	dtos := make([]TransactionDTO, len(details))
	for i, d := range details {
		dtos[i] = toTransactionDTO(d)
	}
	return dtos
}
