/*
handlers.go - HTTP API handlers for the ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the command and query services.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                    List the caller's accounts
    POST   /api/accounts                    Create account
    GET    /api/accounts/{id}               Get account details
    GET    /api/accounts/{id}/transactions  Transaction history with interval filtering

  Transactions:
    POST   /api/transactions                Record income/expense
    PUT    /api/transactions/{id}           Edit transaction (partial)
    DELETE /api/transactions/{id}           Delete transaction

  Categories:
    GET    /api/categories                  List shared categories

  Admin:
    GET    /api/admin/accounts/{id}/transactions  Any account's history
    GET    /api/admin/transactions                Recent activity across accounts

REQUEST FLOW:
  1. Parse HTTP request
  2. Decode and convert DTOs
  3. Call domain logic (command/query services)
  4. Serialize response
  5. Map errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found (or not owned by the caller)
  - 409: Balance write conflict after retries
  - 500: Internal errors
  401/403 come from the auth middleware, never from here.

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Identity resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmwise/ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.TxStore
	Commands *ledger.CommandService
	Queries  *ledger.QueryService
}

// NewHandler creates a new handler around the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:    store,
		Commands: ledger.NewCommandService(store),
		Queries:  ledger.NewQueryService(store),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the caller's accounts.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))

	accounts, err := h.Store.ListAccounts(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates an account owned by the caller.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Account name is required", nil)
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid opening balance", err)
			return
		}
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	account := &ledger.Account{
		ID:        ledger.AccountID(uuid.NewString()),
		UserID:    userID,
		Name:      req.Name,
		Method:    req.Method,
		Balance:   balance,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

// GetAccount returns one of the caller's accounts.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	id := ledger.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.GetUserAccount(r.Context(), id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get account", err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// ListAccountTransactions returns the caller's transaction history for one
// account, filtered by the interval parameters.
// GET /api/accounts/{id}/transactions?interval=&startDate=&endDate=
func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	accountID := ledger.AccountID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	details, err := h.Queries.List(r.Context(), userID, accountID,
		ledger.Interval(q.Get("interval")), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(details))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction records an income or expense on one of the caller's
// accounts and moves the balance in the same unit.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	in := ledger.CreateInput{
		AccountID:  ledger.AccountID(req.AccountID),
		CategoryID: ledger.CategoryID(req.CategoryID),
		Amount:     amount,
		Type:       ledger.TxType(req.Type),
		Note:       req.Note,
	}
	if req.Date != "" {
		date, err := ledger.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		in.Date = &date
	}

	detail, err := h.Commands.Create(r.Context(), userID, in)
	if err != nil {
		writeDomainError(w, "Failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(*detail))
}

// UpdateTransaction edits a transaction. Absent fields keep their stored
// values; balance effects are reversed and reapplied atomically.
// PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	changes, err := toChanges(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid update", err)
		return
	}
	if changes.Empty() {
		writeError(w, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	detail, err := h.Commands.Update(r.Context(), userID, id, changes)
	if err != nil {
		writeDomainError(w, "Failed to update transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(*detail))
}

// DeleteTransaction removes a transaction and reverses its balance effect.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(UserIDFrom(r.Context()))
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Commands.Delete(r.Context(), userID, id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns the shared category catalog.
// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c.Summary())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// AdminListAccountTransactions returns any account's history regardless of
// owner. Gated by RequireAdmin in the router.
// GET /api/admin/accounts/{id}/transactions?interval=&startDate=&endDate=
func (h *Handler) AdminListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	interval := ledger.Interval(q.Get("interval"))
	if interval == "" {
		interval = ledger.IntervalAll
	}

	details, err := h.Queries.ListAllForAccount(r.Context(), accountID,
		interval, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(details))
}

// AdminListTransactions returns the most recent activity across all
// accounts and users.
// GET /api/admin/transactions?limit=
func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	details, err := h.Queries.ListAcrossAccounts(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(details))
}

// =============================================================================
// HELPERS
// =============================================================================

// toChanges converts a wire-level partial update into domain changes,
// preserving field presence.
func toChanges(req UpdateTransactionRequest) (ledger.TransactionChanges, error) {
	var changes ledger.TransactionChanges

	if req.AccountID != nil {
		id := ledger.AccountID(*req.AccountID)
		changes.AccountID = &id
	}
	if req.CategoryID != nil {
		id := ledger.CategoryID(*req.CategoryID)
		changes.CategoryID = &id
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return changes, err
		}
		changes.Amount = &amount
	}
	if req.Type != nil {
		typ := ledger.TxType(*req.Type)
		changes.Type = &typ
	}
	if req.Note != nil {
		changes.Note = req.Note
	}
	if req.Date != nil {
		date, err := ledger.ParseDate(*req.Date)
		if err != nil {
			return changes, err
		}
		changes.Date = &date
	}
	return changes, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps a service error to its status. Internal errors keep
// the generic message; client errors surface the domain message as details.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
