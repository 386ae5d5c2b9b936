/*
query.go - Transaction query service

PURPOSE:
  Read side of the ledger: resolve the window, confirm ownership, return
  enriched transactions ordered by date descending. An empty window is an
  empty list, never an error.

ADMIN READS:
  ListAllForAccount and ListAcrossAccounts bypass the per-user ownership
  filter. They are read-only; gating them behind a privileged caller is the
  authorization collaborator's job, performed before this service is invoked.
*/
package ledger

import (
	"context"
	"time"
)

// QueryService answers time-windowed reads over the transaction history.
type QueryService struct {
	store Store
	now   func() time.Time
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store, now: time.Now}
}

// List returns the account's transactions inside the resolved window,
// enriched and date-descending. Fails with ValidationError on a malformed
// interval and NotFoundError when the account is missing or foreign.
func (s *QueryService) List(ctx context.Context, userID UserID, accountID AccountID, interval Interval, startDate, endDate string) ([]TransactionDetail, error) {
	w, err := ResolveWindow(interval, startDate, endDate, s.now())
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetUserAccount(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &NotFoundError{Resource: "account"}
	}

	return s.store.ListTransactionDetails(ctx, accountID, w)
}

// ListAllForAccount is the ownership-bypassing variant of List.
func (s *QueryService) ListAllForAccount(ctx context.Context, accountID AccountID, interval Interval, startDate, endDate string) ([]TransactionDetail, error) {
	w, err := ResolveWindow(interval, startDate, endDate, s.now())
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &NotFoundError{Resource: "account"}
	}

	return s.store.ListTransactionDetails(ctx, accountID, w)
}

// ListAcrossAccounts returns the most recent transactions over every account
// and user, capped at limit.
func (s *QueryService) ListAcrossAccounts(ctx context.Context, limit int) ([]TransactionDetail, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListAllTransactionDetails(ctx, limit)
}
