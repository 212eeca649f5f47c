package query

import (
	"context"

	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/ledger"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

type TransactionQueryService struct {
	store *ledger.Store
}

func NewTransactionQueryService(store *ledger.Store) *TransactionQueryService {
	return &TransactionQueryService{store: store}
}

// ListTransactions returns an account's log in creation order. The account
// must exist; an empty log on a live account is an empty list, not an error.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, q.AccountID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, q.AccountID)
}
