package query

import (
	"context"

	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/ledger"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

type AccountQueryService struct {
	store *ledger.Store
}

func NewAccountQueryService(store *ledger.Store) *AccountQueryService {
	return &AccountQueryService{store: store}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	return s.store.GetAccount(ctx, q.AccountID)
}

func (s *AccountQueryService) ListAccountsByCustomer(ctx context.Context, customerID string) ([]models.Account, error) {
	return s.store.ListAccountsByCustomer(ctx, customerID)
}
