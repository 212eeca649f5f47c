package query

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// CustomerReader is the read side of the customer write store.
type CustomerReader interface {
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
}

// SummaryReader serves the projected balances and recent transactions.
type SummaryReader interface {
	GetSummary(ctx context.Context, customerID string) ([]models.AccountBalanceView, decimal.Decimal, []models.RecentTransactionView)
}

type CustomerQueryService struct {
	customers CustomerReader
	summaries SummaryReader
}

func NewCustomerQueryService(customers CustomerReader, summaries SummaryReader) *CustomerQueryService {
	return &CustomerQueryService{customers: customers, summaries: summaries}
}

func (s *CustomerQueryService) GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.Customer, error) {
	return s.customers.GetByID(ctx, q.CustomerID)
}

func (s *CustomerQueryService) ListCustomers(ctx context.Context, _ cqrs.ListCustomersQuery) ([]models.Customer, error) {
	return s.customers.List(ctx)
}

// GetCustomerSummary joins the authoritative customer row with the
// eventually consistent balance projection. The projection may lag the
// ledger; it never lies about the customer itself.
func (s *CustomerQueryService) GetCustomerSummary(ctx context.Context, q cqrs.GetCustomerSummaryQuery) (*models.CustomerSummary, error) {
	customer, err := s.customers.GetByID(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}
	accounts, total, recent := s.summaries.GetSummary(ctx, q.CustomerID)
	return &models.CustomerSummary{
		Customer:           *customer,
		Accounts:           accounts,
		TotalBalance:       total,
		RecentTransactions: recent,
	}, nil
}
