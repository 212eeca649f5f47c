package cqrs

type GetCustomerQuery struct {
	CustomerID string
}

type ListCustomersQuery struct{}

type GetCustomerSummaryQuery struct {
	CustomerID string
}

type GetAccountQuery struct {
	AccountID string
}

type ListTransactionsQuery struct {
	AccountID string
}
