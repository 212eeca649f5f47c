package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalanceView is the per-account entry of the customer summary read
// model. Revision mirrors the ledger's per-account counter so stale
// balance.updated events can be detected and discarded.
type AccountBalanceView struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Revision  int64           `json:"revision"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

// RecentTransactionView is a bounded projection of transaction.created
// events kept alongside the summary.
type RecentTransactionView struct {
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description,omitempty"`
	OccurredAt    time.Time       `json:"occurredTimestamp"`
}

// CustomerSummary is the customer-facing aggregate view: the customer, its
// accounts with cached balances, and the derived total.
type CustomerSummary struct {
	Customer           Customer                `json:"customer"`
	Accounts           []AccountBalanceView    `json:"accounts"`
	TotalBalance       decimal.Decimal         `json:"totalBalance"`
	RecentTransactions []RecentTransactionView `json:"recentTransactions,omitempty"`
}
