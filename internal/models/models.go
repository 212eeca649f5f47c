package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Transactions carry a positive magnitude plus a type;
// the signed amount (credit positive, debit negative) is derived at the
// ledger boundary and never stored twice.
const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

// Transaction statuses. Only completed is produced today; pending/failed
// are reserved for asynchronous settlement.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Address struct {
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	Town     string `json:"town,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Address   Address   `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdTimestamp"`
}

type Account struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	Balance         decimal.Decimal `json:"balance"`
	Revision        int64           `json:"-"`
	AutoProvisioned bool            `json:"-"`
	OpenedAt        time.Time       `json:"openedTimestamp"`
	UpdatedAt       time.Time       `json:"updatedTimestamp"`
}

type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
}

// SignedAmount is the ledger-facing value of a transaction: credits count
// positive, debits negative.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
