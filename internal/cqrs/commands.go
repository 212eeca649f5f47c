// Package cqrs holds the command and query structs passed from the HTTP
// layer to the services. The mapping from command to handler is explicit
// wiring in each cmd main, never reflection.
package cqrs

import (
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

type CreateCustomerCommand struct {
	FirstName string
	LastName  string
	Email     string
	Address   models.Address
}

type DeleteCustomerCommand struct {
	CustomerID string
}

type OpenAccountCommand struct {
	CustomerID     string
	InitialDeposit decimal.Decimal
}

type AddTransactionCommand struct {
	AccountID   string
	Amount      decimal.Decimal
	Type        string
	Description string
}
