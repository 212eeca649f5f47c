// Package events is the domain event transport: a catalogue of routing
// keys and payloads, plus a Publisher and Subscriber over Redis Streams.
// Streams are the durable topics, consumer groups the durable queues,
// XACK the manual acknowledgement. Delivery is at-least-once: consumers
// must tolerate redelivery and out-of-order arrival.
package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SchemaVersion is stamped on every published payload.
const SchemaVersion = 1

// Routing keys.
const (
	CustomerCreated = "customer.created"
	CustomerDeleted = "customer.deleted"

	AccountCreated = "account.created"

	TransactionCreated    = "transaction.created"
	AccountBalanceUpdated = "account.balance.updated"
)

// Stream names. One stream per owning service.
const (
	CustomerEventsStream = "customer.events"
	LedgerEventsStream   = "ledger.events"
)

// DeadLetterStream returns the dead-letter stream paired with a source
// stream. Messages land here after exhausting their delivery budget.
func DeadLetterStream(stream string) string {
	return stream + ".dlq"
}

// Envelope is the wire frame around every payload. Data stays raw until a
// consumer knows which payload type the routing key implies.
type Envelope struct {
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurredAt"`
	SchemaVersion int             `json:"schemaVersion"`
	Data          json.RawMessage `json:"data"`
}

// Customer events.

type CustomerCreatedEvent struct {
	CustomerID    string    `json:"customerId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	OccurredAt    time.Time `json:"occurredAt"`
	SchemaVersion int       `json:"schemaVersion"`
}

type CustomerDeletedEvent struct {
	CustomerID string `json:"customerId"`
}

// Account events.

type AccountCreatedEvent struct {
	AccountID      string          `json:"accountId"`
	CustomerID     string          `json:"customerId"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	SchemaVersion  int             `json:"schemaVersion"`
}

// Transaction events.

type TransactionCreatedEvent struct {
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	OccurredAt    time.Time       `json:"occurredAt"`
	SchemaVersion int             `json:"schemaVersion"`
}

// AccountBalanceUpdatedEvent carries the ledger's per-account revision so
// projections can discard stale updates instead of blindly overwriting.
type AccountBalanceUpdatedEvent struct {
	AccountID     string          `json:"accountId"`
	CustomerID    string          `json:"customerId"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	SchemaVersion int             `json:"schemaVersion"`
	Revision      int64           `json:"revision"`
}
