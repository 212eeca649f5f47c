package command

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/events"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// Store is the slice of the ledger store the transaction service uses.
type Store interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	RecordTransaction(ctx context.Context, tx *models.Transaction) (decimal.Decimal, int64, error)
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// TransactionCommandService appends transactions to the ledger. The insert
// and the balance mutation are one unit of work inside the store; events go
// out strictly after that commits.
type TransactionCommandService struct {
	store     Store
	publisher EventPublisher
}

func NewTransactionCommandService(store Store, publisher EventPublisher) *TransactionCommandService {
	return &TransactionCommandService{store: store, publisher: publisher}
}

// AddTransaction validates the command, records the transaction atomically
// with the balance update, then publishes transaction.created followed by
// account.balance.updated. A publish failure after the commit surfaces as
// Transient alongside the created transaction: the local write stands and
// callers must not assume event delivery on success.
func (s *TransactionCommandService) AddTransaction(ctx context.Context, cmd cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error) {
	if cmd.AccountID == "" {
		return nil, decimal.Zero, apperr.Invalid("account id is required")
	}
	if !cmd.Amount.IsPositive() {
		return nil, decimal.Zero, apperr.Invalid("amount must be greater than zero")
	}
	if cmd.Type != models.TransactionCredit && cmd.Type != models.TransactionDebit {
		return nil, decimal.Zero, apperr.Invalid("transaction type must be credit or debit")
	}
	if cmd.Description == "" {
		return nil, decimal.Zero, apperr.Invalid("description is required")
	}

	account, err := s.store.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Amount:      cmd.Amount,
		Type:        cmd.Type,
		Description: cmd.Description,
		Status:      models.StatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	newBalance, revision, err := s.store.RecordTransaction(ctx, tx)
	if err != nil {
		return nil, decimal.Zero, err
	}

	// Committed. From here cancellation must not stop the events.
	pubCtx := context.WithoutCancel(ctx)

	if err := s.publisher.Publish(pubCtx, events.LedgerEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		CustomerID:    account.CustomerID,
		Amount:        tx.Amount,
		Type:          tx.Type,
		Description:   tx.Description,
		OccurredAt:    tx.CreatedAt,
		SchemaVersion: events.SchemaVersion,
	}); err != nil {
		log.Printf("Failed to publish transaction.created event: %v", err)
		return tx, newBalance, apperr.Transient("transaction recorded but event propagation failed", err)
	}

	if err := s.publisher.Publish(pubCtx, events.LedgerEventsStream, events.AccountBalanceUpdated, events.AccountBalanceUpdatedEvent{
		AccountID:     tx.AccountID,
		CustomerID:    account.CustomerID,
		NewBalance:    newBalance,
		UpdatedAt:     time.Now().UTC(),
		SchemaVersion: events.SchemaVersion,
		Revision:      revision,
	}); err != nil {
		log.Printf("Failed to publish account.balance.updated event: %v", err)
		return tx, newBalance, apperr.Transient("transaction recorded but event propagation failed", err)
	}

	return tx, newBalance, nil
}
