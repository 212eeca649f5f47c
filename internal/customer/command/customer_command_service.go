package command

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/events"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// CustomerStore is the write store the command service mutates.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

// SummaryDropper invalidates the customer's read model on deletion.
type SummaryDropper interface {
	Drop(ctx context.Context, customerID string)
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// CustomerCommandService owns customer writes. Every mutation commits
// locally first and publishes its event after; the event is propagation,
// never the source of truth.
type CustomerCommandService struct {
	store     CustomerStore
	summaries SummaryDropper
	publisher EventPublisher
}

func NewCustomerCommandService(store CustomerStore, summaries SummaryDropper, publisher EventPublisher) *CustomerCommandService {
	return &CustomerCommandService{store: store, summaries: summaries, publisher: publisher}
}

// CreateCustomer registers a customer and announces it. Downstream, the
// ledger service reacts by provisioning an account.
func (s *CustomerCommandService) CreateCustomer(ctx context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
	if strings.TrimSpace(cmd.FirstName) == "" || strings.TrimSpace(cmd.LastName) == "" {
		return nil, apperr.Invalid("first and last name are required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		return nil, apperr.Invalid("email is required")
	}

	customer := &models.Customer{
		ID:        uuid.NewString(),
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Email:     cmd.Email,
		Address:   cmd.Address,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, customer); err != nil {
		return nil, err
	}
	log.Printf("Customer %s saved", customer.ID)

	pubCtx := context.WithoutCancel(ctx)
	if err := s.publisher.Publish(pubCtx, events.CustomerEventsStream, events.CustomerCreated, events.CustomerCreatedEvent{
		CustomerID:    customer.ID,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Email:         customer.Email,
		OccurredAt:    customer.CreatedAt,
		SchemaVersion: events.SchemaVersion,
	}); err != nil {
		log.Printf("Failed to publish customer.created event: %v", err)
		return customer, apperr.Transient("customer created but event propagation failed", err)
	}
	return customer, nil
}

// DeleteCustomer removes the customer row and publishes customer.deleted;
// the ledger service deletes the dependent accounts and transactions
// reactively, transactions before accounts. The brief window where ledger
// rows outlive the customer is expected propagation lag.
func (s *CustomerCommandService) DeleteCustomer(ctx context.Context, cmd cqrs.DeleteCustomerCommand) error {
	if _, err := s.store.GetByID(ctx, cmd.CustomerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cmd.CustomerID); err != nil {
		return err
	}
	log.Printf("Deleted customer %s", cmd.CustomerID)

	pubCtx := context.WithoutCancel(ctx)
	s.summaries.Drop(pubCtx, cmd.CustomerID)

	if err := s.publisher.Publish(pubCtx, events.CustomerEventsStream, events.CustomerDeleted, events.CustomerDeletedEvent{
		CustomerID: cmd.CustomerID,
	}); err != nil {
		log.Printf("Failed to publish customer.deleted event: %v", err)
		return apperr.Transient("customer deleted but event propagation failed", err)
	}
	return nil
}
