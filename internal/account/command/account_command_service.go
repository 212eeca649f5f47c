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

// Store is the slice of the ledger store the account service writes through.
type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAutoProvisionedAccount(ctx context.Context, customerID string) (*models.Account, error)
	ListAccountsByCustomer(ctx context.Context, customerID string) ([]models.Account, error)
	RecordTransaction(ctx context.Context, tx *models.Transaction) (decimal.Decimal, int64, error)
	DeleteAccountCascade(ctx context.Context, accountID string) error
	UpsertCustomerRef(ctx context.Context, customerID, firstName, lastName, email string) error
	DeleteCustomerRef(ctx context.Context, customerID string) error
	CustomerRefExists(ctx context.Context, customerID string) (bool, error)
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountCommandService opens accounts on explicit command and reacts to
// customer lifecycle events: customer.created auto-provisions an account,
// customer.deleted cascades deletion through the ledger.
type AccountCommandService struct {
	store     Store
	publisher EventPublisher
}

func NewAccountCommandService(store Store, publisher EventPublisher) *AccountCommandService {
	return &AccountCommandService{store: store, publisher: publisher}
}

// OpenAccount creates an account for an existing customer, optionally
// seeding it with an initial credit. The customer lookup goes against the
// local customer reference projection, never the customer service's store.
func (s *AccountCommandService) OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (*models.Account, error) {
	if cmd.CustomerID == "" {
		return nil, apperr.Invalid("customer id is required")
	}
	if cmd.InitialDeposit.IsNegative() {
		return nil, apperr.Invalid("initial deposit must not be negative")
	}

	exists, err := s.store.CustomerRefExists(ctx, cmd.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("customer not found")
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:         uuid.NewString(),
		CustomerID: cmd.CustomerID,
		Balance:    decimal.Zero,
		OpenedAt:   now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	if cmd.InitialDeposit.IsPositive() {
		tx := &models.Transaction{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Amount:      cmd.InitialDeposit,
			Type:        models.TransactionCredit,
			Description: "Initial credit",
			Status:      models.StatusCompleted,
			CreatedAt:   now,
		}
		newBalance, revision, err := s.store.RecordTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		account.Balance = newBalance
		account.Revision = revision
	}

	// The account is durably committed; cancellation must no longer stop
	// the event from going out.
	pubCtx := context.WithoutCancel(ctx)
	if err := s.publisher.Publish(pubCtx, events.LedgerEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:      account.ID,
		CustomerID:     account.CustomerID,
		InitialBalance: account.Balance,
		CreatedAt:      account.OpenedAt,
		SchemaVersion:  events.SchemaVersion,
	}); err != nil {
		log.Printf("Failed to publish account.created event: %v", err)
		return account, apperr.Transient("account created but event propagation failed", err)
	}
	return account, nil
}

// HandleCustomerEvent is the subscriber handler bound to the customer
// events stream.
func (s *AccountCommandService) HandleCustomerEvent(ctx context.Context, env events.Envelope) error {
	switch env.Type {
	case events.CustomerCreated:
		var data events.CustomerCreatedEvent
		if err := events.DecodePayload(env, &data); err != nil {
			return err
		}
		return s.provisionAccount(ctx, data)
	case events.CustomerDeleted:
		var data events.CustomerDeletedEvent
		if err := events.DecodePayload(env, &data); err != nil {
			return err
		}
		return s.cascadeCustomerDelete(ctx, data.CustomerID)
	default:
		// Other event types on the stream are not ours; ack and move on.
		return nil
	}
}

// provisionAccount reacts to customer.created: it records the customer
// reference and opens exactly one zero-balance account. Safe under
// redelivery: the existence check skips the common case and the store's
// uniqueness constraint catches the check racing a concurrent delivery.
func (s *AccountCommandService) provisionAccount(ctx context.Context, data events.CustomerCreatedEvent) error {
	if data.CustomerID == "" {
		return apperr.Poison("customer.created event without customer id", nil)
	}
	if err := s.store.UpsertCustomerRef(ctx, data.CustomerID, data.FirstName, data.LastName, data.Email); err != nil {
		return err
	}

	if _, err := s.store.GetAutoProvisionedAccount(ctx, data.CustomerID); err == nil {
		log.Printf("Account already exists for customer %s, skipping provisioning", data.CustomerID)
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:              uuid.NewString(),
		CustomerID:      data.CustomerID,
		Balance:         decimal.Zero,
		AutoProvisioned: true,
		OpenedAt:        now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if apperr.IsConflict(err) {
			// Lost the race against a concurrent redelivery; the other
			// delivery's account stands.
			log.Printf("Concurrent provisioning for customer %s, skipping", data.CustomerID)
			return nil
		}
		return err
	}
	log.Printf("Auto-provisioned account %s for customer %s", account.ID, account.CustomerID)

	// The account is durably committed; cancellation must no longer stop
	// the event from going out.
	pubCtx := context.WithoutCancel(ctx)
	if err := s.publisher.Publish(pubCtx, events.LedgerEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:      account.ID,
		CustomerID:     account.CustomerID,
		InitialBalance: decimal.Zero,
		CreatedAt:      account.OpenedAt,
		SchemaVersion:  events.SchemaVersion,
	}); err != nil {
		// The account is committed; the event is best-effort propagation.
		log.Printf("Failed to publish account.created event: %v", err)
	}
	return nil
}

// cascadeCustomerDelete removes every account of the customer, transactions
// first within each account. Re-running against already-deleted targets is
// a no-op.
func (s *AccountCommandService) cascadeCustomerDelete(ctx context.Context, customerID string) error {
	if customerID == "" {
		return apperr.Poison("customer.deleted event without customer id", nil)
	}
	accounts, err := s.store.ListAccountsByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := s.store.DeleteAccountCascade(ctx, account.ID); err != nil {
			return err
		}
		log.Printf("Deleted account %s and its transactions for customer %s", account.ID, customerID)
	}
	return s.store.DeleteCustomerRef(ctx, customerID)
}
