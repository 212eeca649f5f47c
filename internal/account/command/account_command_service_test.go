package command

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/events"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// ---- fakes ----

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type fakePublisher struct {
	published []publishedEvent
	failWith  error
}

func (f *fakePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.failWith != nil {
		return f.failWith
	}
	f.published = append(f.published, publishedEvent{stream, eventType, data})
	return nil
}

// fakeLedger is an in-memory stand-in for the ledger store. It mirrors the
// store's behavior: NotFound on absent rows, Conflict on a second
// auto-provisioned account, balance kept equal to the signed sum.
type fakeLedger struct {
	customerRefs map[string]bool
	accounts     map[string]*models.Account
	transactions map[string][]models.Transaction

	createAccountErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		customerRefs: make(map[string]bool),
		accounts:     make(map[string]*models.Account),
		transactions: make(map[string][]models.Transaction),
	}
}

func (f *fakeLedger) CreateAccount(_ context.Context, account *models.Account) error {
	if f.createAccountErr != nil {
		return f.createAccountErr
	}
	if account.AutoProvisioned {
		for _, a := range f.accounts {
			if a.CustomerID == account.CustomerID && a.AutoProvisioned {
				return apperr.Conflict("account already exists for customer " + account.CustomerID)
			}
		}
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeLedger) GetAccount(_ context.Context, id string) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	cp := *account
	return &cp, nil
}

func (f *fakeLedger) GetAutoProvisionedAccount(_ context.Context, customerID string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.CustomerID == customerID && a.AutoProvisioned {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no auto-provisioned account for customer")
}

func (f *fakeLedger) ListAccountsByCustomer(_ context.Context, customerID string) ([]models.Account, error) {
	var out []models.Account
	for _, a := range f.accounts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeLedger) RecordTransaction(_ context.Context, tx *models.Transaction) (decimal.Decimal, int64, error) {
	account, ok := f.accounts[tx.AccountID]
	if !ok {
		return decimal.Zero, 0, apperr.NotFound("account not found")
	}
	f.transactions[tx.AccountID] = append(f.transactions[tx.AccountID], *tx)
	account.Balance = account.Balance.Add(tx.SignedAmount())
	account.Revision++
	return account.Balance, account.Revision, nil
}

func (f *fakeLedger) DeleteAccountCascade(_ context.Context, accountID string) error {
	delete(f.transactions, accountID)
	delete(f.accounts, accountID)
	return nil
}

func (f *fakeLedger) UpsertCustomerRef(_ context.Context, customerID, _, _, _ string) error {
	f.customerRefs[customerID] = true
	return nil
}

func (f *fakeLedger) DeleteCustomerRef(_ context.Context, customerID string) error {
	delete(f.customerRefs, customerID)
	return nil
}

func (f *fakeLedger) CustomerRefExists(_ context.Context, customerID string) (bool, error) {
	return f.customerRefs[customerID], nil
}

// ---- helpers ----

func customerCreatedEnvelope(t *testing.T, customerID string) events.Envelope {
	t.Helper()
	return envelopeFor(t, events.CustomerCreated, events.CustomerCreatedEvent{
		CustomerID:    customerID,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		OccurredAt:    time.Now().UTC(),
		SchemaVersion: events.SchemaVersion,
	})
}

func envelopeFor(t *testing.T, eventType string, payload any) events.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return events.Envelope{
		Type:          eventType,
		OccurredAt:    time.Now().UTC(),
		SchemaVersion: events.SchemaVersion,
		Data:          data,
	}
}

// ---- tests ----

func TestOpenAccount(t *testing.T) {
	tests := []struct {
		name         string
		customerID   string
		knownIDs     []string
		deposit      decimal.Decimal
		expectedKind apperr.Kind
	}{
		{
			name:       "success - zero deposit",
			customerID: "cust-1",
			knownIDs:   []string{"cust-1"},
			deposit:    decimal.Zero,
		},
		{
			name:       "success - positive deposit",
			customerID: "cust-1",
			knownIDs:   []string{"cust-1"},
			deposit:    decimal.NewFromInt(100),
		},
		{
			name:         "not found - unknown customer",
			customerID:   "cust-ghost",
			knownIDs:     []string{"cust-1"},
			deposit:      decimal.Zero,
			expectedKind: apperr.KindNotFound,
		},
		{
			name:         "invalid - empty customer id",
			customerID:   "",
			deposit:      decimal.Zero,
			expectedKind: apperr.KindInvalid,
		},
		{
			name:         "invalid - negative deposit",
			customerID:   "cust-1",
			knownIDs:     []string{"cust-1"},
			deposit:      decimal.NewFromInt(-5),
			expectedKind: apperr.KindInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeLedger()
			for _, id := range tt.knownIDs {
				store.customerRefs[id] = true
			}
			pub := &fakePublisher{}
			svc := NewAccountCommandService(store, pub)

			account, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{
				CustomerID:     tt.customerID,
				InitialDeposit: tt.deposit,
			})

			if tt.expectedKind != apperr.KindUnknown {
				if err == nil {
					t.Fatalf("expected error of kind %v, got nil", tt.expectedKind)
				}
				if got := apperr.KindOf(err); got != tt.expectedKind {
					t.Fatalf("expected kind %v, got %v (%v)", tt.expectedKind, got, err)
				}
				if len(store.accounts) != 0 {
					t.Fatalf("expected no account created, found %d", len(store.accounts))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !account.Balance.Equal(tt.deposit) {
				t.Fatalf("expected balance %s, got %s", tt.deposit, account.Balance)
			}
			if tt.deposit.IsPositive() {
				txns := store.transactions[account.ID]
				if len(txns) != 1 {
					t.Fatalf("expected one initial transaction, got %d", len(txns))
				}
				if txns[0].Type != models.TransactionCredit || !txns[0].Amount.Equal(tt.deposit) {
					t.Fatalf("expected credit of %s, got %s %s", tt.deposit, txns[0].Type, txns[0].Amount)
				}
			}
			if len(pub.published) != 1 || pub.published[0].eventType != events.AccountCreated {
				t.Fatalf("expected one account.created event, got %+v", pub.published)
			}
		})
	}
}

func TestOpenAccountPublishFailureIsTransient(t *testing.T) {
	store := newFakeLedger()
	store.customerRefs["cust-1"] = true
	pub := &fakePublisher{failWith: fmt.Errorf("bus unreachable")}
	svc := NewAccountCommandService(store, pub)

	account, err := svc.OpenAccount(context.Background(), cqrs.OpenAccountCommand{CustomerID: "cust-1"})
	if !apperr.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	// The local mutation stands; only propagation failed.
	if account == nil || len(store.accounts) != 1 {
		t.Fatalf("expected account to remain committed")
	}
}

func TestProvisionAccountIsIdempotent(t *testing.T) {
	store := newFakeLedger()
	pub := &fakePublisher{}
	svc := NewAccountCommandService(store, pub)
	env := customerCreatedEnvelope(t, "cust-1")

	// Deliver the same event twice, as the broker is allowed to.
	for i := 0; i < 2; i++ {
		if err := svc.HandleCustomerEvent(context.Background(), env); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	if len(store.accounts) != 1 {
		t.Fatalf("expected exactly one account after redelivery, got %d", len(store.accounts))
	}
	created := 0
	for _, e := range pub.published {
		if e.eventType == events.AccountCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected one account.created event, got %d", created)
	}
}

func TestProvisionAccountPublishSurvivesCancellation(t *testing.T) {
	store := newFakeLedger()
	pub := &fakePublisher{}
	svc := NewAccountCommandService(store, pub)

	// The delivery context is canceled (shutdown racing the commit); the
	// account still lands and the event must still go out, or the ack would
	// lose it for good.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.HandleCustomerEvent(ctx, customerCreatedEnvelope(t, "cust-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.accounts) != 1 {
		t.Fatalf("expected account to be committed, got %d", len(store.accounts))
	}
	if len(pub.published) != 1 || pub.published[0].eventType != events.AccountCreated {
		t.Fatalf("expected account.created despite cancellation, got %+v", pub.published)
	}
}

func TestProvisionAccountLosesRaceGracefully(t *testing.T) {
	store := newFakeLedger()
	// The existence check passed but the store's uniqueness constraint
	// rejected the insert: a concurrent redelivery won.
	store.createAccountErr = apperr.Conflict("account already exists for customer cust-1")
	svc := NewAccountCommandService(store, &fakePublisher{})

	if err := svc.HandleCustomerEvent(context.Background(), customerCreatedEnvelope(t, "cust-1")); err != nil {
		t.Fatalf("expected conflict to be swallowed, got %v", err)
	}
}

func TestProvisionAccountPoisonPayload(t *testing.T) {
	svc := NewAccountCommandService(newFakeLedger(), &fakePublisher{})

	env := events.Envelope{Type: events.CustomerCreated, Data: json.RawMessage(`{"customerId": 42}`)}
	err := svc.HandleCustomerEvent(context.Background(), env)
	if !apperr.IsPoison(err) {
		t.Fatalf("expected poison error for malformed payload, got %v", err)
	}

	env = envelopeFor(t, events.CustomerCreated, events.CustomerCreatedEvent{})
	err = svc.HandleCustomerEvent(context.Background(), env)
	if !apperr.IsPoison(err) {
		t.Fatalf("expected poison error for missing customer id, got %v", err)
	}
}

func TestCascadeCustomerDelete(t *testing.T) {
	store := newFakeLedger()
	store.customerRefs["cust-1"] = true
	pub := &fakePublisher{}
	svc := NewAccountCommandService(store, pub)

	// Two accounts, each holding transactions.
	for _, id := range []string{"acc-1", "acc-2"} {
		store.accounts[id] = &models.Account{ID: id, CustomerID: "cust-1"}
		store.transactions[id] = []models.Transaction{
			{ID: id + "-t1", AccountID: id, Amount: decimal.NewFromInt(10), Type: models.TransactionCredit},
			{ID: id + "-t2", AccountID: id, Amount: decimal.NewFromInt(3), Type: models.TransactionDebit},
		}
	}

	env := envelopeFor(t, events.CustomerDeleted, events.CustomerDeletedEvent{CustomerID: "cust-1"})
	if err := svc.HandleCustomerEvent(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.accounts) != 0 || len(store.transactions) != 0 {
		t.Fatalf("expected all accounts and transactions removed, got %d accounts, %d txn lists",
			len(store.accounts), len(store.transactions))
	}
	if store.customerRefs["cust-1"] {
		t.Fatalf("expected customer ref removed")
	}

	// Redelivery against already-deleted targets is a no-op.
	if err := svc.HandleCustomerEvent(context.Background(), env); err != nil {
		t.Fatalf("expected idempotent redelivery, got %v", err)
	}
}

func TestHandleCustomerEventIgnoresForeignTypes(t *testing.T) {
	svc := NewAccountCommandService(newFakeLedger(), &fakePublisher{})
	env := envelopeFor(t, "customer.updated", map[string]string{"customerId": "cust-1"})
	if err := svc.HandleCustomerEvent(context.Background(), env); err != nil {
		t.Fatalf("expected foreign event types to be acked, got %v", err)
	}
}
