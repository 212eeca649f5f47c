// Package ledger implements the ledger store: per-account balances plus the
// append-only transaction log, in one PostgreSQL database. The transaction
// log is authoritative; the balance column is a materialized cache kept in
// lockstep by RecordTransaction and always recomputable as the signed sum
// of the account's rows.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// Postgres error codes surfaced as taxonomy kinds.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateAccount inserts a new account row. For auto-provisioned accounts a
// partial unique index on customer_id guarantees at most one per customer;
// a violation comes back as Conflict so the consumer can treat a racing
// redelivery as already-provisioned.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, customer_id, balance, revision, auto_provisioned, opened_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.CustomerID, account.Balance,
		account.AutoProvisioned, account.OpenedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return apperr.Conflict("account already exists for customer " + account.CustomerID)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, customer_id, balance, revision, auto_provisioned, opened_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account models.Account
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.CustomerID, &account.Balance, &account.Revision,
		&account.AutoProvisioned, &account.OpenedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAutoProvisionedAccount returns the reactively created account for a
// customer, or NotFound. Used by the provisioning consumer's existence
// check before creating one.
func (s *Store) GetAutoProvisionedAccount(ctx context.Context, customerID string) (*models.Account, error) {
	query := `
		SELECT id, customer_id, balance, revision, auto_provisioned, opened_at, updated_at
		FROM accounts
		WHERE customer_id = $1 AND auto_provisioned
	`
	var account models.Account
	err := s.db.QueryRowContext(ctx, query, customerID).Scan(
		&account.ID, &account.CustomerID, &account.Balance, &account.Revision,
		&account.AutoProvisioned, &account.OpenedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("no auto-provisioned account for customer")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *Store) ListAccountsByCustomer(ctx context.Context, customerID string) ([]models.Account, error) {
	query := `
		SELECT id, customer_id, balance, revision, auto_provisioned, opened_at, updated_at
		FROM accounts
		WHERE customer_id = $1
		ORDER BY opened_at
	`
	rows, err := s.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(
			&account.ID, &account.CustomerID, &account.Balance, &account.Revision,
			&account.AutoProvisioned, &account.OpenedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// RecordTransaction appends one transaction and applies its signed amount
// to the account balance as a single SQL transaction. The insert happens
// first and the balance update is a plain atomic increment, so concurrent
// callers on the same account serialize at the row and a reconciliation
// query can always recompute balance from the log. Returns the new balance
// and revision.
func (s *Store) RecordTransaction(ctx context.Context, tx *models.Transaction) (decimal.Decimal, int64, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, 0, apperr.Transient("failed to begin ledger transaction", err)
	}
	defer dbTx.Rollback()

	insert := `
		INSERT INTO transactions (id, account_id, amount, type, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := dbTx.ExecContext(ctx, insert,
		tx.ID, tx.AccountID, tx.Amount, tx.Type, tx.Description, tx.Status, tx.CreatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation {
			return decimal.Zero, 0, apperr.NotFound("account not found")
		}
		return decimal.Zero, 0, fmt.Errorf("failed to insert transaction: %w", err)
	}

	update := `
		UPDATE accounts
		SET balance = balance + $2, revision = revision + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING balance, revision
	`
	var newBalance decimal.Decimal
	var revision int64
	err = dbTx.QueryRowContext(ctx, update, tx.AccountID, tx.SignedAmount()).Scan(&newBalance, &revision)
	if err == sql.ErrNoRows {
		return decimal.Zero, 0, apperr.NotFound("account not found")
	}
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to update balance: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return decimal.Zero, 0, apperr.Transient("failed to commit ledger transaction", err)
	}
	return newBalance, revision, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, amount, type, description, status, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.Amount, &tx.Type,
			&tx.Description, &tx.Status, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// DeleteAccountCascade removes an account and its transactions in one SQL
// transaction, transactions strictly first so no concurrent reader can see
// an orphaned transaction. Deleting an absent account is a no-op, which
// keeps the customer.deleted consumer idempotent under redelivery.
func (s *Store) DeleteAccountCascade(ctx context.Context, accountID string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Transient("failed to begin cascade delete", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return apperr.Transient("failed to commit cascade delete", err)
	}
	return nil
}

// SumTransactions recomputes an account balance from the log. Reconciliation
// only; the serving path reads the materialized column.
func (s *Store) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'debit' THEN -amount ELSE amount END), 0)
		FROM transactions
		WHERE account_id = $1
	`
	var sum decimal.Decimal
	if err := s.db.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// Customer references: a projection of the customer service's entities,
// maintained by the customer.created / customer.deleted consumers so
// OpenAccount can enforce existence without crossing the service boundary.

func (s *Store) UpsertCustomerRef(ctx context.Context, customerID, firstName, lastName, email string) error {
	query := `
		INSERT INTO customer_refs (id, first_name, last_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, customerID, firstName, lastName, email, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert customer ref: %w", err)
	}
	return nil
}

func (s *Store) DeleteCustomerRef(ctx context.Context, customerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customer_refs WHERE id = $1`, customerID); err != nil {
		return fmt.Errorf("failed to delete customer ref: %w", err)
	}
	return nil
}

func (s *Store) CustomerRefExists(ctx context.Context, customerID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customer_refs WHERE id = $1)`, customerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check customer ref: %w", err)
	}
	return exists, nil
}
