package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

const pgUniqueViolation = "23505"

// CustomerRepository is the customer service's write store. Uniqueness of
// email is enforced at the store, not by a pre-check, so two concurrent
// registrations cannot both slip through.
type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, first_name, last_name, email, address_line1, address_line2, town, postcode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.FirstName, customer.LastName, customer.Email,
		customer.Address.Line1, customer.Address.Line2, customer.Address.Town, customer.Address.Postcode,
		customer.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return apperr.Conflict("a customer with email '" + customer.Email + "' already exists")
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, address_line1, address_line2, town, postcode, created_at
		FROM customers
		WHERE id = $1
	`
	var customer models.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.FirstName, &customer.LastName, &customer.Email,
		&customer.Address.Line1, &customer.Address.Line2, &customer.Address.Town, &customer.Address.Postcode,
		&customer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, address_line1, address_line2, town, postcode, created_at
		FROM customers
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		if err := rows.Scan(
			&customer.ID, &customer.FirstName, &customer.LastName, &customer.Email,
			&customer.Address.Line1, &customer.Address.Line2, &customer.Address.Town, &customer.Address.Postcode,
			&customer.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("customer not found")
	}
	return nil
}
