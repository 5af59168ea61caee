package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/digibank/shared/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CustomerRepository reads customers and their accounts from PostgreSQL.
type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Customer, error) {
	query := `
		SELECT customer_id, name, email, mobile_number, created_at
		FROM customer
		WHERE mobile_number = $1
	`
	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, mobileNumber).Scan(
		&c.CustomerID, &c.Name, &c.Email, &c.MobileNumber, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer with mobile number %s: %w", mobileNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) FindAccountByCustomerID(ctx context.Context, customerID int64) (*models.Account, error) {
	query := `
		SELECT account_number, customer_id, account_type, branch_address
		FROM accounts
		WHERE customer_id = $1
	`
	var a models.Account
	err := r.db.QueryRowContext(ctx, query, customerID).Scan(
		&a.AccountNumber, &a.CustomerID, &a.AccountType, &a.BranchAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account for customer %d: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}
