package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/eaglebank/digibank/accounts-service/internal/repository"
	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/models"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountNotFound  = errors.New("account not found")
)

// CustomerStore is the accounts service's own persistence.
type CustomerStore interface {
	FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Customer, error)
	FindAccountByCustomerID(ctx context.Context, customerID int64) (*models.Account, error)
}

type AccountQueryService struct {
	store CustomerStore
}

func NewAccountQueryService(store CustomerStore) *AccountQueryService {
	return &AccountQueryService{store: store}
}

// FetchAccount returns the customer registered with the mobile number and
// their account.
func (s *AccountQueryService) FetchAccount(ctx context.Context, q cqrs.FetchAccountQuery) (*models.CustomerAccountView, error) {
	customer, account, err := loadPrimary(ctx, s.store, q.MobileNumber)
	if err != nil {
		return nil, err
	}
	return &models.CustomerAccountView{
		Name:         customer.Name,
		Email:        customer.Email,
		MobileNumber: customer.MobileNumber,
		Account:      account,
	}, nil
}

// loadPrimary resolves the customer and account that every accounts read is
// built around.
func loadPrimary(ctx context.Context, store CustomerStore, mobileNumber string) (*models.Customer, *models.Account, error) {
	customer, err := store.FindByMobileNumber(ctx, mobileNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: mobileNumber %s", ErrCustomerNotFound, mobileNumber)
	}
	if err != nil {
		return nil, nil, err
	}

	account, err := store.FindAccountByCustomerID(ctx, customer.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: customerId %d", ErrAccountNotFound, customer.CustomerID)
	}
	if err != nil {
		return nil, nil, err
	}
	return customer, account, nil
}
