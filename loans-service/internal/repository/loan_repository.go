package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/models"
	sharedredis "github.com/eaglebank/digibank/shared/redis"
)

const loanViewKeyPrefix = "loan:view:"

var ErrNotFound = errors.New("loan not found")

// LoanReadRepository reads loans by mobile number. Redis holds the read model
// and PostgreSQL is the source of truth; every cold read warms the cache.
type LoanReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.Loan]
}

func NewLoanReadRepository(db *sql.DB, redisClient goredis.Cmdable, ttl time.Duration, log *logger.Logger) *LoanReadRepository {
	return &LoanReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.Loan](redisClient, ttl, log),
	}
}

func (r *LoanReadRepository) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Loan, error) {
	cacheKey := loanViewKeyPrefix + mobileNumber
	if loan, ok := r.cache.Get(ctx, cacheKey); ok {
		return loan, nil
	}

	query := `
		SELECT mobile_number, loan_number, loan_type, total_loan, amount_paid, outstanding_amount
		FROM loans
		WHERE mobile_number = $1
	`
	var loan models.Loan
	err := r.db.QueryRowContext(ctx, query, mobileNumber).Scan(
		&loan.MobileNumber, &loan.LoanNumber, &loan.LoanType,
		&loan.TotalLoan, &loan.AmountPaid, &loan.OutstandingAmount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	r.cache.Set(ctx, cacheKey, &loan)
	return &loan, nil
}

// Invalidate drops the cached view so the next read goes to PostgreSQL.
func (r *LoanReadRepository) Invalidate(ctx context.Context, mobileNumber string) error {
	return r.cache.Delete(ctx, loanViewKeyPrefix+mobileNumber)
}
