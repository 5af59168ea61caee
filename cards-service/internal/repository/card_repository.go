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

const cardViewKeyPrefix = "card:view:"

var ErrNotFound = errors.New("card not found")

// CardReadRepository reads cards by mobile number. Redis holds the read model
// and PostgreSQL is the source of truth; every cold read warms the cache.
type CardReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.Card]
}

func NewCardReadRepository(db *sql.DB, redisClient goredis.Cmdable, ttl time.Duration, log *logger.Logger) *CardReadRepository {
	return &CardReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.Card](redisClient, ttl, log),
	}
}

func (r *CardReadRepository) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Card, error) {
	cacheKey := cardViewKeyPrefix + mobileNumber
	if card, ok := r.cache.Get(ctx, cacheKey); ok {
		return card, nil
	}

	query := `
		SELECT mobile_number, card_number, card_type, total_limit, amount_used, available_amount
		FROM cards
		WHERE mobile_number = $1
	`
	var card models.Card
	err := r.db.QueryRowContext(ctx, query, mobileNumber).Scan(
		&card.MobileNumber, &card.CardNumber, &card.CardType,
		&card.TotalLimit, &card.AmountUsed, &card.AvailableAmount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	r.cache.Set(ctx, cacheKey, &card)
	return &card, nil
}

// Invalidate drops the cached view so the next read goes to PostgreSQL.
func (r *CardReadRepository) Invalidate(ctx context.Context, mobileNumber string) error {
	return r.cache.Delete(ctx, cardViewKeyPrefix+mobileNumber)
}
