package query

import (
	"context"

	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/models"
)

type CardReader interface {
	FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Card, error)
}

type CardQueryService struct {
	reader  CardReader
	contact models.CardsContactInfo
	log     *logger.Logger
}

func NewCardQueryService(reader CardReader, contact models.CardsContactInfo, log *logger.Logger) *CardQueryService {
	return &CardQueryService{reader: reader, contact: contact, log: log.With("component", "CardQueryService")}
}

func (s *CardQueryService) FetchCard(ctx context.Context, q cqrs.FetchCardQuery) (*models.Card, error) {
	s.log.Debug("fetching card", "correlationId", q.CorrelationID)
	return s.reader.FindByMobileNumber(ctx, q.MobileNumber)
}

// ContactInfo returns the configured support contact block.
func (s *CardQueryService) ContactInfo() models.CardsContactInfo {
	return s.contact
}
