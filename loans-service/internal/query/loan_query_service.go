package query

import (
	"context"

	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/models"
)

type LoanReader interface {
	FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Loan, error)
}

type LoanQueryService struct {
	reader LoanReader
	log    *logger.Logger
}

func NewLoanQueryService(reader LoanReader, log *logger.Logger) *LoanQueryService {
	return &LoanQueryService{reader: reader, log: log.With("component", "LoanQueryService")}
}

func (s *LoanQueryService) FetchLoan(ctx context.Context, q cqrs.FetchLoanQuery) (*models.Loan, error) {
	s.log.Debug("fetching loan", "correlationId", q.CorrelationID)
	return s.reader.FindByMobileNumber(ctx, q.MobileNumber)
}
