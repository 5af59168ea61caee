package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/models"
	"github.com/eaglebank/digibank/shared/resilience"
)

// CustomerDetailsService builds the composite customer view: the customer and
// account from the local store plus one record per satellite service.
type CustomerDetailsService struct {
	store      CustomerStore
	satellites []Satellite
	log        *logger.Logger
}

func NewCustomerDetailsService(store CustomerStore, satellites []Satellite, log *logger.Logger) *CustomerDetailsService {
	return &CustomerDetailsService{
		store:      store,
		satellites: satellites,
		log:        log.With("component", "CustomerDetailsService"),
	}
}

// FetchCustomerDetails fails only when the customer or their account does not
// exist, in which case no satellite is called. Satellites are queried
// concurrently and an unavailable satellite leaves its field nil and its
// availability flag false.
func (s *CustomerDetailsService) FetchCustomerDetails(ctx context.Context, q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
	customer, account, err := loadPrimary(ctx, s.store, q.MobileNumber)
	if err != nil {
		return nil, err
	}

	details := &models.CustomerDetails{
		Name:         customer.Name,
		Email:        customer.Email,
		MobileNumber: customer.MobileNumber,
		Account:      account,
		Availability: make(map[string]bool, len(s.satellites)),
	}

	type outcome struct {
		status resilience.Status
		apply  func(*models.CustomerDetails)
	}
	outcomes := make([]outcome, len(s.satellites))

	var g errgroup.Group
	for i, sat := range s.satellites {
		g.Go(func() error {
			status, apply := sat.Fetch(ctx, q.MobileNumber, q.Trace)
			outcomes[i] = outcome{status: status, apply: apply}
			return nil
		})
	}
	_ = g.Wait()

	for i, sat := range s.satellites {
		o := outcomes[i]
		details.Availability[sat.Domain()] = o.status.Available()
		if o.apply != nil {
			o.apply(details)
		}
	}

	s.log.Debug("customer details assembled",
		"correlationId", q.Trace.CorrelationID, "availability", details.Availability)
	return details, nil
}
