package query

import (
	"context"

	"github.com/eaglebank/digibank/shared/models"
	"github.com/eaglebank/digibank/shared/resilience"
	"github.com/eaglebank/digibank/shared/tracing"
)

// Satellite is one downstream domain folded into the customer details. Fetch
// never fails: it reports the outcome status and, when a record was found, a
// function that writes it into the composite.
type Satellite interface {
	Domain() string
	Fetch(ctx context.Context, mobileNumber string, tc tracing.Context) (resilience.Status, func(*models.CustomerDetails))
}

type clientSatellite[T any] struct {
	domain string
	client *resilience.Client[T]
	merge  func(*models.CustomerDetails, T)
}

// NewSatellite binds a resilient client to the field of the composite it fills.
func NewSatellite[T any](domain string, client *resilience.Client[T], merge func(*models.CustomerDetails, T)) Satellite {
	return &clientSatellite[T]{domain: domain, client: client, merge: merge}
}

func (s *clientSatellite[T]) Domain() string {
	return s.domain
}

func (s *clientSatellite[T]) Fetch(ctx context.Context, mobileNumber string, tc tracing.Context) (resilience.Status, func(*models.CustomerDetails)) {
	out := s.client.Call(ctx, mobileNumber, tc)
	if out.Status != resilience.StatusFound {
		return out.Status, nil
	}
	return out.Status, func(d *models.CustomerDetails) {
		s.merge(d, out.Record)
	}
}

// LoansSatellite fills CustomerDetails.Loan.
func LoansSatellite(client *resilience.Client[models.Loan]) Satellite {
	return NewSatellite("loans", client, func(d *models.CustomerDetails, loan models.Loan) {
		d.Loan = &loan
	})
}

// CardsSatellite fills CustomerDetails.Card.
func CardsSatellite(client *resilience.Client[models.Card]) Satellite {
	return NewSatellite("cards", client, func(d *models.CustomerDetails, card models.Card) {
		d.Card = &card
	})
}
