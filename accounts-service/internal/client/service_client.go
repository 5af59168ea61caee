// Package client calls the loans and cards services on behalf of the
// customer details aggregation.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/eaglebank/digibank/shared/models"
	"github.com/eaglebank/digibank/shared/registry"
	"github.com/eaglebank/digibank/shared/resilience"
	"github.com/eaglebank/digibank/shared/tracing"
)

const (
	LoansService = "LOANS"
	CardsService = "CARDS"

	fetchPath = "/api/fetch"
)

// ServiceFetcher fetches one record of type T by mobile number from a logical
// service, resolving a fresh instance for every call.
type ServiceFetcher[T any] struct {
	service  string
	path     string
	resolver registry.Resolver
	http     *http.Client
}

func NewServiceFetcher[T any](service, path string, resolver registry.Resolver, httpClient *http.Client) *ServiceFetcher[T] {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServiceFetcher[T]{service: service, path: path, resolver: resolver, http: httpClient}
}

func NewLoansFetcher(resolver registry.Resolver, httpClient *http.Client) *ServiceFetcher[models.Loan] {
	return NewServiceFetcher[models.Loan](LoansService, fetchPath, resolver, httpClient)
}

func NewCardsFetcher(resolver registry.Resolver, httpClient *http.Client) *ServiceFetcher[models.Card] {
	return NewServiceFetcher[models.Card](CardsService, fetchPath, resolver, httpClient)
}

// Fetch returns resilience.ErrNotFound when the service answers 404 and an
// error for any other non-2xx status.
func (f *ServiceFetcher[T]) Fetch(ctx context.Context, mobileNumber string, tc tracing.Context) (T, error) {
	var out T

	inst, err := f.resolver.Resolve(ctx, f.service)
	if err != nil {
		return out, err
	}

	target := inst.BaseURL() + f.path + "?mobileNumber=" + url.QueryEscape(mobileNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	tracing.Inject(ctx, tc, req.Header)

	resp, err := f.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s request failed: %w", f.service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("%s response read failed: %w", f.service, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return out, fmt.Errorf("%s has no record for %s: %w", f.service, mobileNumber, resilience.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return out, fmt.Errorf("%s returned status %d", f.service, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s response decode failed: %w", f.service, err)
	}
	return out, nil
}
