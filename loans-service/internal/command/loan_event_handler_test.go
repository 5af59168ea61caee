package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eaglebank/digibank/shared/events"
	"github.com/eaglebank/digibank/shared/logger"
)

type mockInvalidator struct {
	invalidated  []string
	invalidateFn func(ctx context.Context, mobileNumber string) error
}

func (m *mockInvalidator) Invalidate(ctx context.Context, mobileNumber string) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, mobileNumber)
	}
	m.invalidated = append(m.invalidated, mobileNumber)
	return nil
}

func TestHandleLoanEvent(t *testing.T) {
	payload := json.RawMessage(`{"mobileNumber":"5550100123"}`)

	tests := []struct {
		name      string
		event     events.Event
		wantErr   bool
		wantDrops []string
	}{
		{name: "updated", event: events.Event{Type: events.LoanUpdated, Data: payload}, wantDrops: []string{"5550100123"}},
		{name: "deleted", event: events.Event{Type: events.LoanDeleted, Data: payload}, wantDrops: []string{"5550100123"}},
		{name: "unrelated type ignored", event: events.Event{Type: "something.else", Data: payload}},
		{name: "missing mobile number", event: events.Event{Type: events.LoanUpdated, Data: json.RawMessage(`{}`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := &mockInvalidator{}
			h := NewLoanEventHandler(views, logger.NewNop())

			err := h.HandleLoanEvent(context.Background(), tt.event)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantDrops, views.invalidated)
		})
	}
}

func TestHandleLoanEventInvalidationFailure(t *testing.T) {
	cacheDown := errors.New("redis: connection refused")
	views := &mockInvalidator{invalidateFn: func(ctx context.Context, mobileNumber string) error {
		return cacheDown
	}}
	h := NewLoanEventHandler(views, logger.NewNop())

	err := h.HandleLoanEvent(context.Background(), events.Event{
		Type: events.LoanUpdated,
		Data: json.RawMessage(`{"mobileNumber":"5550100123"}`),
	})

	assert.ErrorIs(t, err, cacheDown, "a failed invalidation must not be acknowledged")
}
