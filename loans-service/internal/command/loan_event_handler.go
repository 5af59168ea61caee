package command

import (
	"context"
	"fmt"

	"github.com/eaglebank/digibank/shared/events"
	"github.com/eaglebank/digibank/shared/logger"
)

// ViewInvalidator drops the cached loan view of one customer.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, mobileNumber string) error
}

// LoanEventHandler keeps the loan read model in step with the write side.
type LoanEventHandler struct {
	views ViewInvalidator
	log   *logger.Logger
}

func NewLoanEventHandler(views ViewInvalidator, log *logger.Logger) *LoanEventHandler {
	return &LoanEventHandler{views: views, log: log.With("component", "LoanEventHandler")}
}

func (h *LoanEventHandler) HandleLoanEvent(ctx context.Context, event events.Event) error {
	h.log.Debug("received loan event", "type", event.Type)

	if event.Type != events.LoanUpdated && event.Type != events.LoanDeleted {
		return nil
	}

	data, err := events.DecodeRecordChanged(event)
	if err != nil {
		return fmt.Errorf("failed to handle loan event: %w", err)
	}

	if err := h.views.Invalidate(ctx, data.MobileNumber); err != nil {
		return fmt.Errorf("failed to invalidate loan view: %w", err)
	}
	h.log.Info("loan view invalidated", "type", event.Type, "mobileNumber", data.MobileNumber)
	return nil
}
