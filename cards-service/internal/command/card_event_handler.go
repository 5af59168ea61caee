package command

import (
	"context"
	"fmt"

	"github.com/eaglebank/digibank/shared/events"
	"github.com/eaglebank/digibank/shared/logger"
)

// ViewInvalidator drops the cached card view of one customer.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, mobileNumber string) error
}

// CardEventHandler keeps the card read model in step with the write side.
type CardEventHandler struct {
	views ViewInvalidator
	log   *logger.Logger
}

func NewCardEventHandler(views ViewInvalidator, log *logger.Logger) *CardEventHandler {
	return &CardEventHandler{views: views, log: log.With("component", "CardEventHandler")}
}

func (h *CardEventHandler) HandleCardEvent(ctx context.Context, event events.Event) error {
	h.log.Debug("received card event", "type", event.Type)

	if event.Type != events.CardUpdated && event.Type != events.CardDeleted {
		return nil
	}

	data, err := events.DecodeRecordChanged(event)
	if err != nil {
		return fmt.Errorf("failed to handle card event: %w", err)
	}

	if err := h.views.Invalidate(ctx, data.MobileNumber); err != nil {
		return fmt.Errorf("failed to invalidate card view: %w", err)
	}
	h.log.Info("card view invalidated", "type", event.Type, "mobileNumber", data.MobileNumber)
	return nil
}
