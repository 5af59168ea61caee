package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/digibank/cards-service/internal/repository"
	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/models"
)

type CardQuerier interface {
	FetchCard(context.Context, cqrs.FetchCardQuery) (*models.Card, error)
	ContactInfo() models.CardsContactInfo
}

type CardHandler struct {
	queries CardQuerier
	log     *logger.Logger
}

type FetchCardRequest struct {
	MobileNumber string `form:"mobileNumber" validate:"required,len=10,numeric"`
}

func NewCardHandler(queries CardQuerier, log *logger.Logger) *CardHandler {
	return &CardHandler{queries: queries, log: log}
}

func (h *CardHandler) FetchCard(c *gin.Context) {
	var req FetchCardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	card, err := h.queries.FetchCard(c.Request.Context(), cqrs.FetchCardQuery{
		MobileNumber:  req.MobileNumber,
		CorrelationID: middleware.GetTraceContext(c).CorrelationID,
	})
	if errors.Is(err, repository.ErrNotFound) {
		middleware.RespondWithError(c, http.StatusNotFound, "Card not found")
		return
	}
	if err != nil {
		h.log.Error("card fetch failed", "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch card")
		return
	}

	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) ContactInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ContactInfo())
}
