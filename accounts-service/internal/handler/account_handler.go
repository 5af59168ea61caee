package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/digibank/accounts-service/internal/query"
	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/models"
)

// AccountQuerier defines the read operations used by AccountHandler.
type AccountQuerier interface {
	FetchAccount(context.Context, cqrs.FetchAccountQuery) (*models.CustomerAccountView, error)
}

// CustomerDetailsQuerier builds the composite customer view.
type CustomerDetailsQuerier interface {
	FetchCustomerDetails(context.Context, cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accounts AccountQuerier
	details  CustomerDetailsQuerier
	log      *logger.Logger
}

type MobileNumberRequest struct {
	MobileNumber string `form:"mobileNumber" validate:"required,len=10,numeric"`
}

func NewAccountHandler(accounts AccountQuerier, details CustomerDetailsQuerier, log *logger.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, details: details, log: log}
}

func (h *AccountHandler) FetchAccount(c *gin.Context) {
	req, ok := bindMobileNumber(c)
	if !ok {
		return
	}

	view, err := h.accounts.FetchAccount(c.Request.Context(), cqrs.FetchAccountQuery{MobileNumber: req.MobileNumber})
	if err != nil {
		h.respondWithQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) FetchCustomerDetails(c *gin.Context) {
	req, ok := bindMobileNumber(c)
	if !ok {
		return
	}

	tc := middleware.GetTraceContext(c)
	h.log.Debug("fetchCustomerDetails started", "correlationId", tc.CorrelationID)

	details, err := h.details.FetchCustomerDetails(c.Request.Context(), cqrs.FetchCustomerDetailsQuery{
		MobileNumber: req.MobileNumber,
		Trace:        tc,
	})
	if err != nil {
		h.respondWithQueryError(c, err)
		return
	}

	h.log.Debug("fetchCustomerDetails completed", "correlationId", tc.CorrelationID)
	c.JSON(http.StatusOK, details)
}

func bindMobileNumber(c *gin.Context) (MobileNumberRequest, bool) {
	var req MobileNumberRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return req, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return req, false
	}
	return req, true
}

func (h *AccountHandler) respondWithQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, query.ErrCustomerNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Customer not found")
	case errors.Is(err, query.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	default:
		h.log.Error("account query failed", "path", c.Request.URL.Path, "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch account")
	}
}
