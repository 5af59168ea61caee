package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/digibank/loans-service/internal/repository"
	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/models"
)

type LoanQuerier interface {
	FetchLoan(context.Context, cqrs.FetchLoanQuery) (*models.Loan, error)
}

type LoanHandler struct {
	queries LoanQuerier
	log     *logger.Logger
}

type FetchLoanRequest struct {
	MobileNumber string `form:"mobileNumber" validate:"required,len=10,numeric"`
}

func NewLoanHandler(queries LoanQuerier, log *logger.Logger) *LoanHandler {
	return &LoanHandler{queries: queries, log: log}
}

func (h *LoanHandler) FetchLoan(c *gin.Context) {
	var req FetchLoanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	loan, err := h.queries.FetchLoan(c.Request.Context(), cqrs.FetchLoanQuery{
		MobileNumber:  req.MobileNumber,
		CorrelationID: middleware.GetTraceContext(c).CorrelationID,
	})
	if errors.Is(err, repository.ErrNotFound) {
		middleware.RespondWithError(c, http.StatusNotFound, "Loan not found")
		return
	}
	if err != nil {
		h.log.Error("loan fetch failed", "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch loan")
		return
	}

	c.JSON(http.StatusOK, loan)
}
