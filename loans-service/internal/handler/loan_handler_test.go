package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/eaglebank/digibank/loans-service/internal/query"
	"github.com/eaglebank/digibank/loans-service/internal/repository"
	"github.com/eaglebank/digibank/shared/cqrs"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/models"
	"github.com/eaglebank/digibank/shared/tracing"
)

type mockLoanReader struct {
	findFn func(ctx context.Context, mobileNumber string) (*models.Loan, error)
}

func (m *mockLoanReader) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Loan, error) {
	if m.findFn != nil {
		return m.findFn(ctx, mobileNumber)
	}
	return nil, fmt.Errorf("not configured")
}

type capturingQuerier struct {
	LoanQuerier
	last cqrs.FetchLoanQuery
}

func (c *capturingQuerier) FetchLoan(ctx context.Context, q cqrs.FetchLoanQuery) (*models.Loan, error) {
	c.last = q
	return c.LoanQuerier.FetchLoan(ctx, q)
}

func newLoanTestRouter(queries LoanQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationMiddleware())
	h := NewLoanHandler(queries, logger.NewNop())
	r.GET("/api/fetch", h.FetchLoan)
	return r
}

var aTestLoan = &models.Loan{
	MobileNumber: "5550100123", LoanNumber: "LN-1", LoanType: "Home Loan",
	TotalLoan: 100000, AmountPaid: 2500, OutstandingAmount: 97500,
}

func TestFetchLoan(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		findFn         func(ctx context.Context, mobileNumber string) (*models.Loan, error)
		expectedStatus int
	}{
		{
			name: "success - fetch loan",
			url:  "/api/fetch?mobileNumber=5550100123",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Loan, error) {
				return aTestLoan, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found - no loan for mobile number",
			url:  "/api/fetch?mobileNumber=0000000000",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Loan, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad request - invalid mobile number",
			url:            "/api/fetch?mobileNumber=12ab",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - store failure",
			url:  "/api/fetch?mobileNumber=5550100123",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Loan, error) {
				return nil, errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := query.NewLoanQueryService(&mockLoanReader{findFn: tt.findFn}, logger.NewNop())
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			newLoanTestRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"mobileNumber":"5550100123","loanNumber":"LN-1","loanType":"Home Loan","totalLoan":100000,"amountPaid":2500,"outstandingAmount":97500}`, w.Body.String())
			}
		})
	}
}

func TestFetchLoanCarriesCorrelationID(t *testing.T) {
	q := &capturingQuerier{LoanQuerier: query.NewLoanQueryService(&mockLoanReader{
		findFn: func(ctx context.Context, mobileNumber string) (*models.Loan, error) { return aTestLoan, nil },
	}, logger.NewNop())}

	req, _ := http.NewRequest(http.MethodGet, "/api/fetch?mobileNumber=5550100123", nil)
	req.Header.Set(tracing.CorrelationHeader, "corr-loans")
	w := httptest.NewRecorder()
	newLoanTestRouter(q).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "corr-loans", q.last.CorrelationID)
	assert.Equal(t, "corr-loans", w.Header().Get(tracing.CorrelationHeader))
}
