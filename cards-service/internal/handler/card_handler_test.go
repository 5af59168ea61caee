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

	"github.com/eaglebank/digibank/cards-service/internal/query"
	"github.com/eaglebank/digibank/cards-service/internal/repository"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/models"
)

type mockCardReader struct {
	findFn func(ctx context.Context, mobileNumber string) (*models.Card, error)
}

func (m *mockCardReader) FindByMobileNumber(ctx context.Context, mobileNumber string) (*models.Card, error) {
	if m.findFn != nil {
		return m.findFn(ctx, mobileNumber)
	}
	return nil, fmt.Errorf("not configured")
}

var aTestContact = models.CardsContactInfo{
	Message:        "Welcome to the DigiBank cards support",
	ContactDetails: map[string]string{"name": "Support Desk", "email": "cards@digibank.example"},
	OnCallSupport:  []string{"(555) 010-0001", "(555) 010-0002"},
}

func newCardTestRouter(reader query.CardReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationMiddleware())
	h := NewCardHandler(query.NewCardQueryService(reader, aTestContact, logger.NewNop()), logger.NewNop())
	api := r.Group("/api")
	api.GET("/fetch", h.FetchCard)
	api.GET("/contact-info", h.ContactInfo)
	return r
}

func TestFetchCard(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		findFn         func(ctx context.Context, mobileNumber string) (*models.Card, error)
		expectedStatus int
	}{
		{
			name: "success - fetch card",
			url:  "/api/fetch?mobileNumber=5550100123",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Card, error) {
				return &models.Card{MobileNumber: mobileNumber, CardNumber: "4111", CardType: "Credit Card", TotalLimit: 5000, AvailableAmount: 5000}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found - no card for mobile number",
			url:  "/api/fetch?mobileNumber=0000000000",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Card, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad request - missing mobile number",
			url:            "/api/fetch",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - store failure",
			url:  "/api/fetch?mobileNumber=5550100123",
			findFn: func(ctx context.Context, mobileNumber string) (*models.Card, error) {
				return nil, errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			newCardTestRouter(&mockCardReader{findFn: tt.findFn}).ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestContactInfo(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/contact-info", nil)
	newCardTestRouter(&mockCardReader{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"message": "Welcome to the DigiBank cards support",
		"contactDetails": {"name": "Support Desk", "email": "cards@digibank.example"},
		"onCallSupport": ["(555) 010-0001", "(555) 010-0002"]
	}`, w.Body.String())
}
