package paymentlist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListPayments(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	if res := args.Get(0); res != nil {
		return res.([]models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paging := config.Pagination{DefaultLimit: 10, MaxLimit: 50}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "defaults",
			query: "",
			setupMock: func(m *MockService) {
				m.On("ListPayments", mock.Anything, "u-1", 10, 0).
					Return([]models.Payment{{PaymentID: "PAY-1-1"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"paymentId":"PAY-1-1"`,
		},
		{
			name:  "limit is capped",
			query: "?limit=500&offset=20",
			setupMock: func(m *MockService) {
				m.On("ListPayments", mock.Anything, "u-1", 50, 20).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"payments":[]`,
		},
		{
			name:           "bad limit",
			query:          "?limit=abc",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   MsgInvalidPaging,
		},
		{
			name:           "negative offset",
			query:          "?offset=-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   MsgInvalidPaging,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/subscription/payments"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithUser(req.Context(), &models.User{ID: "u-1"}))
			rr := httptest.NewRecorder()
			New(logger, svc, paging).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
