package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nusapalma/nusapalma/internal/lib/smtp"
	"github.com/nusapalma/nusapalma/internal/plan"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTransport) GetFrom() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// expectDelivery wires a full successful SMTP exchange whose message must contain every fragment.
func expectDelivery(tr *MockTransport, to string, fragments ...string) {
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)

	tr.On("GetFrom").Return("NusaPalma <no-reply@nusapalma.id>")
	tr.On("GetSMTPUser").Return("no-reply@nusapalma.id")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", "no-reply@nusapalma.id").Return(nil).Once()
	client.On("Rcpt", to).Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	writer.On("Write", mock.MatchedBy(func(p []byte) bool {
		msg := string(p)
		for _, f := range fragments {
			if !strings.Contains(msg, f) {
				return false
			}
		}
		return true
	})).Return(100, nil).Once()
	writer.On("Close").Return(nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
}

func TestService_HandlePaymentCreated(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success",
			body: `{"email":"budi@example.com","name":"Budi","paymentId":"PAY-1741600000000-42","plan":"premium","amount":100000,"method":"bri","expiresAt":"2025-03-11T08:00:00Z"}`,
			setupMocks: func(tr *MockTransport) {
				expectDelivery(tr, "budi@example.com",
					"From: NusaPalma <no-reply@nusapalma.id>",
					"To: budi@example.com",
					"Subject: Menunggu pembayaran PAY-1741600000000-42",
					"Rp 100.000",
					"paket Premium",
					"BRI",
					"11-03-2025 15:00 WIB",
				)
			},
		},
		{
			name:       "invalid JSON is dropped",
			body:       `invalid json`,
			setupMocks: func(_ *MockTransport) {},
		},
		{
			name: "SMTP connection error",
			body: `{"email":"budi@example.com","name":"Budi","paymentId":"PAY-1-1","plan":"basic","amount":50000,"method":"qris","expiresAt":"2025-03-11T08:00:00Z"}`,
			setupMocks: func(tr *MockTransport) {
				tr.On("GetFrom").Return("no-reply@nusapalma.id")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
		{
			name:       "missing recipient",
			body:       `{"name":"Budi","paymentId":"PAY-1-1","plan":"basic","amount":50000,"method":"qris","expiresAt":"2025-03-11T08:00:00Z"}`,
			setupMocks: func(_ *MockTransport) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewService(transport, plan.MustDefault(), newNoopLogger())
			tt.setupMocks(transport)

			err := service.HandlePaymentCreated(context.Background(), []byte(tt.body))
			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
			}
			transport.AssertExpectations(t)
		})
	}
}

func TestService_HandleSubscriptionActivated(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		fragments []string
	}{
		{
			name:      "timed plan",
			body:      `{"email":"budi@example.com","name":"Budi","plan":"basic","startDate":"2025-03-10T08:00:00Z","endDate":"2025-04-09T08:00:00Z","paymentId":"PAY-1-1"}`,
			fragments: []string{"Subject: Langganan Basic aktif", "hingga 09-04-2025 15:00 WIB"},
		},
		{
			name:      "unlimited plan",
			body:      `{"email":"budi@example.com","name":"Budi","plan":"free","startDate":"2025-03-10T08:00:00Z","endDate":null}`,
			fragments: []string{"paket Gratis", "tanpa batas waktu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			expectDelivery(transport, "budi@example.com", tt.fragments...)
			service := NewService(transport, plan.MustDefault(), newNoopLogger())

			assert.NoError(t, service.HandleSubscriptionActivated(context.Background(), []byte(tt.body)))
			transport.AssertExpectations(t)
		})
	}
}

func TestService_HandleSubscriptionExpiring(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		transport := new(MockTransport)
		expectDelivery(transport, "siti@example.com", "paket Enterprise", "berakhir pada 11-03-2025 07:00 WIB")
		service := NewService(transport, plan.MustDefault(), newNoopLogger())

		body := `{"email":"siti@example.com","name":"Siti","plan":"enterprise","endDate":"2025-03-11T00:00:00Z"}`
		assert.NoError(t, service.HandleSubscriptionExpiring(context.Background(), []byte(body)))
		transport.AssertExpectations(t)
	})

	t.Run("rcpt rejected", func(t *testing.T) {
		transport := new(MockTransport)
		client := new(MockSMTPClient)
		transport.On("GetFrom").Return("no-reply@nusapalma.id")
		transport.On("GetSMTPUser").Return("no-reply@nusapalma.id")
		transport.On("Connect").Return(client, nil).Once()
		client.On("Mail", "no-reply@nusapalma.id").Return(nil).Once()
		client.On("Rcpt", "siti@example.com").Return(errors.New("550 mailbox unavailable")).Once()
		client.On("Close").Return(nil).Once()
		service := NewService(transport, plan.MustDefault(), newNoopLogger())

		body := `{"email":"siti@example.com","name":"Siti","plan":"unknown","endDate":"2025-03-11T00:00:00Z"}`
		err := service.HandleSubscriptionExpiring(context.Background(), []byte(body))
		assert.ErrorContains(t, err, "550")
		client.AssertExpectations(t)
	})
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int64]string{
		0:       "Rp 0",
		500:     "Rp 500",
		50000:   "Rp 50.000",
		250000:  "Rp 250.000",
		1000000: "Rp 1.000.000",
		-1500:   "-Rp 1.500",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatRupiah(in))
	}
}
