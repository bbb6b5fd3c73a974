// Package sender turns lifecycle events into plain-text e-mails.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/lib/smtp"
	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/plan"
)

var wib = time.FixedZone("WIB", 7*60*60)

const dateLayout = "02-01-2006 15:04 WIB"

// Service sends notification e-mails through an SMTP transport.
type Service struct {
	transport smtp.TransportInterface
	catalog   *plan.Catalog
	log       *slog.Logger
}

// NewService creates a Service. catalog supplies plan display names.
func NewService(transport smtp.TransportInterface, catalog *plan.Catalog, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		catalog:   catalog,
		log:       log,
	}
}

// HandlePaymentCreated mails payment instructions. Undecodable bodies are dropped.
func (s *Service) HandlePaymentCreated(_ context.Context, body []byte) error {
	var e models.PaymentCreatedEvent
	if !s.decode(models.EventPaymentCreated, body, &e) {
		return nil
	}

	text := fmt.Sprintf("Halo %s,\r\n\r\n"+
		"Pembayaran %s untuk paket %s telah dibuat.\r\n"+
		"Jumlah: %s\r\n"+
		"Metode: %s\r\n"+
		"Selesaikan pembayaran sebelum %s.\r\n\r\n"+
		"Terima kasih,\r\nNusaPalma",
		e.Name, e.PaymentID, s.planName(e.Plan), FormatRupiah(e.Amount),
		strings.ToUpper(e.Method), e.ExpiresAt.In(wib).Format(dateLayout))
	return s.sendEmail([]string{e.Email}, "Menunggu pembayaran "+e.PaymentID, text)
}

// HandleSubscriptionActivated confirms an activated plan.
func (s *Service) HandleSubscriptionActivated(_ context.Context, body []byte) error {
	var e models.SubscriptionActivatedEvent
	if !s.decode(models.EventSubscriptionActivated, body, &e) {
		return nil
	}

	until := "tanpa batas waktu"
	if e.EndDate != nil {
		until = "hingga " + e.EndDate.In(wib).Format(dateLayout)
	}
	text := fmt.Sprintf("Halo %s,\r\n\r\n"+
		"Langganan paket %s Anda telah aktif %s.\r\n\r\n"+
		"Terima kasih,\r\nNusaPalma",
		e.Name, s.planName(e.Plan), until)
	return s.sendEmail([]string{e.Email}, "Langganan "+s.planName(e.Plan)+" aktif", text)
}

// HandleSubscriptionExpiring reminds a user that their plan ends soon.
func (s *Service) HandleSubscriptionExpiring(_ context.Context, body []byte) error {
	var e models.SubscriptionExpiringEvent
	if !s.decode(models.EventSubscriptionExpiring, body, &e) {
		return nil
	}

	text := fmt.Sprintf("Halo %s,\r\n\r\n"+
		"Langganan paket %s Anda berakhir pada %s.\r\n"+
		"Perpanjang langganan agar tetap dapat menggunakan semua fitur.\r\n\r\n"+
		"Terima kasih,\r\nNusaPalma",
		e.Name, s.planName(e.Plan), e.EndDate.In(wib).Format(dateLayout))
	return s.sendEmail([]string{e.Email}, "Langganan Anda akan segera berakhir", text)
}

// decode reports whether body is a usable event. A bad message is logged and
// acknowledged so it does not loop through the queue.
func (s *Service) decode(key string, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("routing_key", key), sl.Err(err))
		return false
	}
	return true
}

func (s *Service) planName(key string) string {
	if s.catalog == nil {
		return key
	}
	p, err := s.catalog.Get(key)
	if err != nil {
		return key
	}
	return p.Name
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	const op = "sender.sendEmail"
	log := s.log.With(sl.Op(op))

	if len(to) == 0 || to[0] == "" {
		log.Warn("event without recipient, skipping", slog.String("subject", subject))
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.transport.GetFrom(),
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	from := s.transport.GetSMTPUser()
	if err := client.Mail(from); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		log.Error("failed to close data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email sent", slog.Any("to", to), slog.String("subject", subject))
	return nil
}

// FormatRupiah renders an amount as "Rp 100.000".
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "Rp " + b.String()
}
