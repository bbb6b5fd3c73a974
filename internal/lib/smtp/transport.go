package smtp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// ErrNoStartTLS is returned when the server does not offer STARTTLS.
var ErrNoStartTLS = errors.New("smtp server does not support STARTTLS")

// Transport dials the configured SMTP server.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error        { return w.client.Mail(from) }
func (w *smtpClientWrapper) Rcpt(to string) error          { return w.client.Rcpt(to) }
func (w *smtpClientWrapper) Data() (io.WriteCloser, error) { return w.client.Data() }
func (w *smtpClientWrapper) Quit() error                   { return w.client.Quit() }
func (w *smtpClientWrapper) Close() error                  { return w.client.Close() }

// NewTransport returns a Transport for cfg.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect dials the server, upgrades with STARTTLS and authenticates.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: new client: %w", op, err)
	}

	fail := func(err error) (Client, error) {
		if closeErr := client.Close(); closeErr != nil {
			t.log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fail(ErrNoStartTLS)
	}
	if err = client.StartTLS(&tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return fail(fmt.Errorf("start tls: %w", err))
	}
	if t.cfg.User != "" {
		if err = client.Auth(smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)); err != nil {
			return fail(fmt.Errorf("auth: %w", err))
		}
	}

	return &smtpClientWrapper{client: client}, nil
}

// GetSMTPUser returns the envelope sender.
func (t *Transport) GetSMTPUser() string {
	if t.cfg.User != "" {
		return t.cfg.User
	}
	if addr, err := mail.ParseAddress(t.cfg.From); err == nil {
		return addr.Address
	}
	return t.cfg.From
}

// GetFrom returns the From header value.
func (t *Transport) GetFrom() string {
	return t.cfg.From
}
