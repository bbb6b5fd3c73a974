// Package smtp opens authenticated STARTTLS sessions to the outgoing mail server.
package smtp

import "io"

// Client is the part of *smtp.Client used to send one message.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface opens SMTP sessions.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
	GetFrom() string
}
