package models

import "time"

// Routing keys of lifecycle events on the events exchange.
const (
	EventPaymentCreated        = "payment.created"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionExpiring  = "subscription.expiring"
)

// PaymentCreatedEvent is published after a payment is recorded.
type PaymentCreatedEvent struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PaymentID string    `json:"paymentId"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SubscriptionActivatedEvent is published after a tier is written onto a user.
type SubscriptionActivatedEvent struct {
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Plan      string     `json:"plan"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	PaymentID string     `json:"paymentId,omitempty"`
}

// SubscriptionExpiringEvent is published by the reminder job.
type SubscriptionExpiringEvent struct {
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Plan    string    `json:"plan"`
	EndDate time.Time `json:"endDate"`
}
