package models

import "time"

// PaymentStatus is the state of a payment record.
type PaymentStatus string

// Payment states. Only pending moves: to verified or to expired.
// Cancelled is part of the stored enum but no operation produces it.
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentVerified  PaymentStatus = "verified"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
)

// Payment methods.
const (
	MethodQRIS    = "qris"
	MethodBRI     = "bri"
	MethodMandiri = "mandiri"
)

// PaymentMethods lists the accepted methods.
var PaymentMethods = []string{MethodQRIS, MethodBRI, MethodMandiri}

// ValidPaymentMethod reports whether m is an accepted method.
func ValidPaymentMethod(m string) bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// Payment is a request to buy a paid plan. Amount is the plan price at the
// moment the record was created.
type Payment struct {
	ID         int64             `json:"-"`
	PaymentID  string            `json:"paymentId"`
	UserID     string            `json:"userId"`
	Plan       string            `json:"plan"`
	Amount     int64             `json:"amount"`
	Method     string            `json:"paymentMethod"`
	Status     PaymentStatus     `json:"status"`
	VerifiedAt *time.Time        `json:"verifiedAt,omitempty"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// IsPending reports whether the payment can still be verified.
func (p *Payment) IsPending() bool {
	return p.Status == PaymentPending
}
