package subscription

import (
	"context"

	"github.com/nusapalma/nusapalma/internal/models"
)

// PaymentVerifier confirms that a pending payment was actually paid.
// A returned error aborts verification and leaves the payment pending.
type PaymentVerifier interface {
	Verify(ctx context.Context, p *models.Payment) error
}

// ManualVerifier accepts every payment. Confirmation happens out of band:
// the owner of the payment asserts it by calling verify.
type ManualVerifier struct{}

// Verify always succeeds.
func (ManualVerifier) Verify(context.Context, *models.Payment) error {
	return nil
}
