// Package jwt issues and parses the HS256 session tokens handed out at
// login, registration and OAuth login.
package jwt

import (
	"time"
)

// Maker generates and parses session tokens.
type Maker interface {
	GenerateToken(userID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with a shared secret and a fixed token lifetime.
type MakerImpl struct {
	secretKey string        // HMAC secret
	tokenTTL  time.Duration // lifetime of issued tokens
	now       func() time.Time
}

// NewJWTMaker creates a MakerImpl for the given secret and TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
