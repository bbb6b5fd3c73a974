// Package password wraps bcrypt for hashing and checking account passwords.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by CompareHash when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// GetHash returns the bcrypt hash of password using the given cost.
// A cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func GetHash(password string, cost int) (string, error) {
	const op = "password.GetHash"
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash checks externalPassword against originalHash.
//
// It returns nil on a match and an error wrapping ErrMismatch otherwise.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
