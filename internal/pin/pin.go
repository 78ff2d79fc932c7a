// Package pin hashes and verifies wallet spending PINs. PINs are
// short numeric secrets, so a deliberately slow salted hash is
// non-negotiable. Rate limiting of attempts belongs to the request
// layer, not here.
package pin

import (
	"github.com/kobofi/kobopay/internal/apperror"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = 12

const Length = 4

// Validate checks that the candidate is exactly 4 ASCII digits.
func Validate(candidate string) error {
	if len(candidate) != Length {
		return apperror.Validation("PIN must be exactly 4 digits")
	}

	for _, c := range candidate {
		if c < '0' || c > '9' {
			return apperror.Validation("PIN must contain only digits")
		}
	}

	return nil
}

func Hash(plaintext string) (string, error) {
	if err := Validate(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", err
	}

	return string(hashed), nil
}

// Matches compares a candidate PIN against a stored hash. A mismatch
// returns (false, nil); only unexpected hash failures return an error.
func Matches(candidate, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case err == bcrypt.ErrMismatchedHashAndPassword:
		return false, nil
	default:
		return false, err
	}
}
