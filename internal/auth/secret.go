// Package auth guards the admin surface: a shared-secret check plus
// short-lived HMAC session tokens so the UI does not replay the raw secret
// on every edit.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidSecret = errors.New("invalid admin secret")

// VerifySecret checks a presented secret against the configured one. When a
// bcrypt hash is configured it takes precedence; otherwise the plaintext
// secret is compared in constant time.
func VerifySecret(presented, plaintext, bcryptHash string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return ErrInvalidSecret
	}
	if bcryptHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(presented)); err != nil {
			return ErrInvalidSecret
		}
		return nil
	}
	if plaintext == "" {
		return ErrInvalidSecret
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(plaintext)) != 1 {
		return ErrInvalidSecret
	}
	return nil
}

// HashSecret produces a bcrypt hash suitable for ROADMAP_ADMIN_SECRET_BCRYPT.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
