package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySecretPlaintext(t *testing.T) {
	if err := VerifySecret("s3cret", "s3cret", ""); err != nil {
		t.Errorf("expected matching secret to verify, got %v", err)
	}
	if err := VerifySecret("wrong", "s3cret", ""); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected ErrInvalidSecret, got %v", err)
	}
	if err := VerifySecret("", "s3cret", ""); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected empty secret to be rejected, got %v", err)
	}
	if err := VerifySecret("anything", "", ""); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected unconfigured secret to reject everything, got %v", err)
	}
}

func TestVerifySecretBcrypt(t *testing.T) {
	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	if err := VerifySecret("s3cret", "", hash); err != nil {
		t.Errorf("expected matching secret to verify against hash, got %v", err)
	}
	if err := VerifySecret("wrong", "", hash); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected ErrInvalidSecret, got %v", err)
	}

	// Hash takes precedence over a configured plaintext secret.
	if err := VerifySecret("plain", "plain", hash); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("expected hash to take precedence, got %v", err)
	}
}

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("token-secret")
	claims := Claims{
		Role: RoleAdmin,
		JTI:  "abc123",
		Exp:  time.Now().Add(time.Hour).Unix(),
	}

	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed.JTI != claims.JTI || parsed.Role != RoleAdmin {
		t.Errorf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), Claims{Role: RoleAdmin, JTI: "x", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := ParseToken([]byte("secret-b"), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("token-secret")
	token, err := IssueToken(secret, Claims{Role: RoleAdmin, JTI: "x", Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := ParseToken(secret, token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken([]byte("s"), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
