package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := utils.GenerateJWT(testSecret, "8f0e1c1a-6a6b-4d4e-9d0c-2f9b1a7c3e21", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, err := utils.VerifyJWT(testSecret, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "8f0e1c1a-6a6b-4d4e-9d0c-2f9b1a7c3e21" {
		t.Errorf("unexpected subject: %s", sub)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := utils.GenerateJWT(testSecret, "user", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := utils.VerifyJWT("another-secret", token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Errorf("expected signature error, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	t.Parallel()

	// Beyond the five minute leeway
	token, err := utils.GenerateJWT(testSecret, "user", -10*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := utils.VerifyJWT(testSecret, token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected expiry error, got %v", err)
	}
}

func TestJWTMissingSubject(t *testing.T) {
	t.Parallel()

	token, err := utils.GenerateJWT(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := utils.VerifyJWT(testSecret, token); !errors.Is(err, utils.ErrMissingSubject) {
		t.Errorf("expected missing subject error, got %v", err)
	}
}

func TestJWTWrongAlgorithm(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := utils.VerifyJWT(testSecret, signed); err == nil {
		t.Error("expected error for unsigned token")
	}
}
