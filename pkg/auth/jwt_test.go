package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret-0123456789abcdef0123"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestJWTValidator_ValidToken(t *testing.T) {
	v := NewJWTValidator(testSecret, "wallet-api")
	id := uuid.New()

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":   "wallet-api",
		"sub":   id.String(),
		"email": "alice@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	principal, err := v.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if principal.ID != id {
		t.Fatalf("expected id %s, got %s", id, principal.ID)
	}
	if principal.Email != "alice@example.com" {
		t.Fatalf("expected email alice@example.com, got %s", principal.Email)
	}
}

func TestJWTValidator_SessionIdentity(t *testing.T) {
	v := NewJWTValidator(testSecret, "")
	id := uuid.New()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	// The jti claim is the session id when present.
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": id.String(),
		"jti": "token-abc",
		"exp": exp.Unix(),
	})
	principal, err := v.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if principal.SessionID != "token-abc" {
		t.Fatalf("expected session id from jti, got %q", principal.SessionID)
	}
	if !principal.ExpiresAt.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, principal.ExpiresAt)
	}

	// Without a jti the issue time distinguishes logins.
	iat := time.Now().Truncate(time.Second)
	tokenString = signToken(t, testSecret, jwt.MapClaims{
		"sub": id.String(),
		"iat": iat.Unix(),
		"exp": exp.Unix(),
	})
	principal, err = v.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	want := fmt.Sprintf("%s.%d", id, iat.Unix())
	if principal.SessionID != want {
		t.Fatalf("expected session id %q, got %q", want, principal.SessionID)
	}
}

func TestJWTValidator_WrongSecret(t *testing.T) {
	v := NewJWTValidator(testSecret, "")

	tokenString := signToken(t, "other-secret-0123456789abcdef012", jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestJWTValidator_ExpiredToken(t *testing.T) {
	v := NewJWTValidator(testSecret, "")

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTValidator_IssuerMismatch(t *testing.T) {
	v := NewJWTValidator(testSecret, "wallet-api")

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss": "someone-else",
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for issuer mismatch")
	}
}

func TestJWTValidator_SubjectNotUUID(t *testing.T) {
	v := NewJWTValidator(testSecret, "")

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for non-uuid subject")
	}
}

func TestJWTValidator_MissingSubject(t *testing.T) {
	v := NewJWTValidator(testSecret, "")

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for missing subject")
	}
}
