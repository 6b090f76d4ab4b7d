package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token fails validation for any reason.
var ErrInvalidToken = errors.New("invalid token")

// JWTValidator validates HS256 access tokens issued by the identity provider.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// ValidateToken validates a token and extracts the principal from its claims.
// The subject claim carries the principal id, the email claim the address.
func (v *JWTValidator) ValidateToken(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != v.issuer {
			return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a valid id", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return &Principal{
		ID:        id,
		Email:     email,
		SessionID: sessionID(claims, sub),
		ExpiresAt: expiresAt,
	}, nil
}

// sessionID derives a per-token identity from the claims: the jti when the
// issuer provides one, otherwise the subject plus issue time.
func sessionID(claims jwt.MapClaims, sub string) string {
	if jti, _ := claims["jti"].(string); jti != "" {
		return jti
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		return fmt.Sprintf("%s.%d", sub, iat.Unix())
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		return fmt.Sprintf("%s.%d", sub, exp.Unix())
	}
	return sub
}
