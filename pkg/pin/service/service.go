// Package service implements the PIN gate: a per-session state machine over
// the persisted PIN credential. Setting a PIN verifies the current session by
// definition; a failed verification leaves the session unverified and retry
// is permitted.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crypvault/wallet-api/internal/metrics"
	apperrors "github.com/crypvault/wallet-api/pkg/app/errors"
	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/credstore"
	"github.com/crypvault/wallet-api/pkg/pin"
)

// pinLength is the required credential length: exactly 6 ASCII digits.
const pinLength = 6

var (
	ErrInvalidPin  = errors.New("PIN must be exactly 6 digits")
	ErrPinNotSet   = errors.New("PIN not set")
	ErrWrongOldPin = errors.New("old PIN is incorrect")
)

// Service defines the PIN gate business logic. Operations take the full
// principal: the credential is keyed by the user id, verification state by
// the token session, so a fresh login starts unverified.
type Service interface {
	Status(ctx context.Context, p *auth.Principal) (pin.Status, error)
	SetPin(ctx context.Context, p *auth.Principal, rawPin string) error
	VerifyPin(ctx context.Context, p *auth.Principal, rawPin string) (*pin.VerifyResult, error)
	ChangePin(ctx context.Context, p *auth.Principal, oldPin, newPin string) error
	RemovePin(ctx context.Context, p *auth.Principal) error
	IsVerified(p *auth.Principal) bool
	Lock(p *auth.Principal)
}

type gateService struct {
	store  credstore.Store
	logger *zap.Logger

	mu sync.Mutex
	// verified maps a session key to the token expiry; entries past their
	// expiry count as unverified and are dropped on sight.
	verified map[string]time.Time
}

// NewService creates a new PIN gate service. Session verification state is
// held in memory only, keyed by the token session: it resets on restart, on
// Lock, and whenever a new token is issued.
func NewService(store credstore.Store, logger *zap.Logger) Service {
	return &gateService{
		store:    store,
		logger:   logger,
		verified: make(map[string]time.Time),
	}
}

// validPinFormat reports whether rawPin is exactly 6 ASCII digits.
func validPinFormat(rawPin string) bool {
	if len(rawPin) != pinLength {
		return false
	}
	for i := 0; i < len(rawPin); i++ {
		if rawPin[i] < '0' || rawPin[i] > '9' {
			return false
		}
	}
	return true
}

// sessionKey scopes the verified flag to one user's one token.
func sessionKey(p *auth.Principal) string {
	return p.ID.String() + ":" + p.SessionID
}

func (s *gateService) Status(ctx context.Context, p *auth.Principal) (pin.Status, error) {
	exists, err := s.store.Exists(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check credential: %w", err)
	}
	if !exists {
		return pin.StatusNoCredential, nil
	}
	if s.IsVerified(p) {
		return pin.StatusSetVerified, nil
	}
	return pin.StatusSetUnverified, nil
}

func (s *gateService) SetPin(ctx context.Context, p *auth.Principal, rawPin string) error {
	if !validPinFormat(rawPin) {
		return apperrors.BadRequestError(ErrInvalidPin, "PIN must be exactly 6 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}

	// Upsert: a prior credential is replaced, never versioned.
	if err := s.store.Upsert(ctx, p.ID, hash); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.setVerified(p, true)
	s.logger.Info("PIN credential set", zap.String("user_id", p.ID.String()))
	return nil
}

// VerifyPin fails closed: an unset credential or a malformed PIN yields an
// unverified result, never an error.
func (s *gateService) VerifyPin(ctx context.Context, p *auth.Principal, rawPin string) (*pin.VerifyResult, error) {
	if !validPinFormat(rawPin) {
		metrics.PinVerificationsTotal.WithLabelValues("invalid_format").Inc()
		return &pin.VerifyResult{Verified: false, Reason: ErrInvalidPin.Error()}, nil
	}

	hash, err := s.store.Get(ctx, p.ID)
	if err != nil {
		if errors.Is(err, credstore.ErrCredentialNotFound) {
			metrics.PinVerificationsTotal.WithLabelValues("not_set").Inc()
			return &pin.VerifyResult{Verified: false, Reason: ErrPinNotSet.Error()}, nil
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	// bcrypt comparison is constant-time over the derived hash.
	if err := bcrypt.CompareHashAndPassword(hash, []byte(rawPin)); err != nil {
		metrics.PinVerificationsTotal.WithLabelValues("mismatch").Inc()
		return &pin.VerifyResult{Verified: false, Reason: "wrong PIN"}, nil
	}

	s.setVerified(p, true)
	metrics.PinVerificationsTotal.WithLabelValues("success").Inc()
	return &pin.VerifyResult{Verified: true}, nil
}

func (s *gateService) ChangePin(ctx context.Context, p *auth.Principal, oldPin, newPin string) error {
	result, err := s.VerifyPin(ctx, p, oldPin)
	if err != nil {
		return err
	}
	if !result.Verified {
		return apperrors.UnAuthorizedError(ErrWrongOldPin, "old PIN is incorrect")
	}
	return s.SetPin(ctx, p, newPin)
}

// RemovePin deletes the credential and drops session verification.
// Idempotent: removing an unset PIN is not an error.
func (s *gateService) RemovePin(ctx context.Context, p *auth.Principal) error {
	if err := s.store.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	s.setVerified(p, false)
	s.logger.Info("PIN credential removed", zap.String("user_id", p.ID.String()))
	return nil
}

// IsVerified reports whether this token's session has passed the gate.
// A flag outliving its token counts as unverified.
func (s *gateService) IsVerified(p *auth.Principal) bool {
	key := sessionKey(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.verified[key]
	if !ok {
		return false
	}
	if !expiry.IsZero() && !time.Now().Before(expiry) {
		delete(s.verified, key)
		return false
	}
	return true
}

// Lock clears the session verification flag, forcing re-verification on the
// next gated operation with the same token.
func (s *gateService) Lock(p *auth.Principal) {
	s.setVerified(p, false)
}

func (s *gateService) setVerified(p *auth.Principal, v bool) {
	key := sessionKey(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.verified[key] = p.ExpiresAt
	} else {
		delete(s.verified, key)
	}
}
