package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newProtectedServer(t *testing.T, issuer string) (*httptest.Server, chan *Principal) {
	t.Helper()

	seen := make(chan *Principal, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("expected principal in request context")
		}
		seen <- p
		w.WriteHeader(http.StatusOK)
	})

	mw := Middleware(NewJWTValidator(testSecret, issuer), zap.NewNop())
	srv := httptest.NewServer(mw(handler))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestMiddleware_MissingToken(t *testing.T) {
	srv, _ := newProtectedServer(t, "")

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMiddleware_InvalidToken(t *testing.T) {
	srv, _ := newProtectedServer(t, "")

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMiddleware_ValidTokenCarriesPrincipal(t *testing.T) {
	srv, seen := newProtectedServer(t, "wallet-api")
	id := uuid.New()

	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"iss":   "wallet-api",
		"sub":   id.String(),
		"email": "bob@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := <-seen
	if p.ID != id {
		t.Errorf("expected principal id %s, got %s", id, p.ID)
	}
	if p.Email != "bob@example.com" {
		t.Errorf("expected principal email bob@example.com, got %s", p.Email)
	}
}
