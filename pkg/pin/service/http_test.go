package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/pin"
)

// newPinTestServer builds a router with the given principal pre-injected and
// a gated probe endpoint to exercise RequireVerified.
func newPinTestServer(svc Service, principal *auth.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), principal)))
		})
	})
	RegisterRoutes(r, svc, zap.NewNop())
	r.Group(func(r chi.Router) {
		r.Use(RequireVerified(svc))
		r.Post("/gated", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPinHTTP_Lifecycle(t *testing.T) {
	svc := newTestGate()
	principal := testPrincipal()
	handler := newPinTestServer(svc, principal)

	// No credential yet.
	rec := doJSON(t, handler, http.MethodGet, "/pin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var status pin.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Status != pin.StatusNoCredential {
		t.Fatalf("expected no_credential, got %s", status.Status)
	}

	// Without a credential the gate lets requests through.
	rec = doJSON(t, handler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected gate to pass without credential, got %d", rec.Code)
	}

	// Set a PIN; the session is verified by definition.
	rec = doJSON(t, handler, http.MethodPost, "/pin", `{"pin":"123456"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected gate to pass after SetPin, got %d", rec.Code)
	}

	// Locking re-arms the gate for this token.
	rec = doJSON(t, handler, http.MethodPost, "/pin/lock", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected gate to block locked session, got %d", rec.Code)
	}

	// A wrong PIN is a 200 with an unverified body.
	rec = doJSON(t, handler, http.MethodPost, "/pin/verify", `{"pin":"654321"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var result pin.VerifyResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Verified {
		t.Fatal("expected unverified result for wrong PIN")
	}

	// The right PIN unlocks the gate.
	rec = doJSON(t, handler, http.MethodPost, "/pin/verify", `{"pin":"123456"}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Verified {
		t.Fatalf("expected verified result, got reason %q", result.Reason)
	}
	rec = doJSON(t, handler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected gate to pass after verification, got %d", rec.Code)
	}
}

func TestPinHTTP_GateBlocksNewSession(t *testing.T) {
	svc := newTestGate()
	principal := testPrincipal()
	handler := newPinTestServer(svc, principal)

	rec := doJSON(t, handler, http.MethodPost, "/pin", `{"pin":"123456"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected gate to pass in the verifying session, got %d", rec.Code)
	}

	// The same user arriving with a fresh token must re-verify.
	freshHandler := newPinTestServer(svc, relogin(principal))
	rec = doJSON(t, freshHandler, http.MethodPost, "/gated", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected gate to block a new session, got %d", rec.Code)
	}
}

func TestPinHTTP_SetRejectsBadFormat(t *testing.T) {
	svc := newTestGate()
	principal := testPrincipal()
	handler := newPinTestServer(svc, principal)

	rec := doJSON(t, handler, http.MethodPost, "/pin", `{"pin":"12ab56"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestPinHTTP_ChangeWithWrongOldPin_Returns401(t *testing.T) {
	svc := newTestGate()
	principal := testPrincipal()
	handler := newPinTestServer(svc, principal)

	doJSON(t, handler, http.MethodPost, "/pin", `{"pin":"111111"}`)

	rec := doJSON(t, handler, http.MethodPatch, "/pin", `{"old_pin":"999999","new_pin":"222222"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/pin", `{"old_pin":"111111","new_pin":"222222"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestPinHTTP_DeleteIsIdempotent(t *testing.T) {
	svc := newTestGate()
	principal := testPrincipal()
	handler := newPinTestServer(svc, principal)

	doJSON(t, handler, http.MethodPost, "/pin", `{"pin":"123456"}`)

	rec := doJSON(t, handler, http.MethodDelete, "/pin", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/pin", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected repeat delete to return %d, got %d", http.StatusNoContent, rec.Code)
	}
}
