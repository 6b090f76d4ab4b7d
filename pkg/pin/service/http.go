package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/crypvault/wallet-api/pkg/app/errors"
	apphttp "github.com/crypvault/wallet-api/pkg/app/http"
	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/pin"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers the PIN gate endpoints on the given chi router.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Get("/pin", apphttp.HandleError(h.status))
	r.Post("/pin", apphttp.HandleError(h.set))
	r.Post("/pin/verify", apphttp.HandleError(h.verify))
	r.Post("/pin/lock", apphttp.HandleError(h.lock))
	r.Patch("/pin", apphttp.HandleError(h.change))
	r.Delete("/pin", apphttp.HandleError(h.remove))
}

// RequireVerified returns a middleware that blocks requests when a PIN
// credential exists and the session has not verified it. Users without a
// credential pass through: the gate is opt-in.
func RequireVerified(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing principal"))
				return
			}

			status, err := service.Status(r.Context(), principal)
			if err != nil {
				apphttp.DefaultErrorHandler(w, err)
				return
			}
			if status == pin.StatusSetUnverified {
				apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "PIN verification required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *HTTP) status(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	status, err := h.service.Status(r.Context(), principal)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, &pin.StatusResponse{Status: status})
}

func (h *HTTP) set(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req pin.SetRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.service.SetPin(r.Context(), principal, req.Pin); err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusCreated, &pin.StatusResponse{Status: pin.StatusSetVerified})
}

func (h *HTTP) verify(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req pin.VerifyRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	result, err := h.service.VerifyPin(r.Context(), principal, req.Pin)
	if err != nil {
		return err
	}

	// An unverified result is a normal 200; the body carries the outcome.
	return apphttp.WriteJSON(w, http.StatusOK, result)
}

func (h *HTTP) change(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req pin.ChangeRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.service.ChangePin(r.Context(), principal, req.OldPin, req.NewPin); err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, &pin.StatusResponse{Status: pin.StatusSetVerified})
}

func (h *HTTP) remove(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	if err := h.service.RemovePin(r.Context(), principal); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// lock drops the session's verification, re-arming the gate for this token.
func (h *HTTP) lock(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	h.service.Lock(principal)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// decode reads, unmarshals and validates a JSON request body.
func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "missing or invalid fields")
	}
	return nil
}
