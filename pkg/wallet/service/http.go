package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/crypvault/wallet-api/pkg/app/errors"
	apphttp "github.com/crypvault/wallet-api/pkg/app/http"
	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/wallet"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service        Service
	validate       *validator.Validate
	testnetDisplay bool
	logger         *zap.Logger
}

// RegisterRoutes registers the wallet endpoints on the given chi router.
// All routes assume the auth middleware has already placed a principal in the
// request context. The gate middleware wraps only the balance-changing
// routes; reads stay reachable with an unverified session.
func RegisterRoutes(r chi.Router, service Service, testnetDisplay bool, gate func(http.Handler) http.Handler, logger *zap.Logger) {
	h := &HTTP{
		service:        service,
		validate:       validator.New(),
		testnetDisplay: testnetDisplay,
		logger:         logger,
	}

	r.Get("/wallet", apphttp.HandleError(h.getWallet))
	r.Get("/balance", apphttp.HandleError(h.getBalance))
	r.Get("/transactions", apphttp.HandleError(h.listTransactions))
	r.Patch("/wallet/name", apphttp.HandleError(h.updateName))

	r.Group(func(r chi.Router) {
		if gate != nil {
			r.Use(gate)
		}
		r.Post("/transfers", apphttp.HandleError(h.send))
		r.Post("/receive", apphttp.HandleError(h.receive))
		r.Post("/faucet", apphttp.HandleError(h.faucet))
	})
}

// EnsureProfileMiddleware creates the principal's wallet profile on first
// authenticated sight. Must run after the auth middleware.
func EnsureProfileMiddleware(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing principal"))
				return
			}
			if _, err := service.EnsureProfile(r.Context(), principal); err != nil {
				apphttp.DefaultErrorHandler(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *HTTP) getWallet(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	profile, err := h.service.GetWallet(r.Context(), principal.ID)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, &wallet.WalletResponse{
		WalletName:     profile.WalletName,
		DisplayAddress: wallet.DisplayAddress(profile.WalletAddress, h.testnetDisplay),
		Balance:        profile.BTCBalance.String(),
	})
}

func (h *HTTP) getBalance(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	profile, err := h.service.GetWallet(r.Context(), principal.ID)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"balance": profile.BTCBalance.String(),
	})
}

func (h *HTTP) listTransactions(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	txs, err := h.service.ListTransactions(r.Context(), principal.ID)
	if err != nil {
		return err
	}

	resp := make([]*wallet.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, wallet.NewTransactionResponse(tx))
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": resp,
	})
}

func (h *HTTP) updateName(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req wallet.UpdateNameRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.service.UpdateWalletName(r.Context(), principal.ID, req.WalletName); err != nil {
		return err
	}

	return h.getWallet(w, r)
}

func (h *HTTP) send(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req wallet.SendRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid amount")
	}

	outcome, err := h.service.SendFunds(r.Context(), principal.ID, req.RecipientAddress, amount, req.Memo)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusOK, &wallet.SendResponse{
		Transaction: wallet.NewTransactionResponse(outcome.Transaction),
		NewBalance:  outcome.NewBalance.String(),
		Warning:     outcome.Warning,
	})
}

func (h *HTTP) receive(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	var req wallet.ReceiveRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid amount")
	}

	tx, err := h.service.ReceiveFunds(r.Context(), principal.ID, amount, req.SourceAddress, req.Memo)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusCreated, wallet.NewTransactionResponse(tx))
}

func (h *HTTP) faucet(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing principal")
	}

	tx, err := h.service.CreditFaucet(r.Context(), principal.ID)
	if err != nil {
		return err
	}

	return apphttp.WriteJSON(w, http.StatusCreated, wallet.NewTransactionResponse(tx))
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
