package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/crypvault/wallet-api/pkg/app/errors"
	apphttp "github.com/crypvault/wallet-api/pkg/app/http"
)

// Middleware returns a chi-compatible middleware that validates the bearer
// token and places the principal into the request context. Requests without
// a valid token are rejected with 401.
func Middleware(validator *JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing bearer token"))
				return
			}

			principal, err := validator.ValidateToken(tokenString)
			if err != nil {
				logger.Debug("token validation failed", zap.Error(err))
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
