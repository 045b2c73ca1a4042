package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/winefeed/winefeed-api/internal/domain"
	"go.uber.org/zap"
)

// Middleware authenticates requests and attaches the user context
type Middleware struct {
	validator *TokenValidator
	logger    *zap.Logger
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(validator *TokenValidator, logger *zap.Logger) *Middleware {
	return &Middleware{validator: validator, logger: logger}
}

// RequireAuth validates the bearer token and injects the (user, tenant) pair
// into the request context. Requests without a valid token never reach the
// core operations.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.unauthorized(w, "invalid authorization header format")
			return
		}

		user, err := m.validator.Validate(parts[1])
		if err != nil {
			m.logger.Debug("token validation failed", zap.Error(err))
			m.unauthorized(w, "invalid or expired token")
			return
		}

		ctx := WithUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeUnauthorized,
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: detail,
	})
}
