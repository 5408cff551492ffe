package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// UserFetcher loads the current user record for account-state checks
type UserFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig controls what happens when the revocation lookup
// itself fails. Fail open keeps the API available through a store
// outage; fail closed guarantees a revoked token never slips through.
type RevocationConfig struct {
	FailClosed bool
}

// Middleware validates session tokens, checks revocation (fail open),
// and enforces the account-state invariant: a user that is not active
// or whose expiry date has passed is denied regardless of a valid token.
func Middleware(tm *TokenManager, users UserFetcher, revocationChecker TokenRevocationChecker) func(next http.Handler) http.Handler {
	return MiddlewareWithRevocation(tm, users, revocationChecker, RevocationConfig{FailClosed: false})
}

// MiddlewareWithRevocation is Middleware with explicit revocation
// failure behavior.
func MiddlewareWithRevocation(tm *TokenManager, users UserFetcher, revocationChecker TokenRevocationChecker, revocationConfig RevocationConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			// Refresh tokens are only accepted by /auth/refresh
			if claims.Type == "refresh" {
				pkghttp.WriteUnauthorized(w, "refresh tokens cannot be used for API access")
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					if revocationConfig.FailClosed {
						pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "unable to verify token status")
						return
					}
					slog.Warn("revocation check failed, allowing request",
						slog.String("jti", claims.ID), slog.Any("error", err))
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "token has been revoked")
					return
				}
			}

			// Re-read the user so deactivation and expiry take effect
			// immediately, not at token expiry.
			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account no longer exists")
					return
				}
				pkghttp.WriteInternalError(w, "failed to verify account")
				return
			}

			if err := user.CanAuthenticate(); err != nil {
				switch {
				case errors.Is(err, models.ErrAccountExpired):
					pkghttp.WriteForbidden(w, "account access has expired")
				default:
					pkghttp.WriteForbidden(w, "account is not active")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates a middleware that enforces role-based access control.
// Must be mounted after Middleware.
func RequireRole(users UserFetcher, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			// Fetch the user so a role change takes effect without
			// waiting for token expiry.
			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "user not found")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if user.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from the request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// ContextWithClaims injects claims into a context (exported for tests)
func ContextWithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
