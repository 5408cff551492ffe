package handlers

import (
	"errors"
	"net/http"

	"github.com/openshelf/openshelf/internal/models"
	pkgauth "github.com/openshelf/openshelf/pkg/auth"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// writeServiceError maps service sentinel errors onto HTTP responses so
// every handler reports the same status for the same failure.
func writeServiceError(w http.ResponseWriter, err error) {
	var passwordErr *pkgauth.PasswordValidationError
	if errors.As(err, &passwordErr) {
		pkghttp.WriteBadRequest(w, passwordErr.Error())
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "invalid credentials")
	case errors.Is(err, models.ErrAccountPending):
		pkghttp.WriteForbidden(w, "account is pending activation")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteForbidden(w, "account is inactive")
	case errors.Is(err, models.ErrAccountExpired):
		pkghttp.WriteForbidden(w, "account access has expired")
	case errors.Is(err, models.ErrTokenInvalid):
		pkghttp.WriteError(w, http.StatusUnprocessableEntity, "token_invalid", "token is invalid")
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteError(w, http.StatusUnprocessableEntity, "token_expired", "token has expired")
	case errors.Is(err, models.ErrTokenUsed):
		pkghttp.WriteError(w, http.StatusUnprocessableEntity, "token_used", "token has already been used")
	case errors.Is(err, models.ErrPlanInactive):
		pkghttp.WriteError(w, http.StatusUnprocessableEntity, "plan_inactive", "pricing plan is not available")
	case errors.Is(err, models.ErrPlanReferenced):
		pkghttp.WriteConflict(w, "plan is referenced by existing users or payments")
	case errors.Is(err, models.ErrProviderUnavailable):
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "provider_unavailable", "payment provider is not available")
	case errors.Is(err, models.ErrProviderFailure):
		pkghttp.WriteBadGateway(w, "payment provider request failed")
	case errors.Is(err, models.ErrWebhookSignature):
		pkghttp.WriteUnauthorized(w, "signature verification failed")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
