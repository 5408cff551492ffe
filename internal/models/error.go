package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountPending  = errors.New("account is pending activation")
	ErrAccountInactive = errors.New("account is inactive")
	ErrAccountExpired  = errors.New("account access has expired")

	// Signup/invite token errors
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenUsed    = errors.New("token already used")

	// Payment errors
	ErrProviderUnavailable = errors.New("payment provider is not available")
	ErrProviderFailure     = errors.New("payment provider request failed")
	ErrWebhookSignature    = errors.New("webhook signature verification failed")
	ErrPlanInactive        = errors.New("pricing plan is not active")
	ErrPlanReferenced      = errors.New("pricing plan is referenced by payments")
)
