package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/services"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// SignupServiceInterface defines the interface for paid signup completion
type SignupServiceInterface interface {
	Validate(ctx context.Context, tokenString string) (*services.SignupDetails, error)
	CompleteSignup(ctx context.Context, req services.SignupRequest) (*models.User, *services.TokenPair, error)
}

// SignupHandler handles post-payment account creation
type SignupHandler struct {
	service SignupServiceInterface
}

// NewSignupHandler creates a new SignupHandler
func NewSignupHandler(service SignupServiceInterface) *SignupHandler {
	return &SignupHandler{service: service}
}

// ValidateTokenRequest represents the request body for token validation
type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ValidateTokenResponse reports whether a signup token is usable and,
// when it is, what was purchased.
type ValidateTokenResponse struct {
	Valid   bool                    `json:"valid"`
	Reason  string                  `json:"reason,omitempty"`
	Details *services.SignupDetails `json:"details,omitempty"`
}

// CompleteSignupRequest represents the request body for account creation
type CompleteSignupRequest struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required"`
}

// SignupResponse bundles the new account with its first session
type SignupResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

// ValidateToken checks a signup token without consuming it. Invalid
// tokens report valid:false with a reason rather than an error status,
// so the signup page can render the outcome.
func (h *SignupHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	details, err := h.service.Validate(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenUsed):
			pkghttp.WriteJSON(w, http.StatusOK, ValidateTokenResponse{Valid: false, Reason: "used"})
		case errors.Is(err, models.ErrTokenExpired):
			pkghttp.WriteJSON(w, http.StatusOK, ValidateTokenResponse{Valid: false, Reason: "expired"})
		case errors.Is(err, models.ErrTokenInvalid):
			pkghttp.WriteJSON(w, http.StatusOK, ValidateTokenResponse{Valid: false, Reason: "invalid"})
		default:
			writeServiceError(w, err)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ValidateTokenResponse{Valid: true, Details: details})
}

// CompleteSignup consumes the token and creates the paid account
//
// @Summary Complete a paid signup
// @Accept json
// @Param request body CompleteSignupRequest true "Signup request"
// @Produce json
// @Success 201 {object} SignupResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Router /signup [post]
func (h *SignupHandler) CompleteSignup(w http.ResponseWriter, r *http.Request) {
	var req CompleteSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, pair, err := h.service.CompleteSignup(r.Context(), services.SignupRequest{
		Token:    req.Token,
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SignupResponse{
		User:         userModelToResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
