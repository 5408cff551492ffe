package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// InviteServiceInterface defines the interface for invitation flows
type InviteServiceInterface interface {
	InviteUser(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error)
	ResendInvite(ctx context.Context, userID string) error
	AcceptInvite(ctx context.Context, plainToken, password string) (*models.User, error)
}

// UserHandler handles user management HTTP requests
type UserHandler struct {
	service       UserServiceInterface
	inviteService InviteServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, inviteService InviteServiceInterface) *UserHandler {
	return &UserHandler{service: service, inviteService: inviteService}
}

// Request/Response DTOs

// InviteUserRequest represents the request body for inviting a user
type InviteUserRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,min=1"`
	Phone  string `json:"phone" validate:"omitempty,max=32"`
	PlanID string `json:"plan_id"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name      string     `json:"name" validate:"required,min=1"`
	Phone     string     `json:"phone" validate:"omitempty,max=32"`
	Role      string     `json:"role" validate:"required,oneof=user admin"`
	Status    string     `json:"status" validate:"required,oneof=pending active inactive"`
	PlanID    *string    `json:"plan_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// AcceptInviteRequest represents the request body for accepting an invite
type AcceptInviteRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	PlanID      *string    `json:"plan_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Phone:       user.Phone,
		Role:        user.Role,
		Status:      user.Status,
		PlanID:      user.PlanID,
		ExpiresAt:   user.ExpiresAt,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// GetUser retrieves a user by ID. Admins can read any user; everyone
// else only their own record.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims == nil || (claims.Role != models.RoleAdmin && claims.UserID != userID) {
		pkghttp.WriteForbidden(w, "you cannot access this resource")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers retrieves a page of users with optional name/email search
//
// @Summary List users
// @Param search query string false "Name or email filter"
// @Param limit query int false "Limit (default 20)"
// @Param offset query int false "Offset (default 0)"
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	users, total, err := h.service.ListUsers(r.Context(), search, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ListUsersResponse{Users: make([]*UserResponse, len(users)), Total: total}
	for i, u := range users {
		resp.Users[i] = userModelToResponse(u)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// InviteUser creates a pending account and emails a setup link
func (h *UserHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	var req InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims := auth.GetUserFromContext(r)
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.inviteService.InviteUser(r.Context(), actorID, req.Email, req.Name, req.Phone, req.PlanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, userModelToResponse(user))
}

// ResendInvite issues a fresh invite link for a pending account
func (h *UserHandler) ResendInvite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	if err := h.inviteService.ResendInvite(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "invite sent"})
}

// AcceptInvite sets the first password on an invited account (public)
func (h *UserHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.inviteService.AcceptInvite(r.Context(), req.Token, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// UpdateUser applies admin edits to a user record
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), userID, &models.User{
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      req.Role,
		Status:    req.Status,
		PlanID:    req.PlanID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// DeleteUser removes a user. Admins cannot delete themselves.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	claims := auth.GetUserFromContext(r)
	if claims != nil && claims.UserID == userID {
		pkghttp.WriteBadRequest(w, "you cannot delete your own account")
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
