package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// PaymentConfigServiceInterface defines the interface for provider
// credential management
type PaymentConfigServiceInterface interface {
	ListConfigs(ctx context.Context) ([]*models.PaymentConfig, error)
	GetConfig(ctx context.Context, id string) (*models.PaymentConfig, error)
	CreateConfig(ctx context.Context, actorID string, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	UpdateConfig(ctx context.Context, actorID, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error)
	SetActive(ctx context.Context, actorID, id string, active bool) (*models.PaymentConfig, error)
	DeleteConfig(ctx context.Context, actorID, id string) error
}

// PaymentConfigHandler handles provider credential HTTP requests
type PaymentConfigHandler struct {
	service PaymentConfigServiceInterface
}

// NewPaymentConfigHandler creates a new PaymentConfigHandler
func NewPaymentConfigHandler(service PaymentConfigServiceInterface) *PaymentConfigHandler {
	return &PaymentConfigHandler{service: service}
}

// PaymentConfigRequest carries credentials on create and update. Secret
// fields left empty on update keep their stored values.
type PaymentConfigRequest struct {
	Provider       string `json:"provider" validate:"omitempty,oneof=stripe paypal"`
	Environment    string `json:"environment" validate:"omitempty,oneof=sandbox production"`
	PublishableKey string `json:"publishable_key"`
	SecretKey      string `json:"secret_key"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	WebhookSecret  string `json:"webhook_secret"`
	WebhookID      string `json:"webhook_id"`
}

// SetActiveRequest represents the request body for activation toggles
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// PaymentConfigResponse never carries secret fields; they are write-only.
type PaymentConfigResponse struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	Environment    string    `json:"environment"`
	PublishableKey string    `json:"publishable_key,omitempty"`
	ClientID       string    `json:"client_id,omitempty"`
	WebhookID      string    `json:"webhook_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func configToResponse(cfg *models.PaymentConfig) *PaymentConfigResponse {
	// cfg arrives sanitized from the service; the DTO carries no
	// secret fields.
	return &PaymentConfigResponse{
		ID:             cfg.ID,
		Provider:       cfg.Provider,
		Environment:    cfg.Environment,
		PublishableKey: cfg.PublishableKey,
		ClientID:       cfg.ClientID,
		WebhookID:      cfg.WebhookID,
		IsActive:       cfg.IsActive,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func (req *PaymentConfigRequest) toModel() *models.PaymentConfig {
	return &models.PaymentConfig{
		Provider:       req.Provider,
		Environment:    req.Environment,
		PublishableKey: req.PublishableKey,
		SecretKey:      req.SecretKey,
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		WebhookSecret:  req.WebhookSecret,
		WebhookID:      req.WebhookID,
	}
}

func actorID(r *http.Request) string {
	if claims := auth.GetUserFromContext(r); claims != nil {
		return claims.UserID
	}
	return ""
}

// ListConfigs returns all provider configs, sanitized
func (h *PaymentConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListConfigs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*PaymentConfigResponse, len(configs))
	for i, cfg := range configs {
		resp[i] = configToResponse(cfg)
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"configs": resp})
}

// GetConfig returns one config, sanitized
func (h *PaymentConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "id")
	if configID == "" {
		pkghttp.WriteBadRequest(w, "config id is required")
		return
	}

	cfg, err := h.service.GetConfig(r.Context(), configID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, configToResponse(cfg))
}

// CreateConfig stores a new provider credential set (inactive)
func (h *PaymentConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req PaymentConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cfg, err := h.service.CreateConfig(r.Context(), actorID(r), req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, configToResponse(cfg))
}

// UpdateConfig applies a partial credential update
func (h *PaymentConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "id")
	if configID == "" {
		pkghttp.WriteBadRequest(w, "config id is required")
		return
	}

	var req PaymentConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cfg, err := h.service.UpdateConfig(r.Context(), actorID(r), configID, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, configToResponse(cfg))
}

// SetActive toggles a config's active flag. Activating deactivates the
// sibling config for the same provider and environment.
func (h *PaymentConfigHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "id")
	if configID == "" {
		pkghttp.WriteBadRequest(w, "config id is required")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	cfg, err := h.service.SetActive(r.Context(), actorID(r), configID, req.IsActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, configToResponse(cfg))
}

// DeleteConfig removes a credential set
func (h *PaymentConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "id")
	if configID == "" {
		pkghttp.WriteBadRequest(w, "config id is required")
		return
	}

	if err := h.service.DeleteConfig(r.Context(), actorID(r), configID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
