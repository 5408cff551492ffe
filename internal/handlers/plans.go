package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// PlanServiceInterface defines the interface for plan catalog logic
type PlanServiceInterface interface {
	GetPlanByID(ctx context.Context, id string) (*models.PricingPlan, error)
	ListPublicPlans(ctx context.Context) ([]*models.PricingPlan, error)
	ListAdminPlans(ctx context.Context, search string, page, limit int) ([]*models.PricingPlan, int, error)
	CreatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	UpdatePlan(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error)
	DeletePlan(ctx context.Context, id string, hard bool) error
}

// ProviderLister reports which payment providers are enabled
type ProviderLister interface {
	EnabledProviders(ctx context.Context, environment string, mockEnabled bool) ([]string, error)
}

// PlanHandler handles pricing plan HTTP requests
type PlanHandler struct {
	service     PlanServiceInterface
	providers   ProviderLister
	environment string
	mockEnabled bool
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(service PlanServiceInterface, providers ProviderLister, environment string, mockEnabled bool) *PlanHandler {
	return &PlanHandler{
		service:     service,
		providers:   providers,
		environment: environment,
		mockEnabled: mockEnabled,
	}
}

// PlanRequest represents the request body for creating or updating a plan
type PlanRequest struct {
	Name          string              `json:"name" validate:"required,min=1,max=120"`
	Description   string              `json:"description"`
	PriceCents    int                 `json:"price_cents" validate:"gte=0"`
	Currency      string              `json:"currency" validate:"required,len=3"`
	BillingPeriod string              `json:"billing_period" validate:"required,oneof=monthly yearly lifetime"`
	Features      models.PlanFeatures `json:"features"`
	IsPopular     bool                `json:"is_popular"`
	IsActive      bool                `json:"is_active"`
	SortOrder     int                 `json:"sort_order"`
	ButtonText    string              `json:"button_text"`
	ButtonLink    string              `json:"button_link"`
}

// PublicPlansResponse is the pricing page payload: the active plans plus
// the providers a buyer can pay with.
type PublicPlansResponse struct {
	Plans     []*models.PricingPlan `json:"plans"`
	Providers []string              `json:"providers"`
}

// ListPlansResponse represents a page of plans for the admin view
type ListPlansResponse struct {
	Plans []*models.PricingPlan `json:"plans"`
	Total int                   `json:"total"`
}

func (req *PlanRequest) toModel() *models.PricingPlan {
	return &models.PricingPlan{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		PriceCents:    req.PriceCents,
		Currency:      strings.ToUpper(req.Currency),
		BillingPeriod: req.BillingPeriod,
		Features:      req.Features,
		IsPopular:     req.IsPopular,
		IsActive:      req.IsActive,
		SortOrder:     req.SortOrder,
		ButtonText:    req.ButtonText,
		ButtonLink:    req.ButtonLink,
	}
}

// ListPublicPlans serves the pricing page (no auth)
//
// @Summary List active pricing plans
// @Produce json
// @Success 200 {object} PublicPlansResponse
// @Router /plans [get]
func (h *PlanHandler) ListPublicPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPublicPlans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	providers := []string{}
	if h.providers != nil {
		if enabled, err := h.providers.EnabledProviders(r.Context(), h.environment, h.mockEnabled); err == nil {
			providers = enabled
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, PublicPlansResponse{Plans: plans, Providers: providers})
}

// ListAdminPlans returns every plan, searchable and paginated
func (h *PlanHandler) ListAdminPlans(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	plans, total, err := h.service.ListAdminPlans(r.Context(), search, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListPlansResponse{Plans: plans, Total: total})
}

// GetPlan retrieves a plan by ID
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	if planID == "" {
		pkghttp.WriteBadRequest(w, "plan id is required")
		return
	}

	plan, err := h.service.GetPlanByID(r.Context(), planID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, plan)
}

// CreatePlan adds a plan to the catalog
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, plan)
}

// UpdatePlan replaces a plan's editable fields
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	if planID == "" {
		pkghttp.WriteBadRequest(w, "plan id is required")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	plan, err := h.service.UpdatePlan(r.Context(), planID, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, plan)
}

// DeletePlan deactivates a plan, or hard-deletes with ?hard=true
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	if planID == "" {
		pkghttp.WriteBadRequest(w, "plan id is required")
		return
	}
	hard := r.URL.Query().Get("hard") == "true"

	if err := h.service.DeletePlan(r.Context(), planID, hard); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
