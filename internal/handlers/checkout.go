package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/gateway"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/services"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// CheckoutServiceInterface defines the interface for checkout orchestration
type CheckoutServiceInterface interface {
	CreateCheckout(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error)
	ConfirmRedirect(ctx context.Context, provider string, params map[string]string) (*models.Payment, error)
	ListPayments(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error)
}

// SignupTokenIssuer mints a signup token for a confirmed payment
type SignupTokenIssuer interface {
	IssueForPayment(ctx context.Context, payment *models.Payment) (string, error)
	Validate(ctx context.Context, tokenString string) (*services.SignupDetails, error)
}

// CheckoutHandler handles checkout and payment confirmation requests
type CheckoutHandler struct {
	service CheckoutServiceInterface
	signup  SignupTokenIssuer
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(service CheckoutServiceInterface, signup SignupTokenIssuer) *CheckoutHandler {
	return &CheckoutHandler{service: service, signup: signup}
}

// CreateCheckoutRequest represents the request body for starting checkout
type CreateCheckoutRequest struct {
	Provider      string `json:"provider" validate:"required,oneof=stripe paypal mock"`
	PlanID        string `json:"plan_id" validate:"required"`
	BillingPeriod string `json:"billing_period" validate:"omitempty,oneof=monthly yearly lifetime"`
	Email         string `json:"email" validate:"omitempty,email"`
}

// CreateCheckoutResponse carries the provider redirect URL
type CreateCheckoutResponse struct {
	RedirectURL string `json:"redirect_url"`
	SessionID   string `json:"session_id,omitempty"`
}

// ConfirmResponse is the success-page payload: the confirmed payment
// summary plus a single-use signup token.
type ConfirmResponse struct {
	SignupToken string `json:"signup_token"`
	Provider    string `json:"provider"`
	OrderID     string `json:"order_id"`
	PlanID      string `json:"plan_id"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
}

// PaymentResponse represents a payment record for the admin view
type PaymentResponse struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OrderID       string    `json:"order_id"`
	PlanID        string    `json:"plan_id"`
	BillingPeriod string    `json:"billing_period"`
	AmountCents   int       `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListPaymentsResponse represents a page of payments
type ListPaymentsResponse struct {
	Payments []*PaymentResponse `json:"payments"`
	Total    int                `json:"total"`
}

func paymentModelToResponse(p *models.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		OrderID:       p.OrderID,
		PlanID:        p.PlanID,
		BillingPeriod: p.BillingPeriod,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		CustomerEmail: p.CustomerEmail,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
	}
}

// CreateCheckout starts a hosted checkout and returns the redirect URL
//
// @Summary Start a checkout session
// @Accept json
// @Param request body CreateCheckoutRequest true "Checkout request"
// @Produce json
// @Success 200 {object} CreateCheckoutResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Failure 503 {object} pkghttp.ErrorResponse
// @Router /checkout [post]
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), req.Provider, req.PlanID, req.BillingPeriod, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CreateCheckoutResponse{
		RedirectURL: session.RedirectURL,
		SessionID:   session.SessionID,
	})
}

// Confirm reconciles a provider success redirect. The query parameters
// are passed through to the provider adapter; nothing in them is
// trusted until the provider confirms the payment.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		pkghttp.WriteBadRequest(w, "provider is required")
		return
	}

	params := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	payment, err := h.service.ConfirmRedirect(r.Context(), provider, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.signup.IssueForPayment(r.Context(), payment)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ConfirmResponse{
		SignupToken: token,
		Provider:    payment.Provider,
		OrderID:     payment.OrderID,
		PlanID:      payment.PlanID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Email:       payment.CustomerEmail,
	})
}

// ListPayments returns recorded payments for the admin view
func (h *CheckoutHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	provider := r.URL.Query().Get("provider")
	status := r.URL.Query().Get("status")

	payments, total, err := h.service.ListPayments(r.Context(), provider, status, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ListPaymentsResponse{Payments: make([]*PaymentResponse, len(payments)), Total: total}
	for i, p := range payments {
		resp.Payments[i] = paymentModelToResponse(p)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
