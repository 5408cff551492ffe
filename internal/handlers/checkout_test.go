package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/gateway"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutHandler_CreateCheckout_RedirectURL(t *testing.T) {
	service := &MockCheckoutService{
		CreateCheckoutFunc: func(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error) {
			assert.Equal(t, "stripe", provider)
			assert.Equal(t, "plan1", planID)
			return &gateway.CheckoutSession{RedirectURL: "https://checkout.stripe.com/c/pay/cs_1", SessionID: "cs_1"}, nil
		},
	}
	h := NewCheckoutHandler(service, &MockSignupService{})

	w := postJSON(t, h.CreateCheckout, "/api/checkout", `{"provider":"stripe","plan_id":"plan1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CreateCheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp.RedirectURL)
}

func TestCheckoutHandler_CreateCheckout_BadProvider(t *testing.T) {
	h := NewCheckoutHandler(&MockCheckoutService{}, &MockSignupService{})

	w := postJSON(t, h.CreateCheckout, "/api/checkout", `{"provider":"square","plan_id":"plan1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_CreateCheckout_InactivePlan(t *testing.T) {
	service := &MockCheckoutService{
		CreateCheckoutFunc: func(ctx context.Context, provider, planID, billingPeriod, customerEmail string) (*gateway.CheckoutSession, error) {
			return nil, models.ErrPlanInactive
		},
	}
	h := NewCheckoutHandler(service, &MockSignupService{})

	w := postJSON(t, h.CreateCheckout, "/api/checkout", `{"provider":"stripe","plan_id":"plan1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckoutHandler_Confirm_ReturnsSignupToken(t *testing.T) {
	service := &MockCheckoutService{
		ConfirmRedirectFunc: func(ctx context.Context, provider string, params map[string]string) (*models.Payment, error) {
			assert.Equal(t, "cs_1", params["session_id"])
			return &models.Payment{
				ID:          "pay1",
				Provider:    "stripe",
				OrderID:     "order-1",
				PlanID:      "plan1",
				AmountCents: 1999,
				Currency:    "USD",
				Status:      models.PaymentStatusConfirmed,
			}, nil
		},
	}
	signup := &MockSignupService{
		IssueForPaymentFunc: func(ctx context.Context, payment *models.Payment) (string, error) {
			assert.Equal(t, "pay1", payment.ID)
			return "minted-signup-token", nil
		},
	}
	h := NewCheckoutHandler(service, signup)

	r := httptest.NewRequest(http.MethodGet, "/api/payment/confirm?provider=stripe&session_id=cs_1", nil)
	w := httptest.NewRecorder()
	h.Confirm(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "minted-signup-token", resp.SignupToken)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, 1999, resp.AmountCents)
}

func TestCheckoutHandler_Confirm_MissingProvider(t *testing.T) {
	h := NewCheckoutHandler(&MockCheckoutService{}, &MockSignupService{})

	r := httptest.NewRequest(http.MethodGet, "/api/payment/confirm", nil)
	w := httptest.NewRecorder()
	h.Confirm(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_Confirm_ProviderFailure(t *testing.T) {
	service := &MockCheckoutService{
		ConfirmRedirectFunc: func(ctx context.Context, provider string, params map[string]string) (*models.Payment, error) {
			return nil, models.ErrProviderFailure
		},
	}
	h := NewCheckoutHandler(service, &MockSignupService{})

	r := httptest.NewRequest(http.MethodGet, "/api/payment/confirm?provider=paypal&token=ORDER1", nil)
	w := httptest.NewRecorder()
	h.Confirm(w, r)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func webhookRequest(provider, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/"+provider, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("provider", provider)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestWebhookHandler_Receive_OK(t *testing.T) {
	processor := &MockWebhookProcessor{
		HandleWebhookFunc: func(r *http.Request, provider string, body []byte) error {
			assert.Equal(t, "stripe", provider)
			assert.JSONEq(t, `{"type":"checkout.session.completed"}`, string(body))
			return nil
		},
	}
	h := NewWebhookHandler(processor)

	w := httptest.NewRecorder()
	h.Receive(w, webhookRequest("stripe", `{"type":"checkout.session.completed"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, processor.Calls)
}

func TestWebhookHandler_Receive_BadSignature(t *testing.T) {
	processor := &MockWebhookProcessor{
		HandleWebhookFunc: func(r *http.Request, provider string, body []byte) error {
			return models.ErrWebhookSignature
		},
	}
	h := NewWebhookHandler(processor)

	w := httptest.NewRecorder()
	h.Receive(w, webhookRequest("stripe", `{}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_Receive_UnknownProvider(t *testing.T) {
	processor := &MockWebhookProcessor{
		HandleWebhookFunc: func(r *http.Request, provider string, body []byte) error {
			return models.ErrProviderUnavailable
		},
	}
	h := NewWebhookHandler(processor)

	w := httptest.NewRecorder()
	h.Receive(w, webhookRequest("square", `{}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandler_Receive_ProcessingError(t *testing.T) {
	processor := &MockWebhookProcessor{
		HandleWebhookFunc: func(r *http.Request, provider string, body []byte) error {
			return errors.New("db down")
		},
	}
	h := NewWebhookHandler(processor)

	w := httptest.NewRecorder()
	h.Receive(w, webhookRequest("stripe", `{}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code, "5xx so the provider redelivers")
}
