package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfigSource struct {
	config *models.PaymentConfig
	err    error
}

func (s *stubConfigSource) GetActive(ctx context.Context, provider, environment string) (*models.PaymentConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.config, nil
}

func stripeTestConfig() *stubConfigSource {
	return &stubConfigSource{config: &models.PaymentConfig{
		Provider:      models.ProviderStripe,
		Environment:   models.EnvironmentSandbox,
		SecretKey:     "sk_test_secret",
		WebhookSecret: "whsec_test",
		IsActive:      true,
	}}
}

func signStripePayload(t *testing.T, secret string, ts time.Time, body []byte) string {
	t.Helper()
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeAdapter_CreateCheckout_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.FormValue("mode"))
		assert.Equal(t, "999", r.FormValue("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.FormValue("line_items[0][price_data][currency]"))
		assert.Equal(t, "order123", r.FormValue("metadata[order_id]"))

		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_123",
			"url": "https://checkout.stripe.com/pay/cs_test_123",
		})
	}))
	defer server.Close()

	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	session, err := adapter.CreateCheckout(context.Background(), CheckoutRequest{
		Plan: &models.PricingPlan{
			ID:            "plan1",
			Name:          "Premium",
			PriceCents:    999,
			Currency:      "USD",
			BillingPeriod: models.BillingMonthly,
		},
		BillingPeriod:  models.BillingMonthly,
		CustomerEmail:  "reader@example.com",
		OrderID:        "order123",
		SuccessURL:     "https://app.example.com/success",
		CancelURL:      "https://app.example.com/cancel",
		IdempotencyKey: "idem-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", session.RedirectURL)
}

func TestStripeAdapter_CreateCheckout_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	}))
	defer server.Close()

	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	_, err := adapter.CreateCheckout(context.Background(), CheckoutRequest{
		Plan: &models.PricingPlan{PriceCents: 999, Currency: "USD", BillingPeriod: models.BillingLifetime},
	})

	assert.ErrorIs(t, err, models.ErrProviderFailure)
}

func TestStripeAdapter_CreateCheckout_NoActiveConfig(t *testing.T) {
	adapter := NewStripeAdapter(&stubConfigSource{err: models.ErrNotFound}, models.EnvironmentSandbox, 5*time.Second)

	_, err := adapter.CreateCheckout(context.Background(), CheckoutRequest{
		Plan: &models.PricingPlan{PriceCents: 999, Currency: "USD"},
	})

	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func stripeCompletedEvent() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_123",
			"amount_total": 1999,
			"currency": "usd",
			"customer_email": "reader@example.com",
			"payment_intent": "pi_123",
			"metadata": {"order_id": "abc123", "plan_id": "plan1", "billing_period": "monthly"}
		}}
	}`)
}

func TestStripeAdapter_VerifyWebhook_ValidSignature(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	body := stripeCompletedEvent()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", signStripePayload(t, "whsec_test", time.Now(), body))

	result, err := adapter.VerifyWebhook(req, body)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ProviderStripe, result.Provider)
	assert.Equal(t, "cs_test_123", result.ProviderEventID)
	assert.Equal(t, "pi_123", result.TransactionID)
	assert.Equal(t, "abc123", result.OrderID)
	assert.Equal(t, 1999, result.AmountCents)
	assert.Equal(t, "USD", result.Currency)
}

func TestStripeAdapter_VerifyWebhook_BadSignature(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	body := stripeCompletedEvent()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", signStripePayload(t, "whsec_wrong", time.Now(), body))

	_, err := adapter.VerifyWebhook(req, body)

	assert.ErrorIs(t, err, models.ErrWebhookSignature)
}

func TestStripeAdapter_VerifyWebhook_MissingHeader(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	_, err := adapter.VerifyWebhook(req, stripeCompletedEvent())

	assert.ErrorIs(t, err, models.ErrWebhookSignature)
}

func TestStripeAdapter_VerifyWebhook_StaleTimestamp(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	body := stripeCompletedEvent()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", signStripePayload(t, "whsec_test", time.Now().Add(-time.Hour), body))

	_, err := adapter.VerifyWebhook(req, body)

	assert.ErrorIs(t, err, models.ErrWebhookSignature)
}

func TestStripeAdapter_VerifyWebhook_TamperedBody(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	body := stripeCompletedEvent()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", signStripePayload(t, "whsec_test", time.Now(), body))

	tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"amount_total":1}}}`)
	_, err := adapter.VerifyWebhook(req, tampered)

	assert.ErrorIs(t, err, models.ErrWebhookSignature)
}

func TestStripeAdapter_VerifyWebhook_IgnoredEventType(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	body := []byte(`{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", signStripePayload(t, "whsec_test", time.Now(), body))

	result, err := adapter.VerifyWebhook(req, body)

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestStripeAdapter_ReconcileRedirect_PaidSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions/cs_test_123", r.URL.Path)
		w.Write([]byte(`{
			"id": "cs_test_123",
			"payment_status": "paid",
			"amount_total": 1999,
			"currency": "usd",
			"customer_email": "reader@example.com",
			"payment_intent": "pi_123",
			"metadata": {"order_id": "abc123", "plan_id": "plan1", "billing_period": "monthly"}
		}`))
	}))
	defer server.Close()

	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	result, err := adapter.ReconcileRedirect(context.Background(), map[string]string{"session_id": "cs_test_123"})

	require.NoError(t, err)
	// Same key as the webhook path, so the two arrivals dedupe.
	assert.Equal(t, "cs_test_123", result.ProviderEventID)
	assert.Equal(t, "abc123", result.OrderID)
}

func TestStripeAdapter_ReconcileRedirect_UnpaidSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "cs_test_123", "payment_status": "unpaid"}`))
	}))
	defer server.Close()

	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	_, err := adapter.ReconcileRedirect(context.Background(), map[string]string{"session_id": "cs_test_123"})

	assert.ErrorIs(t, err, models.ErrProviderFailure)
}

func TestStripeAdapter_ReconcileRedirect_MissingSessionID(t *testing.T) {
	adapter := NewStripeAdapter(stripeTestConfig(), models.EnvironmentSandbox, 5*time.Second)

	_, err := adapter.ReconcileRedirect(context.Background(), map[string]string{})

	assert.ErrorIs(t, err, models.ErrBadRequest)
}
