package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paypalTestConfig() *stubConfigSource {
	return &stubConfigSource{config: &models.PaymentConfig{
		Provider:     models.ProviderPaypal,
		Environment:  models.EnvironmentSandbox,
		ClientID:     "client_test",
		ClientSecret: "secret_test",
		WebhookID:    "wh_test",
		IsActive:     true,
	}}
}

// paypalStubServer answers the oauth and webhook-verification calls the
// adapter makes before it parses the event body.
func paypalStubServer(t *testing.T, verificationStatus string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok_test"})
		case "/v1/notifications/verify-webhook-signature":
			json.NewEncoder(w).Encode(map[string]string{"verification_status": verificationStatus})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPaypalAdapter_VerifyWebhook_OrderApproved(t *testing.T) {
	server := paypalStubServer(t, "SUCCESS")
	defer server.Close()

	adapter := NewPaypalAdapter(paypalTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	body := []byte(`{
		"event_type": "CHECKOUT.ORDER.APPROVED",
		"resource": {
			"id": "ORDER-1",
			"status": "APPROVED",
			"purchase_units": [{
				"reference_id": "order123",
				"custom_id": "plan1:monthly",
				"amount": {"currency_code": "USD", "value": "19.99"}
			}],
			"payer": {"email_address": "reader@example.com"}
		}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", nil)

	result, err := adapter.VerifyWebhook(req, body)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ProviderPaypal, result.Provider)
	assert.Equal(t, "ORDER-1", result.ProviderRef)
	assert.Equal(t, "order123", result.OrderID)
	assert.Equal(t, "plan1", result.PlanID)
	assert.Equal(t, models.BillingMonthly, result.BillingPeriod)
	assert.Equal(t, 1999, result.AmountCents)
	assert.Equal(t, "reader@example.com", result.CustomerEmail)
}

func TestPaypalAdapter_VerifyWebhook_CaptureCompletedNotActedOn(t *testing.T) {
	server := paypalStubServer(t, "SUCCESS")
	defer server.Close()

	adapter := NewPaypalAdapter(paypalTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	// A capture resource has no purchase units; the event must be
	// acknowledged, not errored, or the provider redelivers forever.
	body := []byte(`{
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAPTURE-1",
			"status": "COMPLETED",
			"amount": {"currency_code": "USD", "value": "19.99"},
			"custom_id": "plan1:monthly",
			"supplementary_data": {"related_ids": {"order_id": "ORDER-1"}}
		}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", nil)

	result, err := adapter.VerifyWebhook(req, body)

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestPaypalAdapter_VerifyWebhook_RejectsFailedVerification(t *testing.T) {
	server := paypalStubServer(t, "FAILURE")
	defer server.Close()

	adapter := NewPaypalAdapter(paypalTestConfig(), models.EnvironmentSandbox, 5*time.Second)
	adapter.baseURL = server.URL

	body := []byte(`{"event_type": "CHECKOUT.ORDER.APPROVED", "resource": {"id": "ORDER-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paypal", nil)

	_, err := adapter.VerifyWebhook(req, body)

	assert.ErrorIs(t, err, models.ErrWebhookSignature)
}
