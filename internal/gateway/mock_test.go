package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockAdapter_RefusedInProduction(t *testing.T) {
	_, err := NewMockAdapter(models.EnvironmentProduction, "http://localhost:8080/mock/pay")
	assert.Error(t, err)
}

func TestMockAdapter_CheckoutRoundTrip(t *testing.T) {
	adapter, err := NewMockAdapter(models.EnvironmentSandbox, "http://localhost:8080/mock/pay")
	require.NoError(t, err)

	session, err := adapter.CreateCheckout(context.Background(), CheckoutRequest{
		Plan: &models.PricingPlan{
			ID:            "plan1",
			Name:          "Premium",
			PriceCents:    1999,
			Currency:      "USD",
			BillingPeriod: models.BillingMonthly,
		},
		BillingPeriod: models.BillingMonthly,
		CustomerEmail: "reader@example.com",
		OrderID:       "abc123",
		SuccessURL:    "http://localhost:8080/payment/success",
		CancelURL:     "http://localhost:8080/pricing",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(session.RedirectURL, "http://localhost:8080/mock/pay?token="))

	parsed, err := url.Parse(session.RedirectURL)
	require.NoError(t, err)
	encoded := parsed.Query().Get("token")

	// The pay page sees the original checkout details.
	data, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var token mockCheckoutToken
	require.NoError(t, json.Unmarshal(data, &token))
	assert.Equal(t, 1999, token.AmountCents)
	assert.Equal(t, "abc123", token.OrderID)

	// The success callback carries back order_id and a transaction id,
	// matching the amounts from checkout.
	result, err := adapter.ReconcileRedirect(context.Background(), map[string]string{
		"token":          encoded,
		"transaction_id": "txn_777",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.OrderID)
	assert.Equal(t, "txn_777", result.TransactionID)
	assert.Equal(t, 1999, result.AmountCents)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, "reader@example.com", result.CustomerEmail)
}

func TestMockAdapter_ReconcileRedirect_FabricatesTransactionID(t *testing.T) {
	adapter, err := NewMockAdapter(models.EnvironmentSandbox, "http://localhost:8080/mock/pay")
	require.NoError(t, err)

	data, _ := json.Marshal(mockCheckoutToken{
		AmountCents:   500,
		Currency:      "USD",
		OrderID:       "ord1",
		CustomerEmail: "reader@example.com",
	})

	result, err := adapter.ReconcileRedirect(context.Background(), map[string]string{
		"token": base64.URLEncoding.EncodeToString(data),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.TransactionID, "mock_"))
}

func TestMockAdapter_ReconcileRedirect_RejectsGarbage(t *testing.T) {
	adapter, err := NewMockAdapter(models.EnvironmentSandbox, "http://localhost:8080/mock/pay")
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"not base64", "%%%"},
		{"not json", base64.URLEncoding.EncodeToString([]byte("hello"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adapter.ReconcileRedirect(context.Background(), map[string]string{"token": tc.token})
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

func TestMockAdapter_VerifyWebhook_Unsupported(t *testing.T) {
	adapter, err := NewMockAdapter(models.EnvironmentSandbox, "http://localhost:8080/mock/pay")
	require.NoError(t, err)

	_, err = adapter.VerifyWebhook(nil, nil)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestRegistry_GetUnknownProvider(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Get("stripe")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"19.99", 1999},
		{"19.9", 1990},
		{"19", 1900},
		{"0.05", 5},
		{"100.00", 10000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, decimalToCents(tc.in), tc.in)
	}
}
