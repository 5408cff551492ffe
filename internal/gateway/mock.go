package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/openshelf/openshelf/internal/models"
)

// MockAdapter simulates a hosted gateway for local development. The
// checkout "session" is a base64 JSON token the mock pay page decodes;
// on Pay Now it redirects back with fabricated transaction parameters.
//
// Nothing in this flow is signed. Construction is refused outside
// sandbox deployments and config.Load independently rejects the enable
// flag in production.
type MockAdapter struct {
	payPageURL string
}

func NewMockAdapter(environment, payPageURL string) (*MockAdapter, error) {
	if environment == models.EnvironmentProduction {
		return nil, fmt.Errorf("mock gateway cannot be enabled in production")
	}
	return &MockAdapter{payPageURL: payPageURL}, nil
}

func (a *MockAdapter) Provider() string { return models.ProviderMock }

// mockCheckoutToken is what the simulated pay page receives.
type mockCheckoutToken struct {
	AmountCents   int    `json:"amount_cents"`
	Currency      string `json:"currency"`
	OrderID       string `json:"order_id"`
	PlanID        string `json:"plan_id"`
	BillingPeriod string `json:"billing_period"`
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

func (a *MockAdapter) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	token := mockCheckoutToken{
		AmountCents:   req.Plan.PriceCents,
		Currency:      req.Plan.Currency,
		OrderID:       req.OrderID,
		PlanID:        req.Plan.ID,
		BillingPeriod: req.BillingPeriod,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	}

	data, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	encoded := base64.URLEncoding.EncodeToString(data)

	return &CheckoutSession{
		RedirectURL: a.payPageURL + "?token=" + url.QueryEscape(encoded),
		SessionID:   req.OrderID,
	}, nil
}

// VerifyWebhook is unsupported: the mock gateway has no server-to-server
// channel, only the redirect.
func (a *MockAdapter) VerifyWebhook(r *http.Request, body []byte) (*PaymentResult, error) {
	return nil, models.ErrProviderUnavailable
}

// ReconcileRedirect accepts the fabricated success parameters. The token
// round-trips the original checkout so amount and order id survive for
// the signup token cross-check.
func (a *MockAdapter) ReconcileRedirect(ctx context.Context, params map[string]string) (*PaymentResult, error) {
	encoded := params["token"]
	if encoded == "" {
		return nil, models.ErrBadRequest
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, models.ErrBadRequest
	}

	var token mockCheckoutToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, models.ErrBadRequest
	}
	if token.OrderID == "" || token.CustomerEmail == "" || token.AmountCents < 0 {
		return nil, models.ErrBadRequest
	}

	transactionID := params["transaction_id"]
	if transactionID == "" {
		transactionID = "mock_" + uuid.New().String()
	}

	return &PaymentResult{
		Provider:        models.ProviderMock,
		ProviderRef:     token.OrderID,
		ProviderEventID: token.OrderID,
		TransactionID:   transactionID,
		OrderID:         token.OrderID,
		AmountCents:     token.AmountCents,
		Currency:        token.Currency,
		CustomerEmail:   token.CustomerEmail,
		PlanID:          token.PlanID,
		BillingPeriod:   token.BillingPeriod,
		RawPayload:      data,
	}, nil
}
