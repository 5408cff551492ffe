package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/models"
)

const (
	paypalSandboxBase    = "https://api-m.sandbox.paypal.com"
	paypalProductionBase = "https://api-m.paypal.com"
)

type PaypalAdapter struct {
	configs     ConfigSource
	environment string
	baseURL     string
	client      *http.Client
}

func NewPaypalAdapter(configs ConfigSource, environment string, timeout time.Duration) *PaypalAdapter {
	base := paypalSandboxBase
	if environment == models.EnvironmentProduction {
		base = paypalProductionBase
	}
	return &PaypalAdapter{
		configs:     configs,
		environment: environment,
		baseURL:     base,
		client:      &http.Client{Timeout: timeout},
	}
}

func (a *PaypalAdapter) Provider() string { return models.ProviderPaypal }

func (a *PaypalAdapter) config(ctx context.Context) (*models.PaymentConfig, error) {
	cfg, err := a.configs.GetActive(ctx, models.ProviderPaypal, a.environment)
	if err != nil {
		return nil, models.ErrProviderUnavailable
	}
	return cfg, nil
}

// accessToken exchanges client credentials for a bearer token.
func (a *PaypalAdapter) accessToken(ctx context.Context, cfg *models.PaymentConfig) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", providerError("paypal", resp)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decoding token: %v", models.ErrProviderFailure, err)
	}
	return token.AccessToken, nil
}

// CreateCheckout creates an order and returns the approval link.
func (a *PaypalAdapter) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	cfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}

	token, err := a.accessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	order := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.OrderID,
			"custom_id":    req.Plan.ID + ":" + req.BillingPeriod,
			"description":  req.Plan.Name,
			"amount": map[string]string{
				"currency_code": req.Plan.Currency,
				"value":         centsToDecimal(req.Plan.PriceCents),
			},
		}},
		"application_context": map[string]string{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("PayPal-Request-Id", req.IdempotencyKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, providerError("paypal", resp)
	}

	var created struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: decoding order: %v", models.ErrProviderFailure, err)
	}

	for _, link := range created.Links {
		if link.Rel == "approve" {
			return &CheckoutSession{RedirectURL: link.Href, SessionID: created.ID}, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s has no approval link", models.ErrProviderFailure, created.ID)
}

// VerifyWebhook authenticates a notification through the provider's
// verify-webhook-signature API using the stored webhook id, then
// extracts the completed order.
func (a *PaypalAdapter) VerifyWebhook(r *http.Request, body []byte) (*PaymentResult, error) {
	cfg, err := a.config(r.Context())
	if err != nil {
		return nil, err
	}

	token, err := a.accessToken(r.Context(), cfg)
	if err != nil {
		return nil, err
	}

	var rawEvent json.RawMessage = body
	verification := map[string]any{
		"auth_algo":         r.Header.Get("Paypal-Auth-Algo"),
		"cert_url":          r.Header.Get("Paypal-Cert-Url"),
		"transmission_id":   r.Header.Get("Paypal-Transmission-Id"),
		"transmission_sig":  r.Header.Get("Paypal-Transmission-Sig"),
		"transmission_time": r.Header.Get("Paypal-Transmission-Time"),
		"webhook_id":        cfg.WebhookID,
		"webhook_event":     rawEvent,
	}

	payload, err := json.Marshal(verification)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		a.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.ErrWebhookSignature
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding verification: %v", models.ErrProviderFailure, err)
	}
	if result.VerificationStatus != "SUCCESS" {
		return nil, models.ErrWebhookSignature
	}

	var event struct {
		EventType string `json:"event_type"`
		Resource  struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			PurchaseUnits []struct {
				ReferenceID string `json:"reference_id"`
				CustomID    string `json:"custom_id"`
				Amount      struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
				Payments struct {
					Captures []struct {
						ID string `json:"id"`
					} `json:"captures"`
				} `json:"payments"`
			} `json:"purchase_units"`
			Payer struct {
				Email string `json:"email_address"`
			} `json:"payer"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decoding event: %v", models.ErrProviderFailure, err)
	}

	// Only order approvals carry the purchase units with our order
	// reference. PAYMENT.CAPTURE.COMPLETED delivers a capture resource
	// without them; acknowledging it stops the provider redelivering,
	// and the redirect reconciliation supplies the capture id.
	if event.EventType != "CHECKOUT.ORDER.APPROVED" {
		return nil, nil
	}
	if len(event.Resource.PurchaseUnits) == 0 {
		return nil, fmt.Errorf("%w: event without purchase units", models.ErrProviderFailure)
	}

	unit := event.Resource.PurchaseUnits[0]
	planID, billingPeriod := splitCustomID(unit.CustomID)

	transactionID := ""
	if len(unit.Payments.Captures) > 0 {
		transactionID = unit.Payments.Captures[0].ID
	}

	return &PaymentResult{
		Provider:        models.ProviderPaypal,
		ProviderRef:     event.Resource.ID,
		ProviderEventID: event.Resource.ID,
		TransactionID:   transactionID,
		OrderID:         unit.ReferenceID,
		AmountCents:     decimalToCents(unit.Amount.Value),
		Currency:        unit.Amount.CurrencyCode,
		CustomerEmail:   event.Resource.Payer.Email,
		PlanID:          planID,
		BillingPeriod:   billingPeriod,
		RawPayload:      body,
	}, nil
}

// ReconcileRedirect looks the order up at the provider. Approval query
// parameters alone are never trusted.
func (a *PaypalAdapter) ReconcileRedirect(ctx context.Context, params map[string]string) (*PaymentResult, error) {
	orderID := params["token"]
	if orderID == "" {
		return nil, models.ErrBadRequest
	}

	cfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}

	token, err := a.accessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError("paypal", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}

	var order struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			ReferenceID string `json:"reference_id"`
			CustomID    string `json:"custom_id"`
			Amount      struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
		} `json:"purchase_units"`
		Payer struct {
			Email string `json:"email_address"`
		} `json:"payer"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: decoding order: %v", models.ErrProviderFailure, err)
	}

	if order.Status != "APPROVED" && order.Status != "COMPLETED" {
		return nil, models.ErrProviderFailure
	}
	if len(order.PurchaseUnits) == 0 {
		return nil, fmt.Errorf("%w: order without purchase units", models.ErrProviderFailure)
	}

	unit := order.PurchaseUnits[0]
	planID, billingPeriod := splitCustomID(unit.CustomID)

	return &PaymentResult{
		Provider:        models.ProviderPaypal,
		ProviderRef:     order.ID,
		ProviderEventID: order.ID,
		OrderID:         unit.ReferenceID,
		AmountCents:     decimalToCents(unit.Amount.Value),
		Currency:        unit.Amount.CurrencyCode,
		CustomerEmail:   order.Payer.Email,
		PlanID:          planID,
		BillingPeriod:   billingPeriod,
		RawPayload:      body,
	}, nil
}

func splitCustomID(customID string) (planID, billingPeriod string) {
	planID, billingPeriod, _ = strings.Cut(customID, ":")
	return
}

func centsToDecimal(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func decimalToCents(value string) int {
	whole, frac, _ := strings.Cut(value, ".")
	cents, _ := strconv.Atoi(whole)
	cents *= 100
	if len(frac) > 0 {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		f, _ := strconv.Atoi(frac)
		if len(frac) == 1 {
			f *= 10
		}
		cents += f
	}
	return cents
}
