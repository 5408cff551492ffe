package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	stripeAPIBase = "https://api.stripe.com"

	// Webhook timestamps older than this are replays.
	stripeSignatureTolerance = 5 * time.Minute
)

// ConfigSource supplies the active credentials for a provider. Adapters
// look credentials up per call so admin config changes take effect
// without a restart.
type ConfigSource interface {
	GetActive(ctx context.Context, provider, environment string) (*models.PaymentConfig, error)
}

type StripeAdapter struct {
	configs     ConfigSource
	environment string
	baseURL     string
	client      *http.Client
	now         func() time.Time
}

func NewStripeAdapter(configs ConfigSource, environment string, timeout time.Duration) *StripeAdapter {
	return &StripeAdapter{
		configs:     configs,
		environment: environment,
		baseURL:     stripeAPIBase,
		client:      &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

func (a *StripeAdapter) Provider() string { return models.ProviderStripe }

func (a *StripeAdapter) config(ctx context.Context) (*models.PaymentConfig, error) {
	cfg, err := a.configs.GetActive(ctx, models.ProviderStripe, a.environment)
	if err != nil {
		return nil, models.ErrProviderUnavailable
	}
	return cfg, nil
}

// CreateCheckout creates a hosted Checkout Session. Recurring plans use
// subscription mode, lifetime plans a one-time payment.
func (a *StripeAdapter) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	cfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("mode", "payment")
	if req.Plan.IsRecurring() {
		form.Set("mode", "subscription")
		form.Set("line_items[0][price_data][recurring][interval]", stripeInterval(req.BillingPeriod))
	}
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Plan.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(req.Plan.PriceCents))
	form.Set("line_items[0][price_data][product_data][name]", req.Plan.Name)
	form.Set("line_items[0][quantity]", "1")
	form.Set("customer_email", req.CustomerEmail)
	form.Set("client_reference_id", req.OrderID)
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("metadata[plan_id]", req.Plan.ID)
	form.Set("metadata[billing_period]", req.BillingPeriod)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError("stripe", resp)
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", models.ErrProviderFailure, err)
	}

	return &CheckoutSession{RedirectURL: session.URL, SessionID: session.ID}, nil
}

func stripeInterval(billingPeriod string) string {
	if billingPeriod == models.BillingYearly {
		return "year"
	}
	return "month"
}

// VerifyWebhook checks the Stripe-Signature header before reading any
// payload field. The signature covers "<timestamp>.<body>" and the
// timestamp must be within the replay tolerance.
func (a *StripeAdapter) VerifyWebhook(r *http.Request, body []byte) (*PaymentResult, error) {
	cfg, err := a.config(r.Context())
	if err != nil {
		return nil, err
	}

	if err := verifyStripeSignature(r.Header.Get("Stripe-Signature"), body, cfg.WebhookSecret, a.now()); err != nil {
		return nil, err
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID              string `json:"id"`
				AmountTotal     int    `json:"amount_total"`
				Currency        string `json:"currency"`
				CustomerEmail   string `json:"customer_email"`
				ClientReference string `json:"client_reference_id"`
				PaymentIntent   string `json:"payment_intent"`
				Metadata        struct {
					OrderID       string `json:"order_id"`
					PlanID        string `json:"plan_id"`
					BillingPeriod string `json:"billing_period"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decoding event: %v", models.ErrProviderFailure, err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	// Keyed on the session id rather than the event id so the webhook
	// and the reconciled redirect collapse into one payment row.
	obj := event.Data.Object
	return &PaymentResult{
		Provider:        models.ProviderStripe,
		ProviderRef:     obj.ID,
		ProviderEventID: obj.ID,
		TransactionID:   obj.PaymentIntent,
		OrderID:         obj.Metadata.OrderID,
		AmountCents:     obj.AmountTotal,
		Currency:        strings.ToUpper(obj.Currency),
		CustomerEmail:   obj.CustomerEmail,
		PlanID:          obj.Metadata.PlanID,
		BillingPeriod:   obj.Metadata.BillingPeriod,
		RawPayload:      body,
	}, nil
}

func verifyStripeSignature(header string, body []byte, secret string, now time.Time) error {
	if header == "" || secret == "" {
		return models.ErrWebhookSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return models.ErrWebhookSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return models.ErrWebhookSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > stripeSignatureTolerance || age < -stripeSignatureTolerance {
		return models.ErrWebhookSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return models.ErrWebhookSignature
}

// ReconcileRedirect fetches the checkout session named by the redirect
// and trusts only the provider's own answer about its payment status.
func (a *StripeAdapter) ReconcileRedirect(ctx context.Context, params map[string]string) (*PaymentResult, error) {
	sessionID := params["session_id"]
	if sessionID == "" {
		return nil, models.ErrBadRequest
	}

	cfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+cfg.SecretKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError("stripe", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderFailure, err)
	}

	var session struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"payment_status"`
		AmountTotal   int    `json:"amount_total"`
		Currency      string `json:"currency"`
		CustomerEmail string `json:"customer_email"`
		PaymentIntent string `json:"payment_intent"`
		Metadata      struct {
			OrderID       string `json:"order_id"`
			PlanID        string `json:"plan_id"`
			BillingPeriod string `json:"billing_period"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", models.ErrProviderFailure, err)
	}

	if session.PaymentStatus != "paid" {
		return nil, models.ErrProviderFailure
	}

	return &PaymentResult{
		Provider:        models.ProviderStripe,
		ProviderRef:     session.ID,
		ProviderEventID: session.ID,
		TransactionID:   session.PaymentIntent,
		OrderID:         session.Metadata.OrderID,
		AmountCents:     session.AmountTotal,
		Currency:        strings.ToUpper(session.Currency),
		CustomerEmail:   session.CustomerEmail,
		PlanID:          session.Metadata.PlanID,
		BillingPeriod:   session.Metadata.BillingPeriod,
		RawPayload:      body,
	}, nil
}

func providerError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%w: %s returned %d: %s", models.ErrProviderFailure, provider, resp.StatusCode, string(body))
}
