// Package gateway abstracts payment providers behind a single Adapter
// interface. Provider selection happens once at the HTTP boundary; the
// rest of the system never branches on provider strings.
package gateway

import (
	"context"
	"net/http"

	"github.com/openshelf/openshelf/internal/models"
)

// CheckoutRequest carries everything an adapter needs to start a hosted
// checkout for a plan.
type CheckoutRequest struct {
	Plan          *models.PricingPlan
	BillingPeriod string
	CustomerEmail string
	OrderID       string
	SuccessURL    string
	CancelURL     string
	// IdempotencyKey is fresh per attempt. Providers that support it use
	// it to dedupe retried creation calls.
	IdempotencyKey string
}

// CheckoutSession is the provider's answer: where to send the customer.
type CheckoutSession struct {
	RedirectURL string
	SessionID   string
}

// PaymentResult is a provider-confirmed payment in normalized form.
type PaymentResult struct {
	Provider        string
	ProviderRef     string
	ProviderEventID string
	TransactionID   string
	OrderID         string
	AmountCents     int
	Currency        string
	CustomerEmail   string
	PlanID          string
	BillingPeriod   string
	RawPayload      []byte
}

// Adapter is implemented once per payment provider.
type Adapter interface {
	Provider() string

	// CreateCheckout starts a hosted checkout and returns the redirect URL.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// VerifyWebhook authenticates a provider callback and extracts the
	// payment it reports. The signature check happens before any payload
	// field is trusted; a failed check returns ErrWebhookSignature.
	// A nil result with nil error means the event type is not one we act on.
	VerifyWebhook(r *http.Request, body []byte) (*PaymentResult, error)

	// ReconcileRedirect validates the query parameters of a success
	// redirect against the provider's API. Redirects alone are never
	// proof of payment.
	ReconcileRedirect(ctx context.Context, params map[string]string) (*PaymentResult, error)
}

// Registry holds the adapters enabled for this deployment.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for a provider, or ErrProviderUnavailable when
// the provider is unknown or not enabled.
func (r *Registry) Get(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, models.ErrProviderUnavailable
	}
	return a, nil
}

// Providers lists the enabled provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
