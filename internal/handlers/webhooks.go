package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// maxWebhookBody caps webhook payload size at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookProcessor authenticates and records a provider notification
type WebhookProcessor interface {
	HandleWebhook(r *http.Request, provider string, body []byte) error
}

// WebhookHandler receives provider callbacks
type WebhookHandler struct {
	service WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(service WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Receive processes POST /webhooks/{provider}. Signature failures return
// 401 so the provider retries are visibly rejected; processing errors
// return 500 so the provider redelivers.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		pkghttp.WriteBadRequest(w, "failed to read request body")
		return
	}

	if err := h.service.HandleWebhook(r, provider, body); err != nil {
		switch {
		case errors.Is(err, models.ErrWebhookSignature):
			pkghttp.WriteUnauthorized(w, "signature verification failed")
		case errors.Is(err, models.ErrProviderUnavailable):
			pkghttp.WriteNotFound(w, "unknown provider")
		default:
			pkghttp.WriteInternalError(w, "webhook processing failed")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
