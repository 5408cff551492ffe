package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// AuditTrailReader lists persisted audit entries
type AuditTrailReader interface {
	ListEntries(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditLogHandler serves the admin audit trail view
type AuditLogHandler struct {
	trail AuditTrailReader
}

func NewAuditLogHandler(trail AuditTrailReader) *AuditLogHandler {
	return &AuditLogHandler{trail: trail}
}

// AuditLogResponse is a single audit trail entry
type AuditLogResponse struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	ActorID       string         `json:"actor_id,omitempty"`
	Action        string         `json:"action"`
	Success       bool           `json:"success"`
	FailureReason string         `json:"failure_reason,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ListAuditLogs returns recent audit entries, newest first
func (h *AuditLogHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	eventType := r.URL.Query().Get("event_type")

	entries, err := h.trail.ListEntries(r.Context(), eventType, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*AuditLogResponse, len(entries))
	for i, e := range entries {
		item := &AuditLogResponse{
			ID:        e.ID.String(),
			EventType: e.EventType,
			Action:    e.Action,
			Success:   e.Success,
			CreatedAt: e.CreatedAt,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.String()
		}
		if e.FailureReason != nil {
			item.FailureReason = *e.FailureReason
		}
		if e.IPAddress != nil {
			item.IPAddress = *e.IPAddress
		}
		if len(e.Metadata) > 0 {
			item.Metadata = e.Metadata
		}
		resp[i] = item
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"entries": resp})
}
