package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/pkg/logger"
)

// AuditLogRepository persists audit trail entries
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditTrail persists audit events to the database. It implements
// logger.AuditSink and writes asynchronously so a slow or failing
// insert never blocks the audited operation.
type AuditTrail struct {
	repo   AuditLogRepository
	logger *slog.Logger
}

func NewAuditTrail(repo AuditLogRepository, log *slog.Logger) *AuditTrail {
	return &AuditTrail{repo: repo, logger: log}
}

// Record satisfies logger.AuditSink.
func (t *AuditTrail) Record(auditType string, event logger.AuditEvent) {
	entry := &models.AuditLog{
		EventType: event.EventType,
		Action:    auditType,
		Success:   event.Success,
	}

	if id, err := uuid.Parse(event.UserID); err == nil {
		entry.ActorID = &id
	}
	if event.FailureReason != "" {
		reason := event.FailureReason
		entry.FailureReason = &reason
	}
	if event.IPAddress != "" {
		ip := event.IPAddress
		entry.IPAddress = &ip
	}
	if event.UserAgent != "" {
		ua := event.UserAgent
		entry.UserAgent = &ua
	}
	if len(event.Metadata) > 0 {
		entry.Metadata = make(models.AuditMetadata, len(event.Metadata))
		for k, v := range event.Metadata {
			entry.Metadata[k] = v
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := t.repo.Create(ctx, entry); err != nil {
			t.logger.Error("failed to persist audit entry",
				slog.String("event_type", entry.EventType),
				slog.Any("error", err))
		}
	}()
}

// ListEntries returns recent audit entries for the admin view.
func (t *AuditTrail) ListEntries(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := t.repo.List(ctx, eventType, limit, offset)
	if err != nil {
		t.logger.Error("failed to list audit entries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}
