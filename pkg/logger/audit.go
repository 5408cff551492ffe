package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditSink persists audit events. Sink failures must never affect the
// operation being audited, so implementations log and swallow errors.
type AuditSink interface {
	Record(auditType string, event AuditEvent)
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	sink   AuditSink
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// SetSink attaches a persistence sink. Events keep going to the
// structured log either way.
func (al *AuditLogger) SetSink(sink AuditSink) {
	al.sink = sink
}

func (al *AuditLogger) log(auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)

	if al.sink != nil {
		al.sink.Record(auditType, event)
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	al.log("auth", event)
}

// LogPaymentEvent logs payment lifecycle events (checkout creation,
// confirmation, signup token issue/consume)
func (al *AuditLogger) LogPaymentEvent(event AuditEvent) {
	al.log("payment", event)
}

// LogSecurityEvent logs potential security incidents such as rejected
// webhook signatures
func (al *AuditLogger) LogSecurityEvent(event AuditEvent) {
	al.log("security", event)
}

// LogAdminAction logs administrative changes (user management, plan and
// payment config writes)
func (al *AuditLogger) LogAdminAction(event AuditEvent) {
	al.log("admin", event)
}
