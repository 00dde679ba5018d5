package observability

import (
	"context"

	"go.uber.org/zap"

	"github.com/you/storefront/domain"
)

// ZapAuditLogger implements domain.AuditLogger on top of a zap logger
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit logger writing to the "audit" child logger
func NewAuditLogger(logger *zap.Logger) domain.AuditLogger {
	return &ZapAuditLogger{logger: logger.Named("audit")}
}

// LogEvent implements domain.AuditLogger
func (a *ZapAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Uint("user_id", event.UserID),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if event.Success {
		a.logger.Info("audit", fields...)
	} else {
		a.logger.Warn("audit", fields...)
	}
	return nil
}
