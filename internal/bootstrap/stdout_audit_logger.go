package bootstrap

import (
	"context"
	"time"

	"github.com/jesser-selmi/idos-front/internal/shared/contextutil"
	"go.uber.org/zap"
)

// StdoutAuditLogger writes audit entries through zap. Entries raised while
// serving a request carry its request_id and user_id.
type StdoutAuditLogger struct{}

func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	fields := []zap.Field{
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	}
	if rid := contextutil.GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid := contextutil.GetUserID(ctx); uid != "" {
		fields = append(fields, zap.String("user_id", uid))
	}

	zap.L().Named("audit").Info("audit event", fields...)
}
