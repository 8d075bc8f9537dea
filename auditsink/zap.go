package auditsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/boardhub/tokenauth"
)

// ZapSink writes each event as one structured log entry. Failed events are
// logged at Warn, the rest at Info.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event tokenauth.AuditEvent) {
	fields := []zap.Field{
		zap.String("id", event.ID),
		zap.Time("timestamp", event.Timestamp),
		zap.String("subject", event.Subject),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if event.Success {
		s.logger.Info(event.EventType, fields...)
		return
	}
	s.logger.Warn(event.EventType, fields...)
}

var _ tokenauth.AuditSink = (*ZapSink)(nil)
