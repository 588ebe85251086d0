package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockpool/backend/internal/domain/deduction"
)

// ZapSink records classified errors and business events through the
// structured logger. It never fails: audit capture must not disturb
// the deduction flow it observes.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates an audit sink backed by the given logger
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) CaptureError(_ context.Context, err *deduction.DeductionError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("error_id", err.ID.String()),
		zap.String("error_type", string(err.Type)),
		zap.String("severity", string(err.Severity)),
		zap.Bool("recoverable", err.Recoverable),
		zap.Time("occurred_at", err.Timestamp),
	}
	if len(err.Context) > 0 {
		fields = append(fields, zap.Any("context", err.Context))
	}

	switch err.Severity {
	case deduction.SeverityCritical, deduction.SeverityHigh:
		s.logger.Error(err.Message, fields...)
	case deduction.SeverityMedium:
		s.logger.Warn(err.Message, fields...)
	default:
		s.logger.Info(err.Message, fields...)
	}
}

func (s *ZapSink) TrackEvent(_ context.Context, name string, payload map[string]any) {
	s.logger.Info("event tracked",
		zap.String("event", name),
		zap.Any("payload", payload),
	)
}

var _ deduction.AuditSink = (*ZapSink)(nil)
