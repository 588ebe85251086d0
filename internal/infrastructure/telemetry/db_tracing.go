package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing registers the otelgorm plugin on the given GORM DB so
// every query produces a span under the active trace. Query variables are
// always excluded from span attributes. No-op when disabled.
func RegisterDBTracing(db *gorm.DB, enabled bool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	logger.Info("Database tracing enabled")
	return nil
}
