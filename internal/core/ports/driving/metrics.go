package driving

import (
	"context"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// MetricsReporter exposes the sync telemetry collected by this process.
type MetricsReporter interface {
	// Metrics returns the current value of every recorded metric.
	Metrics(ctx context.Context) ([]domain.MetricPoint, error)
}
