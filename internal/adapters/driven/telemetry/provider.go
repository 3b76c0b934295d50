package telemetry

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Ensure Provider implements the interface.
var _ driving.MetricsReporter = (*Provider)(nil)

// Provider owns the process's meter and tracer providers. Metrics are kept
// in memory and read on demand; finished spans are written to the verbose log.
type Provider struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	traces *sdktrace.TracerProvider
}

// NewProvider creates the SDK providers.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader: reader,
		meters: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		traces: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanLogger{})),
	}
}

// RecorderOptions returns the options that point a Recorder at p.
func (p *Provider) RecorderOptions() []Option {
	return []Option{WithMeterProvider(p.meters), WithTracerProvider(p.traces)}
}

// Metrics collects the current value of every instrument, sorted by name.
func (p *Provider) Metrics(ctx context.Context) ([]domain.MetricPoint, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var points []domain.MetricPoint
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			points = append(points, metricPoints(m)...)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return attrKey(points[i].Attributes) < attrKey(points[j].Attributes)
	})
	return points, nil
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.meters.Shutdown(ctx), p.traces.Shutdown(ctx))
}

func metricPoints(m metricdata.Metrics) []domain.MetricPoint {
	var points []domain.MetricPoint
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			points = append(points, domain.MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
		}
	case metricdata.Sum[float64]:
		for _, dp := range data.DataPoints {
			points = append(points, domain.MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: dp.Value})
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			points = append(points, domain.MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
		}
	default:
		logger.Debug("telemetry: skipping metric %s of type %T", m.Name, m.Data)
	}
	return points
}

func attrMap(set attribute.Set) map[string]string {
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func attrKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		keys = append(keys, k+"="+v)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// spanLogger writes every finished span to the debug log.
type spanLogger struct{}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	status := "ok"
	if s.Status().Code == codes.Error {
		status = "error: " + s.Status().Description
	}
	logger.Debug("trace: %s took %s (%s)", s.Name(), s.EndTime().Sub(s.StartTime()), status)
}

func (spanLogger) Shutdown(context.Context) error   { return nil }
func (spanLogger) ForceFlush(context.Context) error { return nil }
