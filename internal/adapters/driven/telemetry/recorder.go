package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.SyncMetrics = (*Recorder)(nil)

// instrumentation is the meter and tracer name.
const instrumentation = "certsync"

// Metric names.
const (
	MetricRuns        = "certsync.sync.runs"
	MetricRunLatency  = "certsync.sync.run.latency_ms"
	MetricPages       = "certsync.sync.pages"
	MetricPageLatency = "certsync.sync.page.latency_ms"
	MetricRecords     = "certsync.sync.records"
	MetricFailures    = "certsync.sync.failures"
)

// Option configures a Recorder.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithMeterProvider sets the meter provider instead of the global one.
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = p }
}

// WithTracerProvider sets the tracer provider instead of the global one.
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = p }
}

// Recorder implements driven.SyncMetrics using OpenTelemetry.
type Recorder struct {
	tracer trace.Tracer

	runs        metric.Int64Counter
	runLatency  metric.Float64Histogram
	pages       metric.Int64Counter
	pageLatency metric.Float64Histogram
	records     metric.Int64Counter
	failures    metric.Int64Counter
}

// NewRecorder creates the sync instruments.
func NewRecorder(opts ...Option) (*Recorder, error) {
	o := options{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentation)

	runs, err := meter.Int64Counter(MetricRuns,
		metric.WithDescription("Number of finished sync runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram(MetricRunLatency,
		metric.WithDescription("Sync run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	pages, err := meter.Int64Counter(MetricPages,
		metric.WithDescription("Number of pages fetched and committed"),
	)
	if err != nil {
		return nil, err
	}

	pageLatency, err := meter.Float64Histogram(MetricPageLatency,
		metric.WithDescription("Page fetch and commit latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(MetricRecords,
		metric.WithDescription("Number of records written"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(MetricFailures,
		metric.WithDescription("Number of failed pages by error kind"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		tracer:      o.tracerProvider.Tracer(instrumentation),
		runs:        runs,
		runLatency:  runLatency,
		pages:       pages,
		pageLatency: pageLatency,
		records:     records,
		failures:    failures,
	}, nil
}

// StartRun starts the run span.
func (r *Recorder) StartRun(ctx context.Context, run *domain.SyncRun) context.Context {
	ctx, _ = r.tracer.Start(ctx, "certsync.run",
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("run.mode", string(run.Mode)),
			attribute.String("run.cursor", run.Cursor),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx
}

// EndRun records the run outcome and ends the run span.
func (r *Recorder) EndRun(ctx context.Context, run *domain.SyncRun) {
	attrs := []attribute.KeyValue{
		attribute.String("state", run.State.String()),
		attribute.String("mode", string(run.Mode)),
	}
	r.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	if run.EndedAt != nil {
		r.runLatency.Record(ctx, float64(run.EndedAt.Sub(run.StartedAt).Milliseconds()), metric.WithAttributes(attrs...))
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("run.state", run.State.String()),
		attribute.Int("run.pages", run.Pages),
		attribute.Int("run.fetched", run.Fetched),
	)
	if run.Error != nil && run.State == domain.RunFailed {
		span.SetStatus(codes.Error, run.Error.Message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartPage starts a page span as a child of the run span.
func (r *Recorder) StartPage(ctx context.Context, cursor string) context.Context {
	ctx, _ = r.tracer.Start(ctx, "certsync.page",
		trace.WithAttributes(attribute.String("page.cursor", cursor)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx
}

// EndPage records the page outcome and ends the page span.
func (r *Recorder) EndPage(ctx context.Context, result domain.UpsertResult, duration time.Duration, err error) {
	outcome := "committed"
	if err != nil {
		outcome = "failed"
	}
	r.pages.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	r.pageLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attribute.String("outcome", outcome)))

	span := trace.SpanFromContext(ctx)
	if err != nil {
		kind := string(domain.KindOf(err))
		r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", kind))
	} else {
		if result.Inserted > 0 {
			r.records.Add(ctx, int64(result.Inserted), metric.WithAttributes(attribute.String("op", "inserted")))
		}
		if result.Updated > 0 {
			r.records.Add(ctx, int64(result.Updated), metric.WithAttributes(attribute.String("op", "updated")))
		}
		span.SetAttributes(
			attribute.Int("page.inserted", result.Inserted),
			attribute.Int("page.updated", result.Updated),
		)
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
