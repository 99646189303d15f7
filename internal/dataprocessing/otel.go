package dataprocessing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "costcompare.dataprocessing"
)

// LoadTracer instruments table loads with spans and row metrics.
type LoadTracer struct {
	tracer       trace.Tracer
	rowsTotal    metric.Int64Counter
	loadDuration metric.Float64Histogram
}

// NewLoadTracer creates the pipeline instruments on meter. A nil meter uses
// the global meter provider, which is a no-op until telemetry is initialized.
func NewLoadTracer(meter metric.Meter) (*LoadTracer, error) {
	if meter == nil {
		meter = otel.Meter(TracerName)
	}

	rowsTotal, err := meter.Int64Counter(
		"pipeline_rows_total",
		metric.WithDescription("Rows read by table loads, by outcome"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}

	loadDuration, err := meter.Float64Histogram(
		"pipeline_load_duration_seconds",
		metric.WithDescription("Duration of complete table loads"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create load duration histogram: %w", err)
	}

	return &LoadTracer{
		tracer:       otel.Tracer(TracerName),
		rowsTotal:    rowsTotal,
		loadDuration: loadDuration,
	}, nil
}

var (
	defaultTracerOnce sync.Once
	defaultTracer     *LoadTracer
)

func globalLoadTracer() *LoadTracer {
	defaultTracerOnce.Do(func() {
		t, err := NewLoadTracer(nil)
		if err != nil {
			t = &LoadTracer{tracer: otel.Tracer(TracerName)}
		}
		defaultTracer = t
	})
	return defaultTracer
}

// startLoad opens the span covering one table load.
func (lt *LoadTracer) startLoad(ctx context.Context, table, source string) (context.Context, trace.Span) {
	return lt.tracer.Start(ctx, "dataprocessing.load."+table,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("table.name", table),
			attribute.String("table.source", source),
		),
	)
}

// endLoad records the outcome of a load on its span and metrics.
func (lt *LoadTracer) endLoad(ctx context.Context, span trace.Span, table string, stats LoadStats, err error) {
	defer span.End()

	span.SetAttributes(
		attribute.Int("rows.read", stats.RowsRead),
		attribute.Int("rows.accepted", stats.RowsAccepted),
		attribute.Int("rows.rejected", stats.RowsRejected),
		attribute.Int("table.groups", stats.Groups),
	)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "table loaded")
	}

	if lt.rowsTotal != nil {
		lt.rowsTotal.Add(ctx, int64(stats.RowsAccepted), metric.WithAttributes(
			attribute.String("table", table),
			attribute.String("outcome", "accepted"),
		))
		for reason, n := range stats.Rejections {
			lt.rowsTotal.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("table", table),
				attribute.String("outcome", reason),
			))
		}
	}
	if lt.loadDuration != nil {
		lt.loadDuration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(
			attribute.String("table", table),
			attribute.String("status", status),
		))
	}
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Microsecond)
}
