package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"dpt/internal/config"
)

const (
	ServiceVersion = "0.4.0"
	MeterName      = "dpt"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and Prometheus-backed metrics. Disabled
// signals fall back to the global no-op providers.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		otel.SetTracerProvider(tp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	providers.Tracer = otel.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))

	if cfg.MetricsEnabled {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	}
	providers.Meter = otel.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "opentelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	RowsRead        metric.Int64Counter
	RowsAggregated  metric.Int64Counter
	RowsSkipped     metric.Int64Counter
	RowsZeroQty     metric.Int64Counter
	AggregationTime metric.Float64Histogram

	StepExecutions metric.Int64Counter
	StepDuration   metric.Float64Histogram
	StepErrors     metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m    BusinessMetrics
		errs []error
		err  error
	)

	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errs = append(errs, err)
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)

	m.RowsRead, err = meter.Int64Counter("st_rows_read_total",
		metric.WithDescription("Data rows read from ST exports"))
	errs = append(errs, err)
	m.RowsAggregated, err = meter.Int64Counter("st_rows_aggregated_total",
		metric.WithDescription("Rows that contributed to the result maps"))
	errs = append(errs, err)
	m.RowsSkipped, err = meter.Int64Counter("st_rows_skipped_total",
		metric.WithDescription("Malformed rows skipped in lenient mode"))
	errs = append(errs, err)
	m.RowsZeroQty, err = meter.Int64Counter("st_rows_zero_quantity_total",
		metric.WithDescription("Rows excluded because quantity was zero"))
	errs = append(errs, err)
	m.AggregationTime, err = meter.Float64Histogram("st_aggregation_duration_seconds",
		metric.WithDescription("Wall time of one aggregation run"), metric.WithUnit("s"))
	errs = append(errs, err)

	m.StepExecutions, err = meter.Int64Counter("operation_steps_total",
		metric.WithDescription("Total number of operation steps executed"))
	errs = append(errs, err)
	m.StepDuration, err = meter.Float64Histogram("operation_step_duration_seconds",
		metric.WithDescription("Operation step execution duration in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.StepErrors, err = meter.Int64Counter("operation_errors_total",
		metric.WithDescription("Total number of operation step errors"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordAggregation records the counters of a finished aggregation run.
func RecordAggregation(ctx context.Context, m *BusinessMetrics, read, aggregated, skipped, zero int64, duration time.Duration, strict bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("strict", strict))
	m.RowsRead.Add(ctx, read, attrs)
	m.RowsAggregated.Add(ctx, aggregated, attrs)
	m.RowsSkipped.Add(ctx, skipped, attrs)
	m.RowsZeroQty.Add(ctx, zero, attrs)
	m.AggregationTime.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records metrics for one operation step
func RecordStep(ctx context.Context, m *BusinessMetrics, stepID string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.StepErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
	attrs := metric.WithAttributes(attribute.String("step.id", stepID), attribute.String("status", status))
	m.StepExecutions.Add(ctx, 1, attrs)
	m.StepDuration.Record(ctx, duration.Seconds(), attrs)
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
