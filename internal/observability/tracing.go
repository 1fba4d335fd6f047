// Package observability provides OpenTelemetry tracing for pipeline runs.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"museumtopics/config"
)

// TracerName is the instrumentation scope for museumtopics spans.
const TracerName = "museumtopics"

// Version is reported as the service version on exported spans.
var Version = "dev"

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs an OTLP exporter when cfg.OTLPEndpoint is set.
// Otherwise the global no-op tracer is used and nothing leaves the process.
func InitTracing(ctx context.Context, cfg config.TracingConfig) (*TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = TracerName
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return newProvider(sdktrace.WithBatcher(exporter), res, cfg.SampleRate), nil
}

// NewWithProcessor builds a provider around an arbitrary span processor,
// for example an in-memory recorder in tests.
func NewWithProcessor(sp sdktrace.SpanProcessor, sampleRate float64) *TracerProvider {
	return newProvider(sdktrace.WithSpanProcessor(sp), resource.Default(), sampleRate)
}

func newProvider(opt sdktrace.TracerProviderOption, res *resource.Resource, sampleRate float64) *TracerProvider {
	var sampler sdktrace.Sampler
	switch {
	case sampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case sampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(sampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		opt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}
}

// Shutdown flushes and stops the exporter, if any.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// StartRunSpan starts the span covering one column run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, column string, rows int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("museumtopics.column", column),
			attribute.Int("museumtopics.rows", rows),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage.
func StartStageSpan(ctx context.Context, tracer trace.Tracer, stage, column string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("museumtopics.stage", stage),
			attribute.String("museumtopics.column", column),
		),
	)
}

// RecordRunResult records a finished run on its span.
func RecordRunResult(span trace.Span, state string, documents, topics, outliers int) {
	span.SetAttributes(
		attribute.String("museumtopics.state", state),
		attribute.Int("museumtopics.documents", documents),
		attribute.Int("museumtopics.topics", topics),
		attribute.Int("museumtopics.outliers", outliers),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
