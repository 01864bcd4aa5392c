package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"cachebench/config"
	"cachebench/retry"
)

const scopeName = "cachebench"

// Setup installs a tracer provider exporting OTLP over gRPC. The returned
// shutdown flushes pending spans; it is a no-op when tracing is disabled.
func Setup(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OtelTracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpointURL(cfg.OtelExporterEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.OtelServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// AttemptObserver returns an executor hook that records one CLIENT span
// per attempt, success or failure, so retries stay visible in traces
// even though only the final result reaches the stats layer.
func AttemptObserver(cfg *config.Config) func(retry.Attempt) {
	dbSystem := "redis"
	if cfg.CacheType == config.TypeValkey || cfg.CacheType == config.TypeValkeyCluster {
		dbSystem = "valkey"
	}
	tracer := otel.Tracer(scopeName)

	return func(a retry.Attempt) {
		end := time.Now()
		_, span := tracer.Start(context.Background(), a.Operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithTimestamp(end.Add(-a.Latency)),
		)
		span.SetAttributes(
			attribute.String("db.system", dbSystem),
			attribute.String("db.statement", a.Operation+" "+a.Key),
			attribute.Int("db.operation.attempt", a.Number),
		)
		if a.Err != nil {
			span.RecordError(a.Err)
			span.SetStatus(codes.Error, retry.Classify(a.Err).String()+" failure")
		}
		span.End(trace.WithTimestamp(end))
	}
}
