// Package telemetry wires OpenTelemetry tracing for the runtime.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "threadkit"

// Init configures the global tracer provider. With an empty endpoint the
// provider is installed without an exporter, so spans stay local no-ops.
// Shutdown happens when ctx is cancelled.
func Init(ctx context.Context, endpoint string) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return fmt.Errorf("creating otel resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("creating trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	go func() {
		<-ctx.Done()
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Debug("Tracer provider shutdown failed", "error", err)
		}
	}()

	return nil
}

// Tracer returns the runtime tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(serviceName)
}

// RecordToolCall annotates the current span with the outcome of one tool
// call.
func RecordToolCall(ctx context.Context, toolName, sessionID, agentName string, duration time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool.name", toolName),
		attribute.String("session.id", sessionID),
		attribute.String("agent", agentName),
		attribute.Int64("tool.duration_ms", duration.Milliseconds()),
		attribute.Bool("tool.error", err != nil),
	}
	span.AddEvent("tool.call", trace.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
	}
}
