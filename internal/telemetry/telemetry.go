// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Settings select where spans are exported.
type Settings struct {
	Endpoint    string // host:port or full URL of an OTLP/HTTP collector; empty disables export
	ServiceName string
}

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a batching OTLP/HTTP tracer provider as the global provider.
// With no endpoint it leaves the global (no-op) provider alone.
func Setup(ctx context.Context, s Settings) (ShutdownFunc, error) {
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		return noop, nil
	}

	tp, err := NewProvider(ctx, s)
	if err != nil {
		return noop, err
	}
	otel.SetTracerProvider(tp)
	log.Printf("[Telemetry] Exporting traces to %s", endpoint)
	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider exporting to s.Endpoint without
// touching the global provider.
func NewProvider(ctx context.Context, s Settings) (*sdktrace.TracerProvider, error) {
	endpoint := strings.TrimSpace(s.Endpoint)
	var opts []otlptracehttp.Option
	switch {
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		opts = append(opts, otlptracehttp.WithEndpointURL(strings.TrimRight(endpoint, "/")+"/v1/traces"))
	default:
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	name := s.ServiceName
	if name == "" {
		name = "pocket-eli5"
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
