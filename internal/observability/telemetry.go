package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls dispatch tracing.
type Config struct {
	Enabled bool `json:"enabled"`
	// Exporter is "otlp-http" (default) or "none". With "none" spans are
	// still created, so dispatch records carry trace IDs, but nothing is
	// exported.
	Exporter    string  `json:"exporter"`
	Endpoint    string  `json:"endpoint"`
	ServiceName string  `json:"service_name"`
	SampleRate  float64 `json:"sample_rate"`
}

var (
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer("")
)

// Init installs the process tracer. Disabled tracing leaves the no-op
// tracer in place.
func Init(ctx context.Context, cfg Config) error {
	provider, tracer = nil, noop.NewTracerProvider().Tracer("")
	if !cfg.Enabled {
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "faasr"
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler(cfg.SampleRate))}
	switch cfg.Exporter {
	case "", "otlp-http", "otlp":
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("create OTLP exporter: %w", err)
		}
		// One dispatch per process: export on span end instead of batching.
		opts = append(opts, sdktrace.WithSyncer(exp))
	case "none":
	default:
		return fmt.Errorf("unknown exporter: %s", cfg.Exporter)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	provider = sdktrace.NewTracerProvider(opts...)
	tracer = provider.Tracer(cfg.ServiceName)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 0 && rate < 1 {
		return sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.AlwaysSample()
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return provider.Shutdown(ctx)
}

// Tracer returns the process tracer.
func Tracer() trace.Tracer { return tracer }

// Enabled reports whether Init installed a real tracer.
func Enabled() bool { return provider != nil }
