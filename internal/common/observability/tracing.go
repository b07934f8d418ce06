package observability

import (
	"fmt"

	"onboarding-workers/internal/common/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the named tracer from the global provider. It is a no-op
// tracer until EnableTracing has run.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// EnableTracing installs a tracer provider that batches spans to Jaeger.
func (o *Observability) EnableTracing(serviceName string, cfg config.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required when tracing is enabled")
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return fmt.Errorf("create jaeger exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(provider)
	o.tracerShutdown = provider.Shutdown

	o.logger.Info("tracing enabled", map[string]interface{}{
		"endpoint":    cfg.JaegerEndpoint,
		"sampleRatio": cfg.SampleRatio,
	})
	return nil
}
