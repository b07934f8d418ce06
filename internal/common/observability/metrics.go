package observability

import (
	"context"
	"time"

	"onboarding-workers/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerShutdown func(context.Context) error
	meter          otelmetric.Meter
	taskCounter    otelmetric.Int64Counter
	taskDuration   otelmetric.Float64Histogram
	logger         logger.Logger
}

// New registers a meter provider that exports through the Prometheus
// registry served on /metrics.
func New(serviceName string, log logger.Logger) *Observability {
	o := &Observability{logger: log.WithFields(map[string]interface{}{"component": "observability"})}

	exporter, err := prometheus.New()
	if err != nil {
		o.logger.Warn("prometheus exporter unavailable, otel metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	taskCounter, _ := meter.Int64Counter(
		"onboarding.tasks.processed",
		otelmetric.WithDescription("Number of onboarding tasks processed"),
	)

	taskDuration, _ := meter.Float64Histogram(
		"onboarding.tasks.duration",
		otelmetric.WithDescription("Onboarding task processing duration"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.taskCounter = taskCounter
	o.taskDuration = taskDuration
	return o
}

func (o *Observability) RecordTask(ctx context.Context, taskType, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	)
	if o.taskCounter != nil {
		o.taskCounter.Add(ctx, 1, attrs)
	}
	if o.taskDuration != nil {
		o.taskDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.tracerShutdown != nil {
		if err := o.tracerShutdown(ctx); err != nil {
			o.logger.Warn("tracer shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("meter shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
