// Package observability wires tracing and metrics from the service config.
package observability

import (
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/observability/metrics"
	"github.com/pointagehq/pointage/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(newMetricsConfig),
	fx.Provide(newMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.TracingEndpoint,
		ExporterProtocol: cfg.TracingProtocol,
		SamplingRatio:    cfg.SamplingRatio,
	}
}

func newMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func newMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}
