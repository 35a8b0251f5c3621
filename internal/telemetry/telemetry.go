// Package telemetry provides OpenTelemetry setup for hookctl.
//
// Telemetry is disabled by default. When disabled, Init installs no-op
// providers so instrumented code pays nothing.
//
// # Configuration
//
//	[telemetry]
//	enabled = true          # install the SDK providers
//	service_name = "hookctl"
//	metric_interval = "15s" # stdout metric export period
//
// Spans and metrics are written by the stdout exporters to the configured
// writer (stderr by default).
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/ReactiumCore/ReactiumFramework-sub002"

// Config configures telemetry.
type Config struct {
	// Enabled installs the SDK providers and stdout exporters.
	Enabled bool
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string
	// Version is reported as the service.version resource attribute.
	Version string
	// MetricInterval is the stdout metric export period. Defaults to 15s.
	MetricInterval time.Duration
	// Output receives exported spans and metrics. Defaults to os.Stderr.
	Output io.Writer
}

// Providers holds the installed providers and flushes them on Shutdown.
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	shutdownFns []func(context.Context) error
}

// Init builds the providers described by cfg and installs them globally.
// When cfg.Enabled is false it installs no-op providers and returns
// immediately.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	if !cfg.Enabled {
		p := &Providers{
			TracerProvider: tracenoop.NewTracerProvider(),
			MeterProvider:  metricnoop.NewMeterProvider(),
		}
		otel.SetTracerProvider(p.TracerProvider)
		otel.SetMeterProvider(p.MeterProvider)
		return p, nil
	}

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hookctl"
	}
	if cfg.MetricInterval <= 0 {
		cfg.MetricInterval = 15 * time.Second
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Output), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExp),
	)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Output))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(cfg.MetricInterval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		shutdownFns:    []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func (p *Providers) Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return p.TracerProvider.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func (p *Providers) Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return p.MeterProvider.Meter(name)
}

// Shutdown flushes all spans and metrics and shuts the providers down.
// It is safe to call more than once.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdownFns = nil
	return errors.Join(errs...)
}
