package hook

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook/dispatch"
)

const instrumentationScope = "github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"

// instruments records spans and metrics for dispatch passes.
type instruments struct {
	tracer     trace.Tracer
	dispatches metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) *instruments {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationScope)
	inst := &instruments{tracer: tp.Tracer(instrumentationScope)}

	var err error
	if inst.dispatches, err = meter.Int64Counter("hook.dispatches",
		metric.WithDescription("Number of dispatch passes"),
	); err != nil {
		inst.dispatches = metricnoop.Int64Counter{}
	}
	if inst.failures, err = meter.Int64Counter("hook.handler.errors",
		metric.WithDescription("Number of handlers that returned an error or panicked"),
	); err != nil {
		inst.failures = metricnoop.Int64Counter{}
	}
	if inst.duration, err = meter.Float64Histogram("hook.dispatch.duration",
		metric.WithDescription("Duration of dispatch passes"),
		metric.WithUnit("ms"),
	); err != nil {
		inst.duration = metricnoop.Float64Histogram{}
	}

	return inst
}

// start opens the span covering one dispatch pass.
func (i *instruments) start(ctx context.Context, name, hook string, kind Kind, handlers int) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("hook.name", hook),
			attribute.String("hook.kind", kind.String()),
			attribute.Int("hook.handlers", handlers),
		),
	)
}

// observe is installed as the result observer of both dispatchers.
func (i *instruments) observe(ctx context.Context, result dispatch.Result) {
	span := trace.SpanFromContext(ctx)

	status := "ok"
	switch {
	case result.IsPanic():
		status = "panic"
	case result.IsError():
		status = "error"
	}

	attrs := []attribute.KeyValue{
		attribute.String("handler.id", result.ID),
		attribute.String("handler.status", status),
		attribute.Int64("handler.duration_us", result.Duration.Microseconds()),
	}
	if status != "ok" {
		hookName := spanHook(ctx)
		i.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("hook.name", hookName),
			attribute.String("handler.status", status),
		))
		if err := result.Err(hookName); err != nil {
			attrs = append(attrs, attribute.String("error", err.Error()))
		}
	}
	span.AddEvent("hook.handler", trace.WithAttributes(attrs...))
}

// finish closes the span of a pass and records its metrics.
func (i *instruments) finish(ctx context.Context, span trace.Span, hook string, kind Kind, failures int, begin time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("hook.name", hook),
		attribute.String("hook.kind", kind.String()),
	)
	i.dispatches.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(time.Since(begin).Microseconds())/1000, attrs)

	span.SetAttributes(attribute.Int("hook.errors", failures))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type spanHookKey struct{}

// withSpanHook stores the hook name for the observer, which only receives
// the dispatch context.
func withSpanHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, spanHookKey{}, hook)
}

func spanHook(ctx context.Context) string {
	hook, _ := ctx.Value(spanHookKey{}).(string)
	return hook
}
