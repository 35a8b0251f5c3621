package hook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
)

func appendSync(id string) SyncFunc {
	return func(hc *Context) error {
		order, _ := Value[[]string](hc, "order")
		hc.Set("order", append(order, id))
		return nil
	}
}

func appendAsync(id string) AsyncFunc {
	return func(_ context.Context, hc *Context) error {
		order, _ := Value[[]string](hc, "order")
		hc.Set("order", append(order, id))
		return nil
	}
}

func order(hc *Context) []string {
	o, _ := Value[[]string](hc, "order")
	return o
}

func TestHooks_Register_Validation(t *testing.T) {
	h := New()

	tests := []struct {
		name     string
		register func() error
		expected error
	}{
		{"empty hook", func() error {
			_, err := h.Register("", appendSync("a"))
			return err
		}, ErrInvalidHook},
		{"blank hook", func() error {
			_, err := h.RegisterAsync("  ", appendAsync("a"))
			return err
		}, ErrInvalidHook},
		{"nil sync", func() error {
			_, err := h.Register("evt", nil)
			return err
		}, ErrNilCallback},
		{"nil async", func() error {
			_, err := h.RegisterAsync("evt", nil)
			return err
		}, ErrNilCallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.register(); !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}

	if h.Registry().Count() != 0 {
		t.Errorf("expected nothing registered, got %d", h.Registry().Count())
	}
}

func TestHooks_Register_GeneratesIDs(t *testing.T) {
	h := New()

	id1, err := h.Register("evt", appendSync("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, _ := h.Register("evt", appendSync("b"))

	if id1 == "" || id1 == id2 {
		t.Errorf("expected distinct generated ids, got %q and %q", id1, id2)
	}
}

func TestHooks_Register_CustomIDGenerator(t *testing.T) {
	var n atomic.Int64
	h := New(WithIDGenerator(func() string {
		return "h" + strconv.FormatInt(n.Add(1), 10)
	}))

	id, _ := h.Register("evt", appendSync("a"))
	if id != "h1" {
		t.Errorf("expected h1, got %q", id)
	}
}

func TestHooks_Ordering(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("A"), WithID("A"), WithPriority(-100))
	h.Register("evt", appendSync("B"), WithID("B"), WithPriority(100))
	h.Register("evt", appendSync("C"), WithID("C"), WithPriority(-100))

	hc, err := h.RunSync(context.Background(), "evt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"A", "C", "B"}
	if got := order(hc); !equalStrings(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	var listed []string
	for _, d := range h.List("evt") {
		listed = append(listed, d.ID)
	}
	if !equalStrings(listed, expected) {
		t.Errorf("expected List order %v, got %v", expected, listed)
	}
}

func TestHooks_Replacement(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("first"), WithID("x"), WithPriority(PriorityLow))
	h.Register("evt", appendSync("second"), WithID("x"), WithPriority(PriorityHigh))

	list := h.List("evt")
	if len(list) != 1 {
		t.Fatalf("expected exactly one handler, got %d", len(list))
	}
	if list[0].ID != "x" || list[0].Priority != PriorityHigh {
		t.Errorf("expected second registration, got %+v", list[0])
	}

	hc, _ := h.RunSync(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"second"}) {
		t.Errorf("expected second callback to run, got %v", got)
	}
}

func TestHooks_Replacement_ChangesKind(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("sync"), WithID("x"))
	h.RegisterAsync("evt", appendAsync("async"), WithID("x"))

	hc, err := h.RunSync(context.Background(), "evt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order(hc)) != 0 {
		t.Errorf("expected no sync handlers, got %v", order(hc))
	}

	hc, errs, err := h.Run(context.Background(), "evt")
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if got := order(hc); !equalStrings(got, []string{"async"}) {
		t.Errorf("expected async replacement to run, got %v", got)
	}
}

func TestHooks_Run_AsyncIsolation(t *testing.T) {
	h := New()
	boom := errors.New("boom")

	h.RegisterAsync("evt", appendAsync("H1"), WithID("H1"))
	h.RegisterAsync("evt", func(context.Context, *Context) error { return boom }, WithID("H2"))
	h.RegisterAsync("evt", appendAsync("H3"), WithID("H3"))

	hc, errs, err := h.Run(context.Background(), "evt")
	if err != nil {
		t.Fatalf("unexpected dispatcher error: %v", err)
	}

	if got := order(hc); !equalStrings(got, []string{"H1", "H3"}) {
		t.Errorf("expected H1 and H3 mutations, got %v", got)
	}
	if errs.Len() != 1 {
		t.Fatalf("expected 1 captured error, got %d", errs.Len())
	}
	if got, ok := errs.Get("H2"); !ok || !errors.Is(got, boom) {
		t.Errorf("expected boom for H2, got %v", got)
	}
}

func TestHooks_Run_PanicCaptured(t *testing.T) {
	var panicked atomic.Bool
	h := New(WithPanicHandler(func(string, any, []byte) { panicked.Store(true) }))

	h.RegisterAsync("evt", func(context.Context, *Context) error { panic("bad") }, WithID("p"))
	h.RegisterAsync("evt", appendAsync("after"), WithID("after"))

	hc, errs, err := h.Run(context.Background(), "evt")
	if err != nil {
		t.Fatalf("unexpected dispatcher error: %v", err)
	}
	if got, _ := errs.Get("p"); !errors.Is(got, ErrHandlerPanic) {
		t.Errorf("expected ErrHandlerPanic, got %v", got)
	}
	if got := order(hc); !equalStrings(got, []string{"after"}) {
		t.Errorf("expected pass to continue, got %v", got)
	}
	if !panicked.Load() {
		t.Error("expected panic handler to be called")
	}
}

func TestHooks_RunSync_FailFast(t *testing.T) {
	h := New()
	boom := errors.New("boom")

	var h3Called bool
	h.Register("evt", appendSync("H1"), WithID("H1"))
	h.Register("evt", func(*Context) error { return boom }, WithID("H2"))
	h.Register("evt", func(*Context) error {
		h3Called = true
		return nil
	}, WithID("H3"))

	hc, err := h.RunSync(context.Background(), "evt")
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var handlerErr *HandlerError
	if !errors.As(err, &handlerErr) || handlerErr.HandlerID != "H2" || handlerErr.Hook != "evt" {
		t.Errorf("expected HandlerError for H2, got %v", err)
	}
	if h3Called {
		t.Error("expected H3 not to run")
	}
	if got := order(hc); !equalStrings(got, []string{"H1"}) {
		t.Errorf("expected only H1 mutation, got %v", got)
	}
}

func TestHooks_RunSync_Panic(t *testing.T) {
	h := New()
	h.Register("evt", func(*Context) error { panic("bad") }, WithID("p"))

	_, err := h.RunSync(context.Background(), "evt")

	var panicErr *PanicError
	if !errors.As(err, &panicErr) || panicErr.HandlerID != "p" {
		t.Errorf("expected PanicError for p, got %v", err)
	}
	if !errors.Is(err, ErrHandlerPanic) {
		t.Error("expected errors.Is ErrHandlerPanic")
	}
}

func TestHooks_KindsAreSeparate(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("s"))
	h.RegisterAsync("evt", appendAsync("a"))

	hc, _ := h.RunSync(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"s"}) {
		t.Errorf("RunSync: expected [s], got %v", got)
	}

	hc, _, _ = h.Run(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"a"}) {
		t.Errorf("Run: expected [a], got %v", got)
	}
}

func TestHooks_UnregisterIsolation(t *testing.T) {
	h := New()

	h.RegisterAsync("evt", func(_ context.Context, hc *Context) error {
		h.Unregister("victim")
		return appendAsync("remover")(context.Background(), hc)
	}, WithID("remover"), WithPriority(PriorityHigh))
	h.RegisterAsync("evt", appendAsync("victim"), WithID("victim"))

	hc, _, _ := h.Run(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"remover", "victim"}) {
		t.Errorf("expected running pass to keep its snapshot, got %v", got)
	}

	hc, _, _ = h.Run(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"remover"}) {
		t.Errorf("expected victim gone on next pass, got %v", got)
	}
}

func TestHooks_RegisterDuringPass(t *testing.T) {
	h := New()

	h.Register("evt", func(hc *Context) error {
		h.Register("evt", appendSync("late"), WithID("late"))
		return appendSync("first")(hc)
	}, WithID("first"))

	hc, _ := h.RunSync(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"first"}) {
		t.Errorf("expected late handler to wait for next pass, got %v", got)
	}

	hc, _ = h.RunSync(context.Background(), "evt")
	if got := order(hc); !equalStrings(got, []string{"first", "late"}) {
		t.Errorf("expected late handler on next pass, got %v", got)
	}
}

func TestHooks_RoundTrip(t *testing.T) {
	h := New()

	id, err := h.Register("evt", appendSync("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := h.Unregister(id); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}

	if list := h.List("evt"); len(list) != 0 {
		t.Errorf("expected empty list, got %v", list)
	}
	if n := h.Unregister(id); n != 0 {
		t.Errorf("expected unknown id to be a no-op, got %d", n)
	}
}

func TestHooks_ConcreteScenario(t *testing.T) {
	h := New()

	h.RegisterAsync("test", func(_ context.Context, hc *Context) error {
		hc.Set("result", fmt.Sprint(hc.Param(0))+"1")
		return nil
	})
	h.RegisterAsync("test", func(_ context.Context, hc *Context) error {
		result, _ := Value[string](hc, "result")
		hc.Set("result", result+"2")
		return nil
	})

	hc, errs, err := h.Run(context.Background(), "test", "x")
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if got, _ := Value[string](hc, "result"); got != "x12" {
		t.Errorf("expected x12, got %q", got)
	}
}

func TestHooks_UnregisterDomain(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("a"), WithDomain("billing"))
	h.RegisterAsync("evt", appendAsync("b"), WithDomain("billing"))
	h.Register("evt", appendSync("c"), WithDomain("audit"))
	h.Register("other", appendSync("d"), WithDomain("billing"))

	if n := h.UnregisterDomain("evt", "billing"); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if n := len(h.List("evt")); n != 1 {
		t.Errorf("expected 1 remaining on evt, got %d", n)
	}
	if n := len(h.List("other")); n != 1 {
		t.Errorf("expected other hook untouched, got %d", n)
	}
}

func TestHooks_Flush(t *testing.T) {
	h := New()

	h.Register("evt", appendSync("a"))
	h.Register("evt", appendSync("b"))
	h.RegisterAsync("evt", appendAsync("c"))

	if n := h.Flush("evt", KindSync); n != 2 {
		t.Errorf("expected 2 sync flushed, got %d", n)
	}
	if n := h.Flush("evt", KindAny); n != 1 {
		t.Errorf("expected 1 flushed, got %d", n)
	}
	if names := h.Names(); len(names) != 0 {
		t.Errorf("expected no hooks with handlers, got %v", names)
	}
}

func TestHooks_InvalidHookDispatch(t *testing.T) {
	h := New()

	if _, err := h.RunSync(context.Background(), ""); !errors.Is(err, ErrInvalidHook) {
		t.Errorf("RunSync: expected ErrInvalidHook, got %v", err)
	}
	if _, _, err := h.Run(context.Background(), ""); !errors.Is(err, ErrInvalidHook) {
		t.Errorf("Run: expected ErrInvalidHook, got %v", err)
	}
}

func TestHooks_RunUnknownHook(t *testing.T) {
	h := New()

	hc, errs, err := h.Run(context.Background(), "nothing", 1)
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if hc.Param(0) != 1 {
		t.Errorf("expected params on context, got %v", hc.Params())
	}
}

func TestHooks_CancelledContextDoesNotAbort(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.RegisterAsync("evt", appendAsync("a"))
	h.RegisterAsync("evt", appendAsync("b"))

	hc, errs, err := h.Run(ctx, "evt")
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if got := order(hc); len(got) != 2 {
		t.Errorf("expected both handlers to run, got %v", got)
	}
}

func TestHooks_Stats(t *testing.T) {
	h := New()

	h.Register("a", appendSync("1"))
	h.RegisterAsync("b", appendAsync("2"))
	h.RegisterAsync("b", func(context.Context, *Context) error { return errors.New("x") })

	h.RunSync(context.Background(), "a")
	h.Run(context.Background(), "b")

	stats := h.Stats()
	if stats.Hooks != 2 || stats.Handlers != 3 {
		t.Errorf("unexpected registry stats: %+v", stats)
	}
	if stats.Sync.Passes != 1 || stats.Sync.Succeeded != 1 {
		t.Errorf("unexpected sync stats: %+v", stats.Sync)
	}
	if stats.Async.Executed != 2 || stats.Async.Failed != 1 {
		t.Errorf("unexpected async stats: %+v", stats.Async)
	}

	h.ResetStats()
	if h.Stats().Async.Executed != 0 {
		t.Error("expected stats reset")
	}
}

func TestHooks_Concurrent(t *testing.T) {
	h := New()
	var calls atomic.Int64

	h.RegisterAsync("evt", func(_ context.Context, hc *Context) error {
		calls.Add(1)
		hc.Set("n", hc.Param(0))
		return nil
	})

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			id, err := h.Register("evt", appendSync("tmp"))
			if err != nil {
				return err
			}
			hc, errs, err := h.Run(context.Background(), "evt", i)
			if err != nil {
				return err
			}
			if !errs.Empty() {
				return errs.Err()
			}
			if n, _ := Value[int](hc, "n"); n != i {
				return fmt.Errorf("context leaked between passes: got %d, want %d", n, i)
			}
			h.Unregister(id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 50 {
		t.Errorf("expected 50 calls, got %d", calls.Load())
	}
	if n := len(h.List("evt")); n != 1 {
		t.Errorf("expected temporary handlers removed, got %d", n)
	}
}

func TestHooks_Telemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h := New(WithTracerProvider(tp), WithMeterProvider(mp))
	h.RegisterAsync("evt", appendAsync("ok"), WithID("ok"))
	h.RegisterAsync("evt", func(context.Context, *Context) error { return errors.New("x") }, WithID("bad"))

	h.Run(context.Background(), "evt")

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "hook.run" {
		t.Errorf("expected span hook.run, got %q", span.Name())
	}
	if len(span.Events()) != 2 {
		t.Errorf("expected 2 handler events, got %d", len(span.Events()))
	}

	var sawErrors bool
	for _, attr := range span.Attributes() {
		if attr.Key == attribute.Key("hook.errors") && attr.Value.AsInt64() == 1 {
			sawErrors = true
		}
	}
	if !sawErrors {
		t.Errorf("expected hook.errors=1 attribute, got %v", span.Attributes())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	if counts["hook.dispatches"] != 1 {
		t.Errorf("expected 1 dispatch, got %d", counts["hook.dispatches"])
	}
	if counts["hook.handler.errors"] != 1 {
		t.Errorf("expected 1 handler error, got %d", counts["hook.handler.errors"])
	}
}

func TestFuture_Result(t *testing.T) {
	h := New()
	h.RegisterAsync("evt", appendAsync("a"))

	f := h.Go(context.Background(), "evt")

	hc, errs, err := f.Result()
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if got := order(hc); !equalStrings(got, []string{"a"}) {
		t.Errorf("expected [a], got %v", got)
	}

	select {
	case <-f.Done():
	default:
		t.Error("expected Done to be closed")
	}
}

func TestFuture_WaitTimeout(t *testing.T) {
	h := New()
	release := make(chan struct{})
	var finished atomic.Bool

	h.RegisterAsync("evt", func(context.Context, *Context) error {
		<-release
		finished.Store(true)
		return nil
	})

	f := h.Go(context.Background(), "evt")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := f.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	close(release)

	_, errs, err := f.Wait(context.Background())
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", err, errs)
	}
	if !finished.Load() {
		t.Error("expected the pass to complete after the wait timed out")
	}
}

func TestHooks_Owner(t *testing.T) {
	h := New()
	noop := func(*Context) error { return nil }

	if _, err := h.Register("evt", noop, WithID("x"), WithOwner("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.Register("evt", noop, WithID("x"), WithOwner("b")); !errors.Is(err, ErrIDConflict) {
		t.Fatalf("expected ErrIDConflict, got %v", err)
	}
	if n := h.UnregisterOwned("x", "b"); n != 0 {
		t.Errorf("expected foreign owner to remove nothing, got %d", n)
	}
	if list := h.List("evt"); len(list) != 1 || list[0].Owner != "a" {
		t.Fatalf("expected handler owned by a, got %+v", list)
	}
	if n := h.UnregisterOwned("x", "a"); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
}
