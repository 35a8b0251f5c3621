package hook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook/dispatch"
)

// Hooks is the public surface of the hook system: it owns a Registry and
// the two dispatchers that run its handlers.
//
// Hooks is safe for concurrent use. Registration may happen at any time,
// including from inside a running handler; a pass always runs over the
// snapshot taken when it started.
type Hooks struct {
	registry *Registry
	syncD    *dispatch.SyncDispatcher
	asyncD   *dispatch.AsyncDispatcher
	inst     *instruments

	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	newID          func() string
	panicHandler   dispatch.PanicHandler
}

// New creates a Hooks instance with an empty registry.
func New(opts ...Option) *Hooks {
	h := &Hooks{
		registry: NewRegistry(),
		logger:   slog.New(slog.DiscardHandler),
		newID:    defaultID,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.inst = newInstruments(h.tracerProvider, h.meterProvider)
	h.syncD = dispatch.NewSyncDispatcher(
		dispatch.WithPanicHandler(h.onPanic),
		dispatch.WithSyncObserver(h.inst.observe),
	)
	h.asyncD = dispatch.NewAsyncDispatcher(
		dispatch.WithAsyncPanicHandler(h.onPanic),
		dispatch.WithAsyncObserver(h.inst.observe),
	)
	return h
}

func (h *Hooks) onPanic(handlerID string, value any, stack []byte) {
	h.logger.Error("handler panicked",
		"handler_id", handlerID,
		"panic", fmt.Sprint(value),
		"stack", string(stack),
	)
	if h.panicHandler != nil {
		h.panicHandler(handlerID, value, stack)
	}
}

// Registry returns the underlying registry.
func (h *Hooks) Registry() *Registry {
	return h.registry
}

// Register adds a synchronous handler to hook and returns its ID.
// Synchronous handlers are invoked by RunSync.
func (h *Hooks) Register(hook string, fn SyncFunc, opts ...RegisterOption) (string, error) {
	if err := validHook(hook); err != nil {
		return "", err
	}
	if fn == nil {
		return "", ErrNilCallback
	}

	reg := h.registration(opts)
	if err := h.add(newSyncRecord(hook, fn, reg)); err != nil {
		return "", err
	}
	return reg.id, nil
}

// RegisterAsync adds an asynchronous handler to hook and returns its ID.
// Asynchronous handlers are invoked by Run.
func (h *Hooks) RegisterAsync(hook string, fn AsyncFunc, opts ...RegisterOption) (string, error) {
	if err := validHook(hook); err != nil {
		return "", err
	}
	if fn == nil {
		return "", ErrNilCallback
	}

	reg := h.registration(opts)
	if err := h.add(newAsyncRecord(hook, fn, reg)); err != nil {
		return "", err
	}
	return reg.id, nil
}

func (h *Hooks) registration(opts []RegisterOption) registration {
	reg := registration{priority: PriorityNeutral}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.id == "" {
		reg.id = h.newID()
	}
	return reg
}

func (h *Hooks) add(rec *Record) error {
	replaced, err := h.registry.add(rec)
	if err != nil {
		return err
	}
	if replaced {
		h.logger.Debug("handler replaced",
			"hook", rec.hook,
			"handler_id", rec.id,
			"kind", rec.kind.String(),
		)
		return nil
	}
	h.logger.Debug("handler registered",
		"hook", rec.hook,
		"handler_id", rec.id,
		"kind", rec.kind.String(),
		"priority", int(rec.priority),
	)
	return nil
}

// Unregister removes the handler with the given ID from every hook.
// Unknown IDs are ignored. Returns the number of records removed.
func (h *Hooks) Unregister(id string) int {
	n := h.registry.Remove(id)
	if n > 0 {
		h.logger.Debug("handler unregistered", "handler_id", id)
	}
	return n
}

// UnregisterOwned removes the handlers with the given ID that were
// registered with WithOwner(owner). Returns the number removed.
func (h *Hooks) UnregisterOwned(id, owner string) int {
	n := h.registry.RemoveOwned(id, owner)
	if n > 0 {
		h.logger.Debug("handler unregistered", "handler_id", id, "owner", owner)
	}
	return n
}

// UnregisterDomain removes every handler of hook tagged with domain and
// returns how many were removed.
func (h *Hooks) UnregisterDomain(hook, domain string) int {
	ids := h.registry.RemoveDomain(hook, domain)
	if len(ids) > 0 {
		h.logger.Debug("domain unregistered", "hook", hook, "domain", domain, "count", len(ids))
	}
	return len(ids)
}

// Flush removes every handler of hook with the given kind. KindAny removes
// both kinds. Returns how many were removed.
func (h *Hooks) Flush(hook string, kind Kind) int {
	return len(h.registry.RemoveKind(hook, kind))
}

// List returns the handlers of hook in dispatch order.
func (h *Hooks) List(hook string) []Descriptor {
	return h.registry.List(hook)
}

// Names returns the sorted names of hooks with registered handlers.
func (h *Hooks) Names() []string {
	return h.registry.Names()
}

// RunSync invokes the synchronous handlers of hook in order within the
// calling goroutine.
//
// The first handler that returns an error or panics ends the pass and its
// failure is returned as a *HandlerError or *PanicError. The Context is
// returned in every case except an invalid hook name, so callers can
// inspect what earlier handlers wrote.
func (h *Hooks) RunSync(ctx context.Context, hook string, params ...any) (*Context, error) {
	if err := validHook(hook); err != nil {
		return nil, err
	}

	hc := NewContext(hook, params...)
	steps, err := h.steps(hook, KindSync, h.registry.Snapshot(hook, KindSync), hc)
	if err != nil {
		return hc, err
	}

	ctx, span := h.inst.start(withSpanHook(ctx, hook), "hook.run_sync", hook, KindSync, len(steps))
	begin := time.Now()

	err = h.syncD.Dispatch(ctx, hook, steps)

	failures := 0
	if err != nil {
		failures = 1
		h.logger.Debug("sync pass stopped", "hook", hook, "error", err)
	}
	h.inst.finish(ctx, span, hook, KindSync, failures, begin, err)

	return hc, err
}

// Run invokes the asynchronous handlers of hook one after another, each
// awaited before the next starts.
//
// A failing handler does not stop the pass; its error is captured in the
// returned ErrorSet under the handler ID and logged. The error result is
// non-nil only for an invalid hook name or a *FaultError. Cancellation of
// ctx is left to the handlers: the pass itself always runs to completion.
func (h *Hooks) Run(ctx context.Context, hook string, params ...any) (hc *Context, errs *ErrorSet, err error) {
	if err := validHook(hook); err != nil {
		return nil, nil, err
	}

	hc = NewContext(hook, params...)
	errs = dispatch.NewErrorSet(hook)

	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Hook: hook, Err: fmt.Errorf("panic in dispatch: %v", r)}
			h.logger.Error("dispatcher fault", "hook", hook, "error", err)
		}
	}()

	steps, err := h.steps(hook, KindAsync, h.registry.Snapshot(hook, KindAsync), hc)
	if err != nil {
		return hc, errs, err
	}

	ctx, span := h.inst.start(withSpanHook(ctx, hook), "hook.run", hook, KindAsync, len(steps))
	begin := time.Now()

	errs = h.asyncD.Dispatch(ctx, hook, steps)
	errs.Each(func(id string, failure error) {
		h.logger.Warn("handler failed",
			"hook", hook,
			"handler_id", id,
			"error", failure,
		)
	})

	h.inst.finish(ctx, span, hook, KindAsync, errs.Len(), begin, nil)

	return hc, errs, nil
}

// steps binds hc into every record of the snapshot.
func (h *Hooks) steps(hook string, want Kind, records []*Record, hc *Context) ([]dispatch.Step, error) {
	steps := make([]dispatch.Step, 0, len(records))
	for _, rec := range records {
		if rec.kind != want {
			return nil, &FaultError{
				Hook: hook,
				Err:  fmt.Errorf("handler %s has kind %s, want %s", rec.id, rec.kind, want),
			}
		}

		var handler dispatch.Handler
		switch {
		case want == KindSync && rec.syncFn != nil:
			fn := rec.syncFn
			handler = dispatch.HandlerFunc(func(context.Context) error {
				return fn(hc)
			})
		case want == KindAsync && rec.asyncFn != nil:
			fn := rec.asyncFn
			handler = dispatch.HandlerFunc(func(ctx context.Context) error {
				return fn(ctx, hc)
			})
		default:
			return nil, &FaultError{
				Hook: hook,
				Err:  fmt.Errorf("handler %s has no %s callback", rec.id, want),
			}
		}

		steps = append(steps, dispatch.Step{ID: rec.id, Handler: handler})
	}
	return steps, nil
}

// Stats contains counters for a Hooks instance.
type Stats struct {
	// Hooks is the number of hooks with at least one handler.
	Hooks int

	// Handlers is the total number of registered handlers.
	Handlers int

	// Sync holds the synchronous dispatcher counters.
	Sync dispatch.SyncDispatcherStats

	// Async holds the asynchronous dispatcher counters.
	Async dispatch.AsyncDispatcherStats
}

// Stats returns registry and dispatcher statistics.
func (h *Hooks) Stats() Stats {
	return Stats{
		Hooks:    len(h.registry.Names()),
		Handlers: h.registry.Count(),
		Sync:     h.syncD.Stats(),
		Async:    h.asyncD.Stats(),
	}
}

// ResetStats resets the dispatcher counters.
func (h *Hooks) ResetStats() {
	h.syncD.ResetStats()
	h.asyncD.ResetStats()
}

func validHook(hook string) error {
	if strings.TrimSpace(hook) == "" {
		return ErrInvalidHook
	}
	return nil
}
