package hook

import (
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook/dispatch"
)

// Option configures a Hooks instance.
type Option func(*Hooks)

// WithLogger sets the logger used for captured handler failures and
// registration events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hooks) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Hooks) {
		h.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider dispatch metrics are recorded with.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Hooks) {
		h.meterProvider = mp
	}
}

// WithIDGenerator replaces the generator used for handler IDs when
// registration does not supply one.
func WithIDGenerator(fn func() string) Option {
	return func(h *Hooks) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// WithPanicHandler sets a callback invoked with the stack of every
// recovered handler panic, in addition to the panic being reported as an
// error.
func WithPanicHandler(fn dispatch.PanicHandler) Option {
	return func(h *Hooks) {
		h.panicHandler = fn
	}
}

func defaultID() string {
	return uuid.NewString()
}

// RegisterOption configures a single registration.
type RegisterOption func(*registration)

type registration struct {
	id       string
	priority Priority
	domain   string
	owner    string
}

// WithID sets the handler ID. Registering an ID already present on the hook
// replaces that handler.
func WithID(id string) RegisterOption {
	return func(r *registration) {
		r.id = id
	}
}

// WithPriority sets the handler priority. Defaults to PriorityNeutral.
func WithPriority(p Priority) RegisterOption {
	return func(r *registration) {
		r.priority = p
	}
}

// WithOwner marks the handler as belonging to owner. An owned registration
// cannot replace a handler with the same ID held by another owner; it fails
// with ErrIDConflict instead. Unowned registrations replace freely.
func WithOwner(owner string) RegisterOption {
	return func(r *registration) {
		r.owner = owner
	}
}

// WithDomain tags the handler with a domain for grouped removal.
func WithDomain(domain string) RegisterOption {
	return func(r *registration) {
		r.domain = domain
	}
}
