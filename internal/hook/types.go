package hook

import (
	"context"
	"strings"
)

// Priority determines handler execution order.
// Lower values execute first. The named bands are conventions only; any
// integer is valid.
type Priority int

const (
	// PriorityCore is reserved for framework handlers that must run first.
	PriorityCore Priority = -2000

	// PriorityHighest runs before every non-core handler.
	PriorityHighest Priority = -1000

	// PriorityHigh runs early.
	PriorityHigh Priority = -500

	// PriorityNeutral is the default priority.
	PriorityNeutral Priority = 0

	// PriorityLow runs late.
	PriorityLow Priority = 500

	// PriorityLowest runs after everything else.
	PriorityLowest Priority = 1000
)

// String returns the name of the band the priority falls into.
func (p Priority) String() string {
	switch {
	case p <= PriorityCore:
		return "core"
	case p <= PriorityHighest:
		return "highest"
	case p <= PriorityHigh:
		return "high"
	case p < PriorityLow:
		return "neutral"
	case p < PriorityLowest:
		return "low"
	default:
		return "lowest"
	}
}

// Priorities maps band names to their values.
var Priorities = map[string]Priority{
	"core":    PriorityCore,
	"highest": PriorityHighest,
	"high":    PriorityHigh,
	"neutral": PriorityNeutral,
	"low":     PriorityLow,
	"lowest":  PriorityLowest,
}

// Kind identifies which dispatcher invokes a handler.
type Kind int

const (
	// KindAny matches both kinds. It is only meaningful as a filter.
	KindAny Kind = iota

	// KindSync handlers are invoked by RunSync.
	KindSync

	// KindAsync handlers are invoked by Run.
	KindAsync
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindSync:
		return "sync"
	case KindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// matches reports whether a record kind passes the filter k.
func (k Kind) matches(other Kind) bool {
	return k == KindAny || k == other
}

// SyncFunc is a handler invoked by RunSync.
// Returning an error stops the pass.
type SyncFunc func(hc *Context) error

// AsyncFunc is a handler invoked by Run.
// It may block; the next handler starts only after it returns. A returned
// error is captured and the pass continues.
type AsyncFunc func(ctx context.Context, hc *Context) error

// Name joins segments into a dotted hook name, e.g. Name("user", "save")
// returns "user.save". Empty segments are dropped.
func Name(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, ". "); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}
