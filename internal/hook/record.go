package hook

// Record is an immutable registration of a handler on a hook.
// Replacing a registration produces a new Record that inherits the
// sequence number of the one it replaces.
type Record struct {
	id       string
	hook     string
	kind     Kind
	syncFn   SyncFunc
	asyncFn  AsyncFunc
	priority Priority
	domain   string
	owner    string
	seq      uint64
}

func newSyncRecord(hook string, fn SyncFunc, reg registration) *Record {
	return &Record{
		id:       reg.id,
		hook:     hook,
		kind:     KindSync,
		syncFn:   fn,
		priority: reg.priority,
		domain:   reg.domain,
		owner:    reg.owner,
	}
}

func newAsyncRecord(hook string, fn AsyncFunc, reg registration) *Record {
	return &Record{
		id:       reg.id,
		hook:     hook,
		kind:     KindAsync,
		asyncFn:  fn,
		priority: reg.priority,
		domain:   reg.domain,
		owner:    reg.owner,
	}
}

// ID returns the handler identifier.
func (r *Record) ID() string { return r.id }

// Hook returns the hook name the handler is registered on.
func (r *Record) Hook() string { return r.hook }

// Kind returns whether the handler is sync or async.
func (r *Record) Kind() Kind { return r.kind }

// Priority returns the handler priority.
func (r *Record) Priority() Priority { return r.priority }

// Domain returns the optional domain tag.
func (r *Record) Domain() string { return r.domain }

// Owner returns the registrant that owns the handler, or "" for none.
func (r *Record) Owner() string { return r.owner }

// Descriptor returns a read-only description of the record.
func (r *Record) Descriptor() Descriptor {
	return Descriptor{
		ID:       r.id,
		Hook:     r.hook,
		Priority: r.priority,
		Domain:   r.domain,
		Owner:    r.owner,
		Kind:     r.kind,
	}
}

// Descriptor describes a registered handler for introspection.
type Descriptor struct {
	ID       string   `json:"id"`
	Hook     string   `json:"hook"`
	Priority Priority `json:"priority"`
	Domain   string   `json:"domain,omitempty"`
	Owner    string   `json:"owner,omitempty"`
	Kind     Kind     `json:"kind"`
}
