package hook

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the handler records of every hook, ordered for dispatch.
// It is thread-safe for concurrent access.
//
// Each bucket is an immutable slice: every mutation builds a new slice and
// swaps it in, so a snapshot handed to a dispatcher is never modified
// afterwards.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string][]*Record
	owners  map[string]map[string]struct{} // id -> hook names holding it
	seq     uint64
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[string][]*Record),
		owners:  make(map[string]map[string]struct{}),
	}
}

// add inserts rec into its hook bucket, creating the bucket on first use.
// A record with the same ID already in the bucket is replaced in place: the
// new record inherits the old sequence number. Returns true on replacement.
// An owned record never replaces one held by a different owner.
func (r *Registry) add(rec *Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.buckets[rec.hook]
	next := make([]*Record, 0, len(bucket)+1)

	replaced := false
	for _, existing := range bucket {
		if existing.id == rec.id {
			if rec.owner != "" && existing.owner != rec.owner {
				return false, fmt.Errorf("%w: %q on hook %q", ErrIDConflict, rec.id, rec.hook)
			}
			rec.seq = existing.seq
			next = append(next, rec)
			replaced = true
			continue
		}
		next = append(next, existing)
	}

	if !replaced {
		r.seq++
		rec.seq = r.seq
		next = append(next, rec)
	}

	sortRecords(next)
	r.buckets[rec.hook] = next

	hooks, ok := r.owners[rec.id]
	if !ok {
		hooks = make(map[string]struct{})
		r.owners[rec.id] = hooks
	}
	hooks[rec.hook] = struct{}{}

	return replaced, nil
}

// sortRecords orders records by priority, then by registration sequence.
func sortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].priority != records[j].priority {
			return records[i].priority < records[j].priority
		}
		return records[i].seq < records[j].seq
	})
}

// Remove removes the record with the given ID from every bucket holding it.
// Returns the number of records removed; unknown IDs remove nothing.
func (r *Registry) Remove(id string) int {
	return r.removeID(id, func(*Record) bool { return true })
}

// RemoveOwned removes the records with the given ID that belong to owner,
// leaving same-ID records of other owners in place.
func (r *Registry) RemoveOwned(id, owner string) int {
	return r.removeID(id, func(rec *Record) bool { return rec.owner == owner })
}

func (r *Registry) removeID(id string, match func(*Record) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	hooks, ok := r.owners[id]
	if !ok {
		return 0
	}

	removed := 0
	for hook := range hooks {
		n := r.filterLocked(hook, func(rec *Record) bool {
			return rec.id == id && match(rec)
		})
		if n > 0 {
			delete(hooks, hook)
		}
		removed += n
	}
	if len(hooks) == 0 {
		delete(r.owners, id)
	}

	return removed
}

// RemoveDomain removes every record on hook tagged with domain.
// Returns the IDs removed in dispatch order.
func (r *Registry) RemoveDomain(hook, domain string) []string {
	return r.removeWhere(hook, func(rec *Record) bool {
		return rec.domain == domain
	})
}

// RemoveKind removes every record on hook whose kind matches the filter.
// Returns the IDs removed in dispatch order.
func (r *Registry) RemoveKind(hook string, kind Kind) []string {
	return r.removeWhere(hook, func(rec *Record) bool {
		return kind.matches(rec.kind)
	})
}

func (r *Registry) removeWhere(hook string, match func(*Record) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for _, rec := range r.buckets[hook] {
		if match(rec) {
			ids = append(ids, rec.id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	r.filterLocked(hook, match)
	for _, id := range ids {
		if hooks, ok := r.owners[id]; ok {
			delete(hooks, hook)
			if len(hooks) == 0 {
				delete(r.owners, id)
			}
		}
	}
	return ids
}

// filterLocked swaps in a copy of the hook bucket without the matching
// records. The emptied bucket is kept. Caller must hold the write lock.
func (r *Registry) filterLocked(hook string, match func(*Record) bool) int {
	bucket, ok := r.buckets[hook]
	if !ok {
		return 0
	}

	next := make([]*Record, 0, len(bucket))
	for _, rec := range bucket {
		if !match(rec) {
			next = append(next, rec)
		}
	}
	r.buckets[hook] = next

	return len(bucket) - len(next)
}

// Snapshot returns the ordered records of hook whose kind matches the
// filter. The returned slice is owned by the caller and unaffected by later
// registry mutations.
func (r *Registry) Snapshot(hook string, kind Kind) []*Record {
	r.mu.RLock()
	bucket := r.buckets[hook]
	r.mu.RUnlock()

	if len(bucket) == 0 {
		return nil
	}

	result := make([]*Record, 0, len(bucket))
	for _, rec := range bucket {
		if kind.matches(rec.kind) {
			result = append(result, rec)
		}
	}
	return result
}

// List returns descriptors of every record on hook, in dispatch order.
// The result is empty (not nil) for an unknown or emptied hook.
func (r *Registry) List(hook string) []Descriptor {
	records := r.Snapshot(hook, KindAny)

	result := make([]Descriptor, len(records))
	for i, rec := range records {
		result[i] = rec.Descriptor()
	}
	return result
}

// Names returns the sorted names of hooks holding at least one record.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.buckets))
	for name, bucket := range r.buckets {
		if len(bucket) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of records on hook.
func (r *Registry) Len(hook string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.buckets[hook])
}

// Count returns the total number of records across all hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, bucket := range r.buckets {
		count += len(bucket)
	}
	return count
}
