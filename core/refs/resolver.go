// Package refs detects cross-record references whose target does not exist in
// a container.
//
// A Resolver is built once per batch from the container's full name list and
// shared by every worker. Diff is a pure set difference; Track also merges the
// result into the batch-wide report.
package refs

import (
	"sort"
	"sync"
)

// Resolver accumulates missing references across a batch.
// It is safe for concurrent use.
type Resolver struct {
	names map[string]struct{}

	mu      sync.Mutex
	missing map[string]map[string]struct{}
}

// NewResolver creates a resolver over the container's "group:name" list.
func NewResolver(names []string) *Resolver {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Resolver{names: set, missing: make(map[string]map[string]struct{})}
}

// Diff returns the references that are not in the name list, sorted.
func (r *Resolver) Diff(refs []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := r.names[ref]; ok {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// Track diffs the references of one record and merges the result into the
// report. It returns the record's missing references.
func (r *Resolver) Track(record string, refs []string) []string {
	missing := r.Diff(refs)
	if len(missing) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range missing {
		by, ok := r.missing[ref]
		if !ok {
			by = make(map[string]struct{})
			r.missing[ref] = by
		}
		by[record] = struct{}{}
	}
	return missing
}

// Missing returns every missing reference seen so far, sorted.
func (r *Resolver) Missing() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.missing))
	for ref := range r.missing {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// Report maps each missing reference to the sorted records that named it.
func (r *Resolver) Report() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.missing))
	for ref, by := range r.missing {
		records := make([]string, 0, len(by))
		for rec := range by {
			records = append(records, rec)
		}
		sort.Strings(records)
		out[ref] = records
	}
	return out
}
