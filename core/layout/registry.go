package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tag-sync/core/field"
)

// Registry maps group names to their templates.
type Registry struct {
	mu     sync.RWMutex
	groups map[string][]*field.Field
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string][]*field.Field)}
}

// Register sets the templates of a group, replacing any previous entry.
func (r *Registry) Register(group string, fields []*field.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group] = fields
}

// Lookup returns the templates of a group.
func (r *Registry) Lookup(group string) ([]*field.Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields, ok := r.groups[group]
	return fields, ok
}

// Groups returns every registered group, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.groups))
	for g := range r.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// LoadDir parses every .yaml and .yml file in dir. Groups already present are
// kept unless override is set.
func (r *Registry) LoadDir(dir string, override bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read layout dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if err := r.loadFile(filepath.Join(dir, e.Name()), override); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadFile(path string, override bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	schemas, err := Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range schemas {
		if _, exists := r.Lookup(s.Group); exists && !override {
			continue
		}
		r.Register(s.Group, s.Fields)
	}
	return nil
}

// Load builds a registry from a primary directory and an optional fallback
// directory. The fallback only supplies groups the primary lacks.
func Load(primary, fallback string) (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadDir(primary, true); err != nil {
		return nil, err
	}
	if fallback != "" {
		if err := r.LoadDir(fallback, false); err != nil {
			return nil, err
		}
	}
	return r, nil
}
