// Package container opens a container file together with its YAML manifest and
// reads and writes records through the codec.
//
// Reads may run in parallel. Writes go through one mutex owned by the
// Container and held only around the encode call, so concurrent sync workers
// never interleave bytes in the file.
package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tag-sync/core/codec"
	"tag-sync/core/field"
	"tag-sync/core/tags"
)

var (
	// ErrUnknownGroup is returned when no layout exists for a record's group.
	ErrUnknownGroup = errors.New("no layout for group")
	// ErrUnknownRecord is returned when a key names no record in the container.
	ErrUnknownRecord = errors.New("record not found")
)

// Schemas supplies the templates of a group.
type Schemas interface {
	Lookup(group string) ([]*field.Field, bool)
}

// Container is one opened container.
type Container struct {
	name     string
	data     codec.ReadWriterAt
	closer   func() error
	env      codec.Env
	schemas  Schemas
	manifest *Manifest
	index    string

	mu sync.Mutex
}

// New wraps an already opened byte store.
func New(name string, data codec.ReadWriterAt, m *Manifest, schemas Schemas) (*Container, error) {
	env, err := m.Env()
	if err != nil {
		return nil, err
	}
	if m.Name != "" {
		name = m.Name
	}
	return &Container{
		name:     name,
		data:     data,
		closer:   func() error { return nil },
		env:      env,
		schemas:  schemas,
		manifest: m,
	}, nil
}

// Open opens the container file at path for reading and writing, using the
// manifest at indexPath.
func Open(path, indexPath string, schemas Schemas) (*Container, error) {
	m, err := LoadManifest(indexPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	c, err := New(BaseName(path), f, m, schemas)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f.Close
	c.index = indexPath
	return c, nil
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name returns the container name.
func (c *Container) Name() string { return c.name }

// Env returns the codec environment.
func (c *Container) Env() codec.Env { return c.env }

// Names returns every "group:name" identity in the container.
func (c *Container) Names() []string { return c.env.Records.Names() }

// Records returns every record in slot order.
func (c *Container) Records() []*tags.Record { return c.env.Records.Records() }

// Record resolves a "group:name" key.
func (c *Container) Record(key string) (*tags.Record, error) {
	group, name, ok := tags.SplitKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: malformed key %q", ErrUnknownRecord, key)
	}
	rec := c.env.Records.FindByName(group, name)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, key)
	}
	return rec, nil
}

func (c *Container) schema(rec *tags.Record) ([]*field.Field, error) {
	fields, ok := c.schemas.Lookup(rec.Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, rec.Group)
	}
	return fields, nil
}

// ReadRecord decodes a record and returns its fields and resolved references.
func (c *Container) ReadRecord(rec *tags.Record) ([]*field.Field, []string, error) {
	tpl, err := c.schema(rec)
	if err != nil {
		return nil, nil, err
	}
	dec := codec.NewDecoder(c.data, c.env, nil)
	fields, err := dec.Decode(tpl, rec.Meta)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", rec.Key(), err)
	}
	return fields, dec.References(), nil
}

// WriteRecord encodes fields over a record. changes may be nil.
func (c *Container) WriteRecord(rec *tags.Record, fields []*field.Field, changes *codec.ChangeSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := codec.NewEncoder(c.data, c.env, changes).Encode(fields, rec.Meta); err != nil {
		return fmt.Errorf("write %s: %w", rec.Key(), err)
	}
	return nil
}

// SaveIndex persists strings interned by writes back to the manifest file.
// It is a no-op when nothing was added or the container has no manifest path.
func (c *Container) SaveIndex() error {
	if c.index == "" || c.env.Strings.Added() == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manifest.Strings = c.env.Strings.Strings()
	return c.manifest.Save(c.index)
}

// Close releases the underlying file.
func (c *Container) Close() error {
	return c.closer()
}
