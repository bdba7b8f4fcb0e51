package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"tag-sync/core/container"
	"tag-sync/core/field"
	"tag-sync/core/layout"
	"tag-sync/core/store"
	"tag-sync/core/stream"
	"tag-sync/core/tags"

	"github.com/stretchr/testify/require"
)

const recordSize = 16

func schemas() *layout.Registry {
	owner := field.New("owner", field.KindTagRef, 0x04)
	owner.Value.(*field.TagRef).WithGroup = false

	reg := layout.NewRegistry()
	reg.Register("weap", []*field.Field{
		field.New("damage", field.KindUint32, 0x00),
		owner,
		field.New("title", field.KindASCII, 0x08).WithSize(8),
	})
	return reg
}

func name(i int) string { return fmt.Sprintf("w%d", i) }

// newContainer builds an in-memory container holding slots; filled records get
// damage i and an owner reference to w0.
func newContainer(t *testing.T, label string, salt uint16, slots []int, filled bool) *container.Container {
	t.Helper()
	m := &container.Manifest{Endian: "little", Mode: "memory"}
	size := 0
	for _, i := range slots {
		m.Records = append(m.Records, container.RecordEntry{
			Index: uint32(tags.NewDatumIndex(salt+uint16(i), uint16(i))),
			Group: "weap",
			Name:  name(i),
			Meta:  int64(i * recordSize),
		})
		if (i+1)*recordSize > size {
			size = (i + 1) * recordSize
		}
	}
	c, err := container.New(label, stream.NewBuffer(make([]byte, size)), m, schemas())
	require.NoError(t, err)

	if filled {
		for _, i := range slots {
			rec, err := c.Record(tags.Key("weap", name(i)))
			require.NoError(t, err)
			fields, _, err := c.ReadRecord(rec)
			require.NoError(t, err)
			fields[0].Value.(*field.Uint).V = uint64(i)
			ref := fields[1].Value.(*field.TagRef)
			ref.GroupName, ref.Name, ref.Resolved = "weap", name(0), true
			require.NoError(t, c.WriteRecord(rec, fields, nil))
		}
	}
	return c
}

type memStore struct {
	mu   gosync.Mutex
	data map[string][]byte
	mod  map[string]time.Time

	// gate, when set, blocks Set until closed; entered is signalled first.
	gate    chan struct{}
	entered chan struct{}
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), mod: make(map[string]time.Time)}
}

func (s *memStore) Get(_ context.Context, k string) ([]byte, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[k]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: %s", store.ErrNotFound, k)
	}
	return d, s.mod[k], nil
}

func (s *memStore) Set(_ context.Context, k string, data []byte, modified time.Time) error {
	if s.gate != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = data
	s.mod[k] = modified
	return nil
}

func (s *memStore) ListKeys(_ context.Context, prefix string) ([]store.KeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.KeyInfo
	for k, m := range s.mod {
		if strings.HasPrefix(k, prefix) {
			out = append(out, store.KeyInfo{Key: k, LastModified: m})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
	delete(s.mod, k)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
