package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tag-sync/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

type fakeIndex struct {
	name  string
	names []string
}

func (f *fakeIndex) Name() string    { return f.name }
func (f *fakeIndex) Names() []string { return f.names }

type fakeLister struct {
	keys  []store.KeyInfo
	err   error
	calls atomic.Int32
}

func (f *fakeLister) ListKeys(_ context.Context, prefix string) ([]store.KeyInfo, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []store.KeyInfo
	for _, k := range f.keys {
		if len(k.Key) >= len(prefix) && k.Key[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

type fakeStamps struct {
	stamps map[string]time.Time
	err    error
}

func (f *fakeStamps) Load(context.Context, string) (map[string]time.Time, error) {
	return f.stamps, f.err
}

type fakeMutator struct {
	uploads, downloads, deletes []string
	err                         error
}

func (f *fakeMutator) Upload(_ context.Context, keys []string) error {
	f.uploads = append(f.uploads, keys...)
	return f.err
}

func (f *fakeMutator) Download(_ context.Context, keys []string) error {
	f.downloads = append(f.downloads, keys...)
	return f.err
}

func (f *fakeMutator) DeleteStore(_ context.Context, keys []string) error {
	f.deletes = append(f.deletes, keys...)
	return f.err
}

// testSources describes four records:
//
//	bipd:a  container, store@t0, stamp@t1  -> local newer
//	bipd:b  container, store@t1, stamp@t0  -> store newer
//	bipd:c  container only, no stamp
//	bipd:d  store only (other namespace entries are ignored)
func testSources() Sources {
	return Sources{
		Container: &fakeIndex{name: "m10", names: []string{"bipd:a", "bipd:b", "bipd:c"}},
		Store: &fakeLister{keys: []store.KeyInfo{
			{Key: "m10:bipd:a", LastModified: t0},
			{Key: "m10:bipd:b", LastModified: t1},
			{Key: "m10:bipd:d", LastModified: t0},
			{Key: "a10:bipd:a", LastModified: t1},
		}},
		Ledger: &fakeStamps{stamps: map[string]time.Time{"bipd:a": t1, "bipd:b": t0}},
	}
}

func testSpec(timestamps bool) *Spec {
	return &Spec{Container: "m10", Namespace: "m10", UseTimestamps: timestamps}
}

func TestReconcileAll_UnionKeys(t *testing.T) {
	results, err := ReconcileAll(context.Background(), testSpec(true), testSources())
	require.NoError(t, err)
	require.Len(t, results, 4)

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"bipd:a", "bipd:b", "bipd:c", "bipd:d"}, keys)

	a := results[0]
	assert.True(t, a.ContainerPresent)
	assert.True(t, a.StorePresent)
	assert.True(t, t0.Equal(*a.StoreModified))
	assert.True(t, t1.Equal(*a.Synced))

	c := results[2]
	assert.True(t, c.ContainerPresent)
	assert.False(t, c.StorePresent)
	assert.Nil(t, c.Synced)

	d := results[3]
	assert.False(t, d.ContainerPresent)
	assert.True(t, d.StorePresent)
}

func TestReconcileOne(t *testing.T) {
	r, err := ReconcileOne(context.Background(), testSpec(true), testSources(), "bipd:b")
	require.NoError(t, err)
	assert.True(t, r.ContainerPresent)
	assert.True(t, t1.Equal(*r.StoreModified))

	r, err = ReconcileOne(context.Background(), testSpec(true), testSources(), "bipd:zzz")
	require.NoError(t, err)
	assert.False(t, r.ContainerPresent)
	assert.False(t, r.StorePresent)
}

func TestReconcileWithPlan_Filters(t *testing.T) {
	tests := []struct {
		name       string
		timestamps bool
		direction  Direction
		want       []string
	}{
		{"UploadAll", false, Upload, []string{"bipd:a", "bipd:b", "bipd:c"}},
		{"DownloadAll", false, Download, []string{"bipd:a", "bipd:b"}},
		{"UploadNewer", true, Upload, []string{"bipd:a", "bipd:c"}},
		{"DownloadNewer", true, Download, []string{"bipd:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ReconcileWithPlan(context.Background(), testSpec(tt.timestamps), testSources(), Options{Direction: tt.direction})
			require.NoError(t, err)

			var want ActionType = ActionUpload
			if tt.direction == Download {
				want = ActionDownload
			}
			assert.Equal(t, tt.want, plan.Keys(want))
			assert.Equal(t, 4, plan.Summary.TotalItems)
			assert.Equal(t, 1, plan.Summary.MissingStore)
			assert.Equal(t, 1, plan.Summary.MissingContainer)
			assert.Equal(t, 1, plan.Summary.Unstamped)
			assert.Zero(t, plan.Summary.PurgeActions)
		})
	}
}

func TestReconcileWithPlan_DownloadUnstamped(t *testing.T) {
	src := testSources()
	src.Ledger = nil

	plan, err := ReconcileWithPlan(context.Background(), testSpec(true), src, Options{Direction: Download})
	require.NoError(t, err)
	assert.Equal(t, []string{"bipd:a", "bipd:b"}, plan.Keys(ActionDownload))
	assert.Equal(t, 3, plan.Summary.Unstamped)
}

func TestReconcileWithPlan_Purge(t *testing.T) {
	plan, err := ReconcileWithPlan(context.Background(), testSpec(false), testSources(), Options{Direction: Upload, DoPurge: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bipd:d"}, plan.Keys(ActionDeleteStore))
	assert.Equal(t, 1, plan.Summary.PurgeActions)
}

func TestReconcileWithPlan_PurgeWithoutNamespace(t *testing.T) {
	src := Sources{
		Container: &fakeIndex{name: "m10", names: []string{"bipd:a"}},
		Store: &fakeLister{keys: []store.KeyInfo{
			{Key: "bipd:a", LastModified: t0},
			{Key: "bipd:gone", LastModified: t0},
			{Key: "a10:bipd:a", LastModified: t0},
			{Key: "m10:bipd:b", LastModified: t0},
		}},
	}
	spec := &Spec{Container: "m10"}

	plan, err := ReconcileWithPlan(context.Background(), spec, src, Options{Direction: Upload, DoPurge: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bipd:gone"}, plan.Keys(ActionDeleteStore))
	assert.Equal(t, 2, plan.Summary.TotalItems)
}

func TestReconcileWithPlan_Errors(t *testing.T) {
	_, err := ReconcileWithPlan(context.Background(), testSpec(false), testSources(), Options{Direction: "sideways"})
	assert.Error(t, err)

	src := testSources()
	src.Store = &fakeLister{err: errors.New("denied")}
	_, err = ReconcileWithPlan(context.Background(), testSpec(false), src, Options{Direction: Upload})
	assert.Error(t, err)

	src = testSources()
	src.Ledger = &fakeStamps{err: errors.New("gone away")}
	_, err = ReconcileWithPlan(context.Background(), testSpec(false), src, Options{Direction: Upload})
	assert.Error(t, err)
}

func TestApplyPlan(t *testing.T) {
	plan := &Plan{Actions: []Action{
		{Type: ActionUpload, Key: "bipd:a"},
		{Type: ActionUpload, Key: "bipd:c"},
		{Type: ActionDownload, Key: "bipd:b"},
		{Type: ActionDeleteStore, Key: "bipd:d"},
	}}

	t.Run("NotConfirmed", func(t *testing.T) {
		m := &fakeMutator{}
		n, err := ApplyPlan(context.Background(), testSpec(false), m, plan, Options{})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, m.uploads)
	})

	t.Run("DryRun", func(t *testing.T) {
		m := &fakeMutator{}
		n, err := ApplyPlan(context.Background(), testSpec(false), m, plan, Options{Confirmed: true, DryRun: true})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Confirmed", func(t *testing.T) {
		m := &fakeMutator{}
		n, err := ApplyPlan(context.Background(), testSpec(false), m, plan, Options{Confirmed: true})
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []string{"bipd:a", "bipd:c"}, m.uploads)
		assert.Equal(t, []string{"bipd:b"}, m.downloads)
		assert.Equal(t, []string{"bipd:d"}, m.deletes)
	})

	t.Run("Failure", func(t *testing.T) {
		m := &fakeMutator{err: errors.New("store down")}
		n, err := ApplyPlan(context.Background(), testSpec(false), m, plan, Options{Confirmed: true})
		assert.Error(t, err)
		assert.Zero(t, n)
	})
}

func TestCache_Hit(t *testing.T) {
	spec := &Spec{Container: "cache-hit", Namespace: "m10", CacheTTL: time.Minute}
	defer InvalidateCache(spec)

	src := testSources()
	lister := src.Store.(*fakeLister)

	_, err := ReconcileAll(context.Background(), spec, src)
	require.NoError(t, err)
	_, err = ReconcileAll(context.Background(), spec, src)
	require.NoError(t, err)
	assert.Equal(t, int32(1), lister.calls.Load())

	InvalidateCache(spec)
	_, err = ReconcileAll(context.Background(), spec, src)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestCache_Disabled(t *testing.T) {
	spec := &Spec{Container: "cache-off", Namespace: "m10"}
	src := testSources()
	lister := src.Store.(*fakeLister)

	for i := 0; i < 3; i++ {
		_, err := ReconcileAll(context.Background(), spec, src)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), lister.calls.Load())
}

func TestCache_IsExpired(t *testing.T) {
	assert.True(t, (&Cache{}).IsExpired())
	assert.False(t, (&Cache{Built: time.Now(), TTL: time.Hour}).IsExpired())
	assert.True(t, (&Cache{Built: time.Now().Add(-2 * time.Hour), TTL: time.Hour}).IsExpired())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("upload")
	require.NoError(t, err)
	assert.Equal(t, Upload, d)
	_, err = ParseDirection("")
	assert.Error(t, err)
}
