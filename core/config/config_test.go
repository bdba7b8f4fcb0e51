package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "container", cfg.Sync.Namespace)
	assert.Equal(t, 4, cfg.Sync.QueueFactor)
	assert.True(t, cfg.Sync.SkipUnchanged)
	assert.Equal(t, time.Minute, cfg.Sync.CacheTTL())
}

func TestLoadConfig_Env(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("SYNC_WORKERS=6\nSYNC_CONTAINER=maps/m10.map\nSTORAGE_BUCKET=tags\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SYNC_WORKERS")
		os.Unsetenv("SYNC_CONTAINER")
		os.Unsetenv("STORAGE_BUCKET")
	})
	t.Setenv("SYNC_USE_TIMESTAMPS", "true")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Sync.Workers)
	assert.True(t, cfg.Sync.UseTimestamps)
	assert.Equal(t, "tags", cfg.Storage.Bucket)
	assert.Equal(t, "maps/m10.yaml", cfg.Sync.IndexPath())
}

func TestSyncConfig_Pipeline(t *testing.T) {
	s := SyncConfig{Namespace: "container", Workers: 2, QueueFactor: 3, BatchSize: 5, UseTimestamps: true}
	p := s.Pipeline("m10")
	assert.Equal(t, "m10", p.Namespace)
	assert.Equal(t, 2, p.Workers)
	assert.Equal(t, 3, p.QueueFactor)
	assert.Equal(t, 5, p.BatchSize)
	assert.True(t, p.UseTimestamps)

	assert.Equal(t, "", SyncConfig{Namespace: "none"}.Pipeline("m10").Namespace)
	assert.Equal(t, "shared", SyncConfig{Namespace: "shared"}.Pipeline("m10").Namespace)
}

func TestSyncConfig_IndexPath(t *testing.T) {
	assert.Equal(t, "", SyncConfig{}.IndexPath())
	assert.Equal(t, "custom.yml", SyncConfig{Container: "a.map", Index: "custom.yml"}.IndexPath())
	assert.Equal(t, "maps.v2/m10.yaml", SyncConfig{Container: "maps.v2/m10"}.IndexPath())
	assert.Equal(t, filepath.Join("maps", "m10.yaml"), SyncConfig{Container: "m10.map", Directory: "maps"}.IndexPath())
	assert.Equal(t, int64(0), int64(SyncConfig{CacheTTLSeconds: 0}.CacheTTL()))
}

func TestSyncConfig_Batch(t *testing.T) {
	s := SyncConfig{Containers: "m10.map, shared.map,m20.map,,m10.map", Base: "shared.map", Directory: "maps"}

	paths := func(targets []Target) []string {
		out := make([]string, len(targets))
		for i, tg := range targets {
			out[i] = tg.Path
		}
		return out
	}
	j := func(name string) string { return filepath.Join("maps", name) }

	assert.Equal(t, []string{j("m10.map"), j("shared.map"), j("m20.map")}, paths(s.Batch(false)))
	assert.Equal(t, []string{j("shared.map"), j("m10.map"), j("m20.map")}, paths(s.Batch(true)))
	assert.Equal(t, j("shared.yaml"), s.Batch(true)[0].Index)

	s.Base = "campaign.map"
	assert.Equal(t, []string{j("campaign.map"), j("m10.map"), j("shared.map"), j("m20.map")}, paths(s.Batch(true)))
	assert.Equal(t, j("campaign.map"), paths(s.Batch(false))[3])

	single := SyncConfig{Container: "/abs/m10.map", Index: "custom.yaml", Directory: "maps"}
	assert.Equal(t, []Target{{Path: "/abs/m10.map", Index: "custom.yaml"}}, single.Batch(true))
	assert.Empty(t, SyncConfig{}.Batch(true))
}

func TestSyncConfig_Primary(t *testing.T) {
	_, ok := SyncConfig{}.Primary()
	assert.False(t, ok)

	p, ok := SyncConfig{Container: "m10.map", Containers: "a.map"}.Primary()
	assert.True(t, ok)
	assert.Equal(t, "m10.map", p.Path)

	p, _ = SyncConfig{Containers: "a.map,b.map", Base: "b.map"}.Primary()
	assert.Equal(t, Target{Path: "b.map", Index: "b.yaml"}, p)

	p, _ = SyncConfig{Containers: "a.map,b.map"}.Primary()
	assert.Equal(t, "a.map", p.Path)
}
