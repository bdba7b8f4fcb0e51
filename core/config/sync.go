package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"tag-sync/core/pipeline"
	"tag-sync/core/store"
)

// SyncConfig holds the settings of sync runs.
type SyncConfig struct {
	// Container is the path of the container file.
	Container string `mapstructure:"container" default:""`
	// Index is the path of the container's YAML manifest. Defaults to the
	// container path with a .yaml extension.
	Index string `mapstructure:"index" default:""`
	// Containers is a comma separated list of containers synced in one batch.
	// Entries take the default manifest path.
	Containers string `mapstructure:"containers" default:""`
	// Base is the container of Containers downloaded first, so the records
	// other containers reference exist before they are fixed up.
	Base string `mapstructure:"base" default:""`
	// Directory resolves relative Container and Containers entries.
	Directory string `mapstructure:"directory" default:""`
	// LayoutDir holds the YAML layouts of every record group.
	LayoutDir string `mapstructure:"layout_dir" default:"layouts"`
	// FallbackLayoutDir supplies groups missing from LayoutDir.
	FallbackLayoutDir string `mapstructure:"fallback_layout_dir" default:""`
	// Namespace is "none", "container" or a literal key prefix.
	Namespace string `mapstructure:"namespace" default:"container"`
	// Prefix is the object prefix of snapshots in the bucket.
	Prefix string `mapstructure:"prefix" default:"tags"`
	// UseTimestamps filters runs by ledger and store stamps.
	UseTimestamps bool `mapstructure:"use_timestamps" default:"false"`
	// Workers is the number of concurrent workers. Zero means one per CPU.
	Workers int `mapstructure:"workers" default:"0"`
	// QueueFactor sizes the download queue as QueueFactor x Workers.
	QueueFactor int `mapstructure:"queue_factor" default:"4"`
	// BatchSize is the consumer fan-out. Zero means Workers.
	BatchSize int `mapstructure:"batch_size" default:"0"`
	// SkipUnchanged writes only fields that differ from the container.
	SkipUnchanged bool `mapstructure:"skip_unchanged" default:"true"`
	// CacheTTLSeconds caches plan listings. Zero disables caching.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
}

// IndexPath returns the manifest path of Container.
func (c SyncConfig) IndexPath() string {
	if c.Index != "" {
		return c.Index
	}
	return ManifestPath(c.resolve(c.Container))
}

// ManifestPath is the default manifest of a container file: the same path
// with a .yaml extension.
func ManifestPath(container string) string {
	if container == "" {
		return ""
	}
	return strings.TrimSuffix(container, filepath.Ext(container)) + ".yaml"
}

func (c SyncConfig) resolve(path string) string {
	if path == "" || c.Directory == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Directory, path)
}

// Target is one container of a batch.
type Target struct {
	Path  string
	Index string
}

// Primary returns the container served over HTTP: Container, else Base,
// else the first batch entry.
func (c SyncConfig) Primary() (Target, bool) {
	if c.Container != "" {
		return Target{Path: c.resolve(c.Container), Index: c.IndexPath()}, true
	}
	if c.Base != "" {
		p := c.resolve(c.Base)
		return Target{Path: p, Index: ManifestPath(p)}, true
	}
	if batch := c.Batch(false); len(batch) > 0 {
		return batch[0], true
	}
	return Target{}, false
}

// Batch lists the containers of a run in order. Containers takes precedence
// over Container. Base always joins the batch and downloads move it to the
// front; duplicates are dropped.
func (c SyncConfig) Batch(download bool) []Target {
	var paths []string
	for _, p := range strings.Split(c.Containers, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		if c.Container == "" {
			return nil
		}
		return []Target{{Path: c.resolve(c.Container), Index: c.IndexPath()}}
	}

	if c.Base != "" && !slices.Contains(paths, c.Base) {
		paths = append(paths, c.Base)
	}
	if download && c.Base != "" {
		ordered := []string{c.Base}
		for _, p := range paths {
			if p != c.Base {
				ordered = append(ordered, p)
			}
		}
		paths = ordered
	}

	seen := make(map[string]bool, len(paths))
	out := make([]Target, 0, len(paths))
	for _, p := range paths {
		full := c.resolve(p)
		if seen[full] {
			continue
		}
		seen[full] = true
		out = append(out, Target{Path: full, Index: ManifestPath(full)})
	}
	return out
}

// CacheTTL returns the plan cache lifetime.
func (c SyncConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Pipeline builds the pipeline settings for a container.
func (c SyncConfig) Pipeline(containerName string) pipeline.Config {
	return pipeline.Config{
		Namespace:     store.Namespace(c.Namespace, containerName),
		UseTimestamps: c.UseTimestamps,
		Workers:       c.Workers,
		QueueFactor:   c.QueueFactor,
		BatchSize:     c.BatchSize,
		SkipUnchanged: c.SkipUnchanged,
	}
}
