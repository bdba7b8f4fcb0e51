package reconcile

import (
	"fmt"
	"time"
)

// Direction is the way records move in a sync run.
type Direction string

const (
	// Upload moves records from the container to the store.
	Upload Direction = "upload"
	// Download moves records from the store into the container.
	Download Direction = "download"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Upload, Download:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Result represents the reconciliation output for a single record.
type Result struct {
	// Key is the "group:name" identity of the record.
	Key string `json:"key"`

	// ContainerPresent indicates whether the container holds the record.
	ContainerPresent bool `json:"container_present"`

	// StorePresent indicates whether the store holds a snapshot.
	StorePresent bool `json:"store_present"`

	// StoreModified is the last-modified stamp of the snapshot.
	StoreModified *time.Time `json:"store_modified,omitempty"`

	// Synced is the ledger stamp of the record, if any.
	Synced *time.Time `json:"synced,omitempty"`
}

// Spec defines the configuration for a reconciliation operation.
type Spec struct {
	// Container is the container name the ledger is keyed by.
	Container string

	// Namespace prefixes store keys. Empty means no namespace.
	Namespace string

	// UseTimestamps enables stamp based filtering.
	UseTimestamps bool

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Container + "|" + s.Namespace
}

// ActionType represents the type of sync action.
type ActionType string

const (
	// ActionUpload pushes a record to the store.
	ActionUpload ActionType = "upload"
	// ActionDownload writes a stored record into the container.
	ActionDownload ActionType = "download"
	// ActionDeleteStore removes a snapshot whose record left the container.
	ActionDeleteStore ActionType = "delete_store"
)

// Action represents a planned operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the record identity.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	Direction Direction   `json:"direction"`
	Results   []Result    `json:"results"`
	Actions   []Action    `json:"actions"`
	Summary   PlanSummary `json:"summary"`
}

// Keys returns the keys of every action of the given type, in plan order.
func (p *Plan) Keys(t ActionType) []string {
	var keys []string
	for _, a := range p.Actions {
		if a.Type == t {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	// TotalItems is the total number of unique records.
	TotalItems int `json:"total_items"`

	// MissingStore counts container records without a snapshot.
	MissingStore int `json:"missing_store"`

	// MissingContainer counts snapshots without a container record.
	MissingContainer int `json:"missing_container"`

	// Unstamped counts container records the ledger has never seen.
	Unstamped int `json:"unstamped"`

	// Uploads counts planned uploads.
	Uploads int `json:"uploads"`

	// Downloads counts planned downloads.
	Downloads int `json:"downloads"`

	// PurgeActions counts planned store deletions.
	PurgeActions int `json:"purge_actions"`
}

// Options controls planning and execution.
type Options struct {
	// Direction selects the filter applied to results.
	Direction Direction

	// DryRun prevents execution of any actions if true.
	DryRun bool

	// DoPurge plans deletion of snapshots whose record left the container.
	DoPurge bool

	// Confirmed indicates the caller confirmed execution.
	// If false, actions will not execute regardless of DryRun.
	Confirmed bool
}
