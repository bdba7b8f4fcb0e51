package reconcile

import (
	"context"
	"sort"
	"time"
)

// ReconcileAll performs a full reconciliation across all records.
// It builds indices from all three sources, computes the union of keys,
// and returns a result for each key sorted by key.
func ReconcileAll(ctx context.Context, spec *Spec, src Sources) ([]Result, error) {
	cache, err := GetOrBuildCache(ctx, spec, src)
	if err != nil {
		return nil, err
	}
	return reconcileFromCache(cache), nil
}

// ReconcileOne reports a single record, using the cached indices.
func ReconcileOne(ctx context.Context, spec *Spec, src Sources, key string) (*Result, error) {
	cache, err := GetOrBuildCache(ctx, spec, src)
	if err != nil {
		return nil, err
	}
	result := buildResult(key, cache)
	return &result, nil
}

func reconcileFromCache(cache *Cache) []Result {
	union := buildUnion(cache)
	results := make([]Result, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, cache))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results
}

// buildUnion creates a union of all keys from the container, store and ledger.
func buildUnion(cache *Cache) map[string]struct{} {
	union := make(map[string]struct{}, len(cache.ContainerSet))
	for key := range cache.ContainerSet {
		union[key] = struct{}{}
	}
	for key := range cache.StoreIndex {
		union[key] = struct{}{}
	}
	for key := range cache.Stamps {
		union[key] = struct{}{}
	}
	return union
}

// buildResult creates a Result for a single key.
func buildResult(key string, cache *Cache) Result {
	_, inContainer := cache.ContainerSet[key]
	result := Result{Key: key, ContainerPresent: inContainer}

	if t, ok := cache.StoreIndex[key]; ok {
		result.StorePresent = true
		result.StoreModified = timePtr(t)
	}
	if t, ok := cache.Stamps[key]; ok {
		result.Synced = timePtr(t)
	}
	return result
}

func timePtr(t time.Time) *time.Time {
	return &t
}
