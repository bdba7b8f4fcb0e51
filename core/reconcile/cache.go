package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tag-sync/core/store"

	"golang.org/x/sync/singleflight"
)

// Cache holds pre-built indices of the three sources.
type Cache struct {
	// ContainerSet is the set of record keys held by the container.
	ContainerSet map[string]struct{}

	// StoreIndex maps record keys (namespace stripped) to snapshot stamps.
	StoreIndex map[string]time.Time

	// Stamps maps record keys to ledger stamps.
	Stamps map[string]time.Time

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *Cache) IsExpired() bool {
	if c.TTL == 0 {
		return true
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	sf     singleflight.Group
}

var globalCacheStore = &cacheStore{
	caches: make(map[string]*Cache),
}

// BuildCache loads all three indices concurrently.
// This function does NOT store the cache; use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec, src Sources) (*Cache, error) {
	var (
		containerSet map[string]struct{}
		storeIndex   map[string]time.Time
		stamps       map[string]time.Time
		storeErr     error
		stampErr     error
		wg           sync.WaitGroup
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		names := src.Container.Names()
		containerSet = make(map[string]struct{}, len(names))
		for _, n := range names {
			containerSet[n] = struct{}{}
		}
	}()

	go func() {
		defer wg.Done()
		keys, err := src.Store.ListKeys(ctx, store.Prefix(spec.Namespace))
		if err != nil {
			storeErr = fmt.Errorf("list store: %w", err)
			return
		}
		storeIndex = make(map[string]time.Time, len(keys))
		for _, k := range keys {
			if rk, ok := store.RecordKey(spec.Namespace, k.Key); ok {
				storeIndex[rk] = k.LastModified
			}
		}
	}()

	go func() {
		defer wg.Done()
		if src.Ledger == nil {
			stamps = map[string]time.Time{}
			return
		}
		stamps, stampErr = src.Ledger.Load(ctx, spec.Container)
		if stampErr != nil {
			stampErr = fmt.Errorf("load ledger: %w", stampErr)
		}
	}()

	wg.Wait()

	if storeErr != nil {
		return nil, storeErr
	}
	if stampErr != nil {
		return nil, stampErr
	}

	return &Cache{
		ContainerSet: containerSet,
		StoreIndex:   storeIndex,
		Stamps:       stamps,
		Built:        time.Now(),
		TTL:          spec.CacheTTL,
	}, nil
}

// GetOrBuildCache retrieves a cache for the given spec from the store,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func GetOrBuildCache(ctx context.Context, spec *Spec, src Sources) (*Cache, error) {
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec, src)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*Cache), nil
}

// InvalidateCache removes the cache for the given spec. Sync runs call it
// after writing so the next plan sees fresh listings.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}
