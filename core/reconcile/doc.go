// Package reconcile decides which records a sync run should move.
//
// It reconciles three sources of truth for one container:
//   - the container index (every record the container holds)
//   - the store listing (snapshots and their last-modified stamps)
//   - the ledger (when each record was last synced locally)
//
// # Architecture
//
// 1. Engine: builds the union of keys from all sources and reports presence
// and stamps per key.
//
// 2. Sources: small interfaces over the container, the store and the ledger,
// so planning runs against fakes in tests.
//
// 3. Cache: TTL-based caching of the three indices with stampede protection,
// keyed by container and namespace.
//
// 4. Plan: turns results into upload, download or purge actions. ApplyPlan
// hands them to a Mutator only when the run is confirmed and not a dry run.
//
// # Filters
//
// Without timestamps every container record is uploaded and every container
// record present in the store is downloaded. With timestamps a record is
// uploaded when its ledger stamp is newer than the store copy or the store
// lacks it, and downloaded when the store copy is newer than the ledger stamp
// or no stamp exists.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Container: "m10",
//	    Namespace: "m10",
//	    UseTimestamps: true,
//	    CacheTTL: time.Minute,
//	}
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, sources, reconcile.Options{Direction: reconcile.Download})
package reconcile
