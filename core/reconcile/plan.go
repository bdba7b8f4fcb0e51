package reconcile

import (
	"context"
	"fmt"
	"time"
)

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, src Sources, opts Options) (*Plan, error) {
	if _, err := ParseDirection(string(opts.Direction)); err != nil {
		return nil, err
	}

	cache, err := GetOrBuildCache(ctx, spec, src)
	if err != nil {
		return nil, err
	}

	results := reconcileFromCache(cache)
	summary, actions := buildPlanFromResults(results, spec, opts)

	return &Plan{
		Direction: opts.Direction,
		Results:   results,
		Actions:   actions,
		Summary:   summary,
	}, nil
}

// ApplyPlan executes the actions in a plan.
// Returns the number of actions executed and any error encountered.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, mutator Mutator, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	defer InvalidateCache(spec)

	if keys := plan.Keys(ActionUpload); len(keys) > 0 {
		if err := mutator.Upload(ctx, keys); err != nil {
			return executed, fmt.Errorf("failed to upload: %w", err)
		}
		executed += len(keys)
	}

	if keys := plan.Keys(ActionDownload); len(keys) > 0 {
		if err := mutator.Download(ctx, keys); err != nil {
			return executed, fmt.Errorf("failed to download: %w", err)
		}
		executed += len(keys)
	}

	if keys := plan.Keys(ActionDeleteStore); len(keys) > 0 {
		if err := mutator.DeleteStore(ctx, keys); err != nil {
			return executed, fmt.Errorf("failed to purge store: %w", err)
		}
		executed += len(keys)
	}

	return executed, nil
}

// ReconcileAndApply is a convenience wrapper that plans and optionally applies actions.
func ReconcileAndApply(ctx context.Context, spec *Spec, src Sources, mutator Mutator, opts Options) (*Plan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, src, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, mutator, plan, opts)
	return plan, executed, err
}

// buildPlanFromResults generates a summary and action plan from results.
func buildPlanFromResults(results []Result, spec *Spec, opts Options) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalItems = len(results)

	for _, r := range results {
		if r.ContainerPresent && !r.StorePresent {
			summary.MissingStore++
		}
		if r.StorePresent && !r.ContainerPresent {
			summary.MissingContainer++
		}
		if r.ContainerPresent && r.Synced == nil {
			summary.Unstamped++
		}

		if !r.ContainerPresent {
			if opts.DoPurge && r.StorePresent {
				actions = append(actions, Action{Type: ActionDeleteStore, Key: r.Key, Reason: "missing in container"})
				summary.PurgeActions++
			}
			continue
		}

		switch opts.Direction {
		case Upload:
			if reason, ok := uploadReason(r, spec.UseTimestamps); ok {
				actions = append(actions, Action{Type: ActionUpload, Key: r.Key, Reason: reason})
				summary.Uploads++
			}
		case Download:
			if reason, ok := downloadReason(r, spec.UseTimestamps); ok {
				actions = append(actions, Action{Type: ActionDownload, Key: r.Key, Reason: reason})
				summary.Downloads++
			}
		}
	}

	return summary, actions
}

// uploadReason decides whether a container record should be uploaded.
func uploadReason(r Result, useTimestamps bool) (string, bool) {
	switch {
	case !useTimestamps:
		return "full sync", true
	case !r.StorePresent:
		return "missing in store", true
	case r.Synced == nil:
		return "never synced", true
	case r.Synced.After(*r.StoreModified):
		return fmt.Sprintf("local %s newer than store %s", r.Synced.UTC().Format(time.RFC3339), r.StoreModified.UTC().Format(time.RFC3339)), true
	}
	return "", false
}

// downloadReason decides whether a stored snapshot should be written back.
func downloadReason(r Result, useTimestamps bool) (string, bool) {
	switch {
	case !r.StorePresent:
		return "", false
	case !useTimestamps:
		return "full sync", true
	case r.Synced == nil:
		return "never synced", true
	case r.StoreModified.After(*r.Synced):
		return fmt.Sprintf("store %s newer than local %s", r.StoreModified.UTC().Format(time.RFC3339), r.Synced.UTC().Format(time.RFC3339)), true
	}
	return "", false
}
