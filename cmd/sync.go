package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tag-sync/core/config"
	"tag-sync/core/pipeline"
	"tag-sync/core/reconcile"
	"tag-sync/core/store"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dryRunSync bool
	yesConfirm bool
	purgeStore bool
	direction  string
	jsonOutput bool
)

// syncCmd is the parent command for all sync operations.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync container records with the snapshot store",
	Long: `Plan and run syncs between the configured container and the snapshot store.

Examples:
  # Show what an upload would move
  sync plan --direction upload

  # Upload with interactive confirmation
  sync upload

  # Download newer snapshots without prompting
  sync download --yes

  # Upload and delete snapshots whose record left the container
  sync upload --purge --yes

  # Download every container of SYNC_CONTAINERS, SYNC_BASE first
  SYNC_CONTAINERS=m10.map,m20.map SYNC_BASE=shared.map sync download --yes`,
}

var syncUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Push container records to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), reconcile.Upload)
	},
}

var syncDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Write stored snapshots into the container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), reconcile.Download)
	},
}

var syncPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Report the actions a sync would take",
	RunE:  runPlan,
}

var syncClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every snapshot and ledger stamp of the container",
	RunE:  runClear,
}

func init() {
	syncCmd.PersistentFlags().BoolVar(&dryRunSync, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	syncCmd.PersistentFlags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm actions (non-interactive)")
	syncCmd.PersistentFlags().BoolVar(&purgeStore, "purge", false, "Delete snapshots whose record is not in the container")

	syncPlanCmd.Flags().StringVar(&direction, "direction", "upload", "Direction to plan: upload or download")
	syncPlanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full plan as JSON")

	syncCmd.AddCommand(syncUploadCmd, syncDownloadCmd, syncPlanCmd, syncClearCmd)
	RootCmd.AddCommand(syncCmd)
}

// forEachSession runs fn for every container of the batch in order. A failing
// container is logged and the batch moves on; the errors are joined.
func forEachSession(ctx context.Context, download bool, fn func(ctx context.Context, s *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, l, err := loadRuntime()
	if err != nil {
		return err
	}
	defer l.Sync()

	targets := cfg.Sync.Batch(download)
	if len(targets) == 0 {
		return errNoContainer
	}
	b, err := connect(ctx, cfg, l)
	if err != nil {
		return err
	}

	return runBatch(ctx, l, targets, b.open, fn)
}

// runBatch opens each target in order and runs fn on it.
func runBatch(ctx context.Context, l *zap.Logger, targets []config.Target, open func(config.Target) (*session, error), fn func(ctx context.Context, s *session) error) error {
	var errs []error
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := runTarget(ctx, target, open, fn); err != nil {
			l.Error("Container sync failed", zap.String("container", target.Path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", target.Path, err))
		}
	}
	if len(targets) > 1 {
		l.Info("Batch finished", zap.Int("containers", len(targets)), zap.Int("failed", len(errs)))
	}
	return errors.Join(errs...)
}

func runTarget(ctx context.Context, target config.Target, open func(config.Target) (*session, error), fn func(ctx context.Context, s *session) error) error {
	s, err := open(target)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func runPlan(cmd *cobra.Command, args []string) error {
	d, err := reconcile.ParseDirection(direction)
	if err != nil {
		return err
	}
	return forEachSession(cmd.Context(), d == reconcile.Download, func(ctx context.Context, s *session) error {
		plan, err := s.service.Plan(ctx, reconcile.Options{Direction: d, DoPurge: purgeStore})
		if err != nil {
			return fmt.Errorf("failed to plan sync: %w", err)
		}
		if jsonOutput {
			return writeJSON(os.Stdout, plan)
		}
		printSyncPlan(s.logger, plan)
		return nil
	})
}

func runSync(ctx context.Context, d reconcile.Direction) error {
	return forEachSession(ctx, d == reconcile.Download, func(ctx context.Context, s *session) error {
		start := time.Now()
		opts := reconcile.Options{Direction: d, DryRun: dryRunSync, DoPurge: purgeStore}

		// Step 1: Plan (always runs)
		s.logger.Info("Planning sync...", zap.String("direction", string(d)))
		plan, err := s.service.Plan(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to plan sync: %w", err)
		}
		printSyncPlan(s.logger, plan)

		if dryRunSync {
			s.logger.Info("Dry-run mode: No changes were made.")
			return nil
		}
		if len(plan.Actions) == 0 {
			s.logger.Info("No actions required.")
			return nil
		}

		// Step 2: Confirm
		if !confirmAction(os.Stdin, plan.Summary.PurgeActions > 0) {
			s.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
		opts.Confirmed = true

		// Step 3: Apply
		result, err := s.service.Sync(ctx, opts)
		if result != nil {
			for _, rep := range result.Reports {
				printRunReport(s.logger, rep)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to apply sync: %w", err)
		}
		s.logger.Info("Successfully executed actions", zap.Int("count", result.Executed), since(start))
		return nil
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	return forEachSession(cmd.Context(), false, func(ctx context.Context, s *session) error {
		prefix := store.Prefix(s.namespace)
		s.logger.Warn("Clearing snapshots and stamps",
			zap.String("prefix", prefix),
			zap.String("bucket", s.store.Bucket()))
		if dryRunSync {
			s.logger.Info("Dry-run mode: No changes were made.")
			return nil
		}
		if !confirmAction(os.Stdin, true) {
			s.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}

		removed, err := s.store.Clear(ctx, s.namespace)
		if err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		stamps, err := s.ledger.Clear(ctx, s.container.Name())
		if err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		s.logger.Info("Cleared container state", zap.Int("snapshots", removed), zap.Int64("stamps", stamps))
		return nil
	})
}

// printSyncPlan prints a formatted sync plan using logger.
func printSyncPlan(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Sync plan",
		zap.String("direction", string(plan.Direction)),
		zap.Int("total_items", s.TotalItems),
		zap.Int("missing_store", s.MissingStore),
		zap.Int("missing_container", s.MissingContainer),
		zap.Int("unstamped", s.Unstamped),
	)

	if len(plan.Actions) == 0 {
		return
	}
	l.Info("Planned actions",
		zap.Int("uploads", s.Uploads),
		zap.Int("downloads", s.Downloads),
		zap.Int("purge_actions", s.PurgeActions),
		zap.Int("total_actions", len(plan.Actions)),
	)

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

func printRunReport(l *zap.Logger, rep *pipeline.Report) {
	for _, key := range rep.FailedKeys() {
		l.Warn("Record failed", zap.String("record", key), zap.String("error", rep.Failed[key]))
	}
	for missing, referrers := range rep.Missing {
		l.Warn("Missing reference", zap.String("target", missing), zap.Strings("referenced_by", referrers))
	}
}

// confirmAction uses --yes or prompts on in. Destructive runs say so.
func confirmAction(in io.Reader, destructive bool) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	prompt := "\nType 'yes' to apply: "
	if destructive {
		prompt = "\n⚠️  Type 'yes' to confirm destructive actions: "
	}
	fmt.Print(prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
