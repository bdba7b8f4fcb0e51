package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"tag-sync/core/pipeline"
	"tag-sync/core/reconcile"
	"tag-sync/core/store"
	"tag-sync/core/tags"

	"go.uber.org/zap"
)

// ErrBusy is returned when a sync run is already in progress.
var ErrBusy = errors.New("sync already in progress")

// Store is the snapshot store a service syncs against.
type Store interface {
	pipeline.Store
	reconcile.Lister
	Delete(ctx context.Context, key string) error
}

// Ledger records and loads sync stamps.
type Ledger interface {
	reconcile.Stamps
	pipeline.Stamps
}

// Result is the outcome of one Sync call.
type Result struct {
	Plan     *reconcile.Plan    `json:"plan"`
	Executed int                `json:"executed"`
	Reports  []*pipeline.Report `json:"reports,omitempty"`
}

// Service plans and runs syncs of one container.
type Service struct {
	container pipeline.Container
	store     Store
	ledger    Ledger
	pipeline  *pipeline.Pipeline
	spec      *reconcile.Spec
	logger    *zap.Logger

	run gosync.Mutex

	mu           gosync.RWMutex
	reports      []*pipeline.Report
	lastDownload *pipeline.Report
}

// NewService creates a sync service. ledger may be nil, in which case no
// stamps are kept and every record counts as unstamped.
func NewService(c pipeline.Container, s Store, ledger Ledger, cfg pipeline.Config, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stamps pipeline.Stamps
	if ledger != nil {
		stamps = ledger
	}
	p := pipeline.New(cfg, c, s, stamps, logger)
	return &Service{
		container: c,
		store:     s,
		ledger:    ledger,
		pipeline:  p,
		spec: &reconcile.Spec{
			Container:     c.Name(),
			Namespace:     p.Config().Namespace,
			UseTimestamps: p.Config().UseTimestamps,
			CacheTTL:      cacheTTL,
		},
		logger: logger,
	}
}

// Container returns the name of the synced container.
func (s *Service) Container() string { return s.container.Name() }

func (s *Service) sources() reconcile.Sources {
	src := reconcile.Sources{Container: s.container, Store: s.store}
	if s.ledger != nil {
		src.Ledger = s.ledger
	}
	return src
}

// Plan computes the actions a sync in the given direction would take.
func (s *Service) Plan(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, error) {
	return reconcile.ReconcileWithPlan(ctx, s.spec, s.sources(), opts)
}

// Records reports the sync state of every record in the container, the
// store and the ledger.
func (s *Service) Records(ctx context.Context) ([]reconcile.Result, error) {
	return reconcile.ReconcileAll(ctx, s.spec, s.sources())
}

// Record reports the sync state of one "group:name" record. ok is false when
// no source knows the key.
func (s *Service) Record(ctx context.Context, key string) (r *reconcile.Result, ok bool, err error) {
	if _, _, valid := tags.SplitKey(key); !valid {
		return nil, false, fmt.Errorf("malformed key %q", key)
	}
	r, err = reconcile.ReconcileOne(ctx, s.spec, s.sources(), key)
	if err != nil {
		return nil, false, err
	}
	return r, r.ContainerPresent || r.StorePresent || r.Synced != nil, nil
}

// Sync plans a run and applies it when opts is confirmed and not a dry run.
// Only one Sync runs at a time; a concurrent call fails with ErrBusy.
func (s *Service) Sync(ctx context.Context, opts reconcile.Options) (*Result, error) {
	if !s.run.TryLock() {
		return nil, ErrBusy
	}
	defer s.run.Unlock()

	s.mu.Lock()
	s.reports = nil
	s.mu.Unlock()

	plan, executed, err := reconcile.ReconcileAndApply(ctx, s.spec, s.sources(), s, opts)
	if plan == nil {
		return nil, err
	}

	s.mu.RLock()
	reports := append([]*pipeline.Report(nil), s.reports...)
	s.mu.RUnlock()

	return &Result{Plan: plan, Executed: executed, Reports: reports}, err
}

// Upload pushes the given container records to the store. Records that fail
// individually are listed in the run report, not returned as an error.
func (s *Service) Upload(ctx context.Context, keys []string) error {
	rep, err := s.pipeline.Upload(ctx, keys)
	s.keep(rep)
	return err
}

// Download writes the stored snapshots of keys into the container.
func (s *Service) Download(ctx context.Context, keys []string) error {
	rep, err := s.pipeline.Download(ctx, keys)
	s.keep(rep)
	if rep != nil {
		s.mu.Lock()
		s.lastDownload = rep
		s.mu.Unlock()
	}
	return err
}

// DeleteStore removes the snapshots of keys from the store.
func (s *Service) DeleteStore(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		group, name, ok := tags.SplitKey(key)
		if !ok {
			errs = append(errs, fmt.Errorf("malformed key %q", key))
			continue
		}
		if err := s.store.Delete(ctx, store.Key(s.spec.Namespace, group, name)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	s.logger.Info("Purged store snapshots",
		zap.String("container", s.container.Name()),
		zap.Int("requested", len(keys)),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Missing returns the unresolved references of the last download, keyed by
// the missing record with the records that point at it.
func (s *Service) Missing() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastDownload == nil {
		return map[string][]string{}
	}
	return s.lastDownload.Missing
}

func (s *Service) keep(rep *pipeline.Report) {
	if rep == nil {
		return
	}
	s.mu.Lock()
	s.reports = append(s.reports, rep)
	s.mu.Unlock()
}
