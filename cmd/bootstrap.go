package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tag-sync/core/config"
	"tag-sync/core/container"
	"tag-sync/core/database"
	"tag-sync/core/layout"
	"tag-sync/core/ledger"
	"tag-sync/core/logger"
	"tag-sync/core/storage"
	"tag-sync/core/store"
	syncfeature "tag-sync/feature/sync"

	"go.uber.org/zap"
)

// errNoContainer is returned when sync.container is not configured.
var errNoContainer = errors.New("no container configured (set SYNC_CONTAINER or SYNC_CONTAINERS)")

// stampLedger is a ledger that can also forget a container.
type stampLedger interface {
	syncfeature.Ledger
	Clear(ctx context.Context, container string) (int64, error)
}

// session holds everything one sync invocation works with.
type session struct {
	container *container.Container
	store     *store.Store
	ledger    stampLedger
	namespace string
	service   *syncfeature.Service
	logger    *zap.Logger
}

// Close releases the container file.
func (s *session) Close() error {
	return s.container.Close()
}

// backend is shared by every session of a batch.
type backend struct {
	cfg     *config.Config
	layouts *layout.Registry
	store   *store.Store
	ledger  stampLedger
	logger  *zap.Logger
}

// connect loads layouts and connects the store and the ledger. The ledger
// falls back to memory when the database is disabled or unreachable.
func connect(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*backend, error) {
	layouts, err := layout.Load(cfg.Sync.LayoutDir, cfg.Sync.FallbackLayoutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	bucketCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout())
	err = storage.EnsureBucket(bucketCtx, client, cfg.Storage.Bucket, cfg.Storage.Region)
	cancel()
	if err != nil {
		return nil, err
	}

	return &backend{
		cfg:     cfg,
		layouts: layouts,
		store:   store.New(client, cfg.Storage.Bucket, cfg.Sync.Prefix),
		ledger:  openLedger(cfg, logg),
		logger:  logg,
	}, nil
}

// open opens one container of the batch.
func (b *backend) open(target config.Target) (*session, error) {
	c, err := container.Open(target.Path, target.Index, b.layouts)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", target.Path, err)
	}
	logg := logger.WithContainer(b.logger, c.Name())
	pcfg := b.cfg.Sync.Pipeline(c.Name())

	logg.Info("Sync session ready",
		zap.String("bucket", b.store.Bucket()),
		zap.String("namespace", pcfg.Namespace),
		zap.Int("records", len(c.Names())),
		zap.Strings("groups", b.layouts.Groups()))

	return &session{
		container: c,
		store:     b.store,
		ledger:    b.ledger,
		namespace: pcfg.Namespace,
		service:   syncfeature.NewService(c, b.store, b.ledger, pcfg, b.cfg.Sync.CacheTTL(), logg),
		logger:    logg,
	}, nil
}

// openPrimary opens the container served over HTTP.
func openPrimary(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*session, error) {
	target, ok := cfg.Sync.Primary()
	if !ok {
		return nil, errNoContainer
	}
	b, err := connect(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}
	return b.open(target)
}

func openLedger(cfg *config.Config, logg *zap.Logger) stampLedger {
	if !cfg.Database.Enabled {
		if cfg.Sync.UseTimestamps {
			logg.Warn("Timestamps enabled without a database; stamps live only for this process")
		}
		return ledger.NewMemory()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Warn("Ledger database unavailable, using memory", zap.Error(err))
		return ledger.NewMemory()
	}
	l := ledger.New(db)
	if err := l.Migrate(); err != nil {
		logg.Warn("Ledger migration failed, using memory", zap.Error(err))
		return ledger.NewMemory()
	}
	logg.Info("Connected to ledger database", zap.String("database", cfg.Database.Name))
	return l
}

// loadRuntime loads configuration and builds the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

func since(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
