// Package pipeline moves decoded records between a container and the store.
//
// Download runs one producer and one consumer joined by a bounded queue of
// QueueFactor x Workers items. The producer walks the work list in order,
// fetching and decoding snapshots; the consumer takes batches of BatchSize
// and fans each batch out, diffing references and writing records through the
// container's single writer. Upload runs a pool of Workers goroutines that
// decode records and store their snapshots.
//
// A failing record never stops the run. Only context cancellation aborts it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tag-sync/core/codec"
	"tag-sync/core/field"
	"tag-sync/core/refs"
	"tag-sync/core/snapshot"
	"tag-sync/core/store"
	"tag-sync/core/tags"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Container is the record source and sink of a run.
type Container interface {
	Name() string
	Names() []string
	Record(key string) (*tags.Record, error)
	ReadRecord(rec *tags.Record) ([]*field.Field, []string, error)
	WriteRecord(rec *tags.Record, fields []*field.Field, changes *codec.ChangeSet) error
	SaveIndex() error
}

// Store persists serialized snapshots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Set(ctx context.Context, key string, data []byte, modified time.Time) error
}

// Stamps records when a record was last synced.
type Stamps interface {
	Touch(ctx context.Context, container, key string, at time.Time) error
}

// Item is one decoded snapshot waiting to be written.
type Item struct {
	Key      string
	Record   *tags.Record
	Fields   []*field.Field
	Refs     []string
	Modified time.Time
}

// Pipeline runs sync batches for one container.
type Pipeline struct {
	cfg       Config
	container Container
	store     Store
	stamps    Stamps
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a pipeline. stamps may be nil.
func New(cfg Config, c Container, s Store, stamps Stamps, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg.withDefaults(),
		container: c,
		store:     s,
		stamps:    stamps,
		logger:    logger,
		now:       time.Now,
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// StoreKey composes the store key of a record.
func (p *Pipeline) StoreKey(rec *tags.Record) string {
	return store.Key(p.cfg.Namespace, rec.Group, rec.Name)
}

type run struct {
	report    *Report
	resolver  *refs.Resolver
	completed atomic.Int64

	mu     sync.Mutex
	failed map[string]string
}

func (p *Pipeline) newRun(direction string, total int) *run {
	return &run{
		report: &Report{
			RunID:     uuid.NewString(),
			Direction: direction,
			Container: p.container.Name(),
			Total:     total,
		},
		resolver: refs.NewResolver(p.container.Names()),
		failed:   make(map[string]string),
	}
}

func (p *Pipeline) fail(r *run, key string, err error) {
	r.mu.Lock()
	r.failed[key] = err.Error()
	r.mu.Unlock()
	p.logger.Warn("Record failed",
		zap.String("run_id", r.report.RunID),
		zap.String("record", key),
		zap.Error(err))
}

func (p *Pipeline) finish(r *run, start time.Time) *Report {
	rep := r.report
	rep.Completed = int(r.completed.Load())
	rep.Failed = r.failed
	rep.Missing = r.resolver.Report()
	rep.Duration = time.Since(start)

	p.logger.Info("Sync batch finished",
		zap.String("run_id", rep.RunID),
		zap.String("direction", rep.Direction),
		zap.String("container", rep.Container),
		zap.Int("total", rep.Total),
		zap.Int("completed", rep.Completed),
		zap.Int("failed", len(rep.Failed)),
		zap.Int("missing_refs", len(rep.Missing)),
		zap.Duration("duration", rep.Duration))
	return rep
}

// Download writes the stored snapshots of keys into the container.
func (p *Pipeline) Download(ctx context.Context, keys []string) (*Report, error) {
	start := time.Now()
	r := p.newRun("download", len(keys))
	queue := make(chan Item, p.cfg.QueueFactor*p.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		return p.produce(gctx, r, keys, queue)
	})
	g.Go(func() error {
		return p.consume(gctx, r, queue)
	})
	err := g.Wait()

	if r.completed.Load() > 0 {
		if serr := p.container.SaveIndex(); serr != nil {
			err = errors.Join(err, fmt.Errorf("save index: %w", serr))
		}
	}
	return p.finish(r, start), err
}

func (p *Pipeline) produce(ctx context.Context, r *run, keys []string, queue chan<- Item) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := p.fetch(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail(r, key, err)
			continue
		}
		select {
		case queue <- item:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, key string) (Item, error) {
	rec, err := p.container.Record(key)
	if err != nil {
		return Item{}, err
	}
	data, modified, err := p.store.Get(ctx, p.StoreKey(rec))
	if err != nil {
		return Item{}, err
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return Item{}, err
	}
	if snap.Key() != rec.Key() {
		return Item{}, fmt.Errorf("snapshot holds %s", snap.Key())
	}
	return Item{Key: key, Record: rec, Fields: snap.Fields, Refs: snap.Refs, Modified: modified}, nil
}

func (p *Pipeline) consume(ctx context.Context, r *run, queue <-chan Item) error {
	for {
		batch, open := p.nextBatch(ctx, queue)
		if len(batch) > 0 {
			g, gctx := errgroup.WithContext(ctx)
			for _, item := range batch {
				item := item
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					p.apply(gctx, r, item)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}
		if !open {
			return ctx.Err()
		}
	}
}

// nextBatch blocks until BatchSize items arrive or the queue closes. open is
// false once the queue is drained or the context is done.
func (p *Pipeline) nextBatch(ctx context.Context, queue <-chan Item) (batch []Item, open bool) {
	batch = make([]Item, 0, p.cfg.BatchSize)
	for len(batch) < p.cfg.BatchSize {
		select {
		case item, ok := <-queue:
			if !ok {
				return batch, false
			}
			batch = append(batch, item)
		case <-ctx.Done():
			return nil, false
		}
	}
	return batch, true
}

func (p *Pipeline) apply(ctx context.Context, r *run, item Item) {
	if missing := r.resolver.Track(item.Key, item.Refs); len(missing) > 0 {
		p.logger.Warn("Unresolved references",
			zap.String("group", item.Record.Group),
			zap.String("name", item.Record.Name),
			zap.Strings("refs", missing))
	}

	var changes *codec.ChangeSet
	if p.cfg.SkipUnchanged {
		if current, _, err := p.container.ReadRecord(item.Record); err == nil {
			changes = codec.NewChangeSet()
			changes.Record(current)
		}
	}

	if err := p.container.WriteRecord(item.Record, item.Fields, changes); err != nil {
		p.fail(r, item.Key, err)
		return
	}
	p.touch(ctx, item.Key, item.Modified)
	r.completed.Add(1)
}

func (p *Pipeline) touch(ctx context.Context, key string, at time.Time) {
	if p.stamps == nil || !p.cfg.UseTimestamps {
		return
	}
	if err := p.stamps.Touch(ctx, p.container.Name(), key, at); err != nil {
		p.logger.Warn("Failed to stamp record", zap.String("record", key), zap.Error(err))
	}
}

// Upload stores snapshots of the given container records.
func (p *Pipeline) Upload(ctx context.Context, keys []string) (*Report, error) {
	start := time.Now()
	r := p.newRun("upload", len(keys))

	jobs := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			for key := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := p.upload(gctx, key); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					p.fail(r, key, err)
					continue
				}
				r.completed.Add(1)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, key := range keys {
			select {
			case jobs <- key:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	err := g.Wait()
	return p.finish(r, start), err
}

func (p *Pipeline) upload(ctx context.Context, key string) error {
	rec, err := p.container.Record(key)
	if err != nil {
		return err
	}
	fields, references, err := p.container.ReadRecord(rec)
	if err != nil {
		return err
	}
	if broken := dangling(fields); len(broken) > 0 {
		p.logger.Warn("Dangling references",
			zap.String("group", rec.Group),
			zap.String("name", rec.Name),
			zap.Strings("refs", broken))
	}
	data, err := snapshot.Marshal(snapshot.New(rec.Group, rec.Name, fields, references))
	if err != nil {
		return err
	}
	at := p.now().UTC()
	if err := p.store.Set(ctx, p.StoreKey(rec), data, at); err != nil {
		return err
	}
	p.touch(ctx, key, at)
	return nil
}

// dangling lists the references of a decoded tree whose index matches no
// record, as "group@index". Groupless references render with an empty group.
func dangling(fields []*field.Field) []string {
	var out []string
	field.Walk(fields, func(f *field.Field) {
		ref, ok := f.Value.(*field.TagRef)
		if !ok || ref.Resolved || !tags.DatumIndex(ref.Index).IsValid() {
			return
		}
		out = append(out, fmt.Sprintf("%s@%#08x", tags.MagicToString(ref.Group), ref.Index))
	})
	return out
}
