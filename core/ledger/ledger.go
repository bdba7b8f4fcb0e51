// Package ledger remembers when each record of a container was last synced.
//
// Stamps live in a MySQL table reached through GORM; Memory offers the same
// operations for runs without a database.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stamp is one row of the ledger.
type Stamp struct {
	Container string    `gorm:"primaryKey;size:191" json:"container"`
	RecordKey string    `gorm:"primaryKey;size:191" json:"record_key"`
	SyncedAt  time.Time `gorm:"not null" json:"synced_at"`
}

// TableName overrides the GORM table name.
func (Stamp) TableName() string {
	return "sync_stamps"
}

const batchSize = 200

// DB is a ledger stored through GORM.
type DB struct {
	db *gorm.DB
}

// New creates a ledger over db.
func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Migrate creates or updates the ledger table.
func (l *DB) Migrate() error {
	return l.db.AutoMigrate(&Stamp{})
}

// Load returns the stamps of a container keyed by "group:name".
func (l *DB) Load(ctx context.Context, container string) (map[string]time.Time, error) {
	var rows []Stamp
	if err := l.db.WithContext(ctx).Where("container = ?", container).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load stamps: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.RecordKey] = r.SyncedAt
	}
	return out, nil
}

// Touch records that key was synced at the given time.
func (l *DB) Touch(ctx context.Context, container, key string, at time.Time) error {
	return l.TouchBatch(ctx, container, map[string]time.Time{key: at})
}

// TouchBatch upserts several stamps at once.
func (l *DB) TouchBatch(ctx context.Context, container string, stamps map[string]time.Time) error {
	if len(stamps) == 0 {
		return nil
	}
	rows := make([]Stamp, 0, len(stamps))
	for k, at := range stamps {
		rows = append(rows, Stamp{Container: container, RecordKey: k, SyncedAt: at.UTC()})
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"synced_at"}),
	}).CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save stamps: %w", err)
	}
	return nil
}

// Clear drops every stamp of a container.
func (l *DB) Clear(ctx context.Context, container string) (int64, error) {
	res := l.db.WithContext(ctx).Where("container = ?", container).Delete(&Stamp{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear stamps: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Memory is an in-process ledger.
type Memory struct {
	mu     sync.RWMutex
	stamps map[string]map[string]time.Time
}

// NewMemory creates an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{stamps: make(map[string]map[string]time.Time)}
}

// Load returns a copy of the stamps of a container.
func (m *Memory) Load(_ context.Context, container string) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]time.Time, len(m.stamps[container]))
	for k, v := range m.stamps[container] {
		out[k] = v
	}
	return out, nil
}

// Touch records that key was synced at the given time.
func (m *Memory) Touch(_ context.Context, container, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stamps[container] == nil {
		m.stamps[container] = make(map[string]time.Time)
	}
	m.stamps[container][key] = at.UTC()
	return nil
}

// Clear drops every stamp of a container.
func (m *Memory) Clear(_ context.Context, container string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.stamps[container]))
	delete(m.stamps, container)
	return n, nil
}
