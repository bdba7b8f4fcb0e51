package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestDB_Load(t *testing.T) {
	db, mock := setupMockDB(t)
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"container", "record_key", "synced_at"}).
		AddRow("m10", "bipd:marine", stamp).
		AddRow("m10", "weap:rifle", stamp.Add(time.Minute))
	mock.ExpectQuery("SELECT \\* FROM `sync_stamps` WHERE container = \\?").
		WithArgs("m10").
		WillReturnRows(rows)

	got, err := New(db).Load(context.Background(), "m10")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, stamp.Equal(got["bipd:marine"]))
	assert.True(t, stamp.Add(time.Minute).Equal(got["weap:rifle"]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Load_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("gone away"))

	_, err := New(db).Load(context.Background(), "m10")
	assert.Error(t, err)
}

func TestDB_Touch(t *testing.T) {
	db, mock := setupMockDB(t)
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sync_stamps` .* ON DUPLICATE KEY UPDATE .*synced_at").
		WithArgs("m10", "bipd:marine", stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, New(db).Touch(context.Background(), "m10", "bipd:marine", stamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Touch_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sync_stamps`").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := New(db).Touch(context.Background(), "m10", "bipd:marine", time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_TouchBatch_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	require.NoError(t, New(db).TouchBatch(context.Background(), "m10", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Clear(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `sync_stamps` WHERE container = \\?").
		WithArgs("m10").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := New(db).Clear(context.Background(), "m10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.Touch(ctx, "m10", "bipd:marine", stamp))
	require.NoError(t, m.Touch(ctx, "a10", "bipd:marine", stamp))

	got, err := m.Load(ctx, "m10")
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"bipd:marine": stamp}, got)

	got["weap:rifle"] = stamp
	again, _ := m.Load(ctx, "m10")
	assert.Len(t, again, 1, "load returns a copy")

	n, err := m.Clear(ctx, "m10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	empty, _ := m.Load(ctx, "m10")
	assert.Empty(t, empty)
	other, _ := m.Load(ctx, "a10")
	assert.Len(t, other, 1)
}
