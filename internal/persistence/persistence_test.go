package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketshm/pkg/exception"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newRunRepository(t *testing.T) *Repository[Run] {
	t.Helper()

	repo, err := NewRepository[Run](newTestDB(t))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRunRepository(t)

	run := Run{Domain: "marketshm", Markets: "BTCUSD,ETHUSD", Mode: "thread", StartedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, &run))
	require.NotEqual(t, uuid.Nil, run.ID)

	got, err := repo.GetOneByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "marketshm", got.Domain)
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, got.MarketList())

	require.NoError(t, repo.UpdateByID(ctx, run.ID, map[string]any{"trades": int64(42), "Mode": "process"}))
	got, err = repo.GetOneByID(ctx, run.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.Trades)
	assert.Equal(t, "process", got.Mode)

	require.NoError(t, repo.RemoveByID(ctx, run.ID))
	_, err = repo.GetOneByID(ctx, run.ID)
	assert.ErrorIs(t, err, exception.ErrRecordNotFound)
	assert.ErrorIs(t, repo.RemoveByID(ctx, run.ID), exception.ErrRecordNotFound)
}

func TestRepositoryMany(t *testing.T) {
	ctx := context.Background()
	repo := newRunRepository(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Run{
		{Base: Base{CreatedAt: base}, Domain: "a", Markets: "BTCUSD", Mode: "thread", StartedAt: base},
		{Base: Base{CreatedAt: base.Add(time.Minute)}, Domain: "b", Markets: "BTCUSD", Mode: "thread", StartedAt: base},
		{Base: Base{CreatedAt: base.Add(2 * time.Minute)}, Domain: "c", Markets: "BTCUSD", Mode: "thread", StartedAt: base},
	}
	require.NoError(t, repo.CreateMany(ctx, rows))

	ids := []uuid.UUID{rows[0].ID, rows[2].ID}
	got, err := repo.GetManyByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, repo.UpdateManyByIDs(ctx, ids, map[string]any{"mode": "process"}))
	latest, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "c", latest[0].Domain)
	assert.Equal(t, "process", latest[0].Mode)
	assert.Equal(t, "b", latest[1].Domain)
	assert.Equal(t, "thread", latest[1].Mode)

	require.NoError(t, repo.RemoveManyByIDs(ctx, ids))
	latest, err = repo.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "b", latest[0].Domain)
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRepository[Run](nil)
	assert.ErrorIs(t, err, exception.ErrNilSession)

	repo := newRunRepository(t)

	_, err = repo.GetManyByIDs(ctx, nil)
	assert.ErrorIs(t, err, exception.ErrNoIDs)
	assert.ErrorIs(t, repo.UpdateManyByIDs(ctx, nil, map[string]any{"mode": "x"}), exception.ErrNoIDs)
	assert.ErrorIs(t, repo.RemoveManyByIDs(ctx, nil), exception.ErrNoIDs)

	assert.ErrorIs(t, repo.UpdateByID(ctx, uuid.New(), map[string]any{"bogus": 1}), exception.ErrUnknownColumn)
	assert.ErrorIs(t, repo.UpdateByID(ctx, uuid.New(), nil), exception.ErrInvalidArgument)
	assert.ErrorIs(t, repo.UpdateByID(ctx, uuid.New(), map[string]any{"mode": "x"}), exception.ErrRecordNotFound)

	run := Run{Domain: "d", Markets: "BTCUSD", Mode: "thread", StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &run))
	dup := Run{Base: Base{ID: run.ID}, Domain: "d", Markets: "BTCUSD", Mode: "thread", StartedAt: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, &dup), exception.ErrIntegrityConflict)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()

	j, err := NewJournal(ctx, newTestDB(t))
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return start }

	id, err := j.Begin(ctx, "marketshm", []string{"BTCUSD"}, "process")
	require.NoError(t, err)

	j.now = func() time.Time { return start.Add(time.Hour) }
	require.NoError(t, j.Finish(ctx, id, 1500, errors.New("worker exited")))

	run, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, run.StartedAt.Equal(start))
	require.NotNil(t, run.StoppedAt)
	assert.True(t, run.StoppedAt.Equal(start.Add(time.Hour)))
	assert.EqualValues(t, 1500, run.Trades)
	assert.Equal(t, "worker exited", run.Error)

	recent, err := j.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)

	assert.ErrorIs(t, j.Finish(ctx, uuid.New(), 0, nil), exception.ErrRecordNotFound)
}
