package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newForeignKeyDB mirrors the Postgres schema where view_logs.post_id
// references posts(id), with SQLite foreign key enforcement switched on.
func newForeignKeyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	require.NoError(t, db.Migrator().DropTable(&models.ViewLog{}))
	require.NoError(t, db.Exec(`CREATE TABLE view_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
		user_id INTEGER,
		is_authenticated NUMERIC NOT NULL,
		created_at DATETIME
	)`).Error)
	return db
}

func TestViewRepository_RecordViewSplitsAudience(t *testing.T) {
	db := newTestDB(t)
	repo := NewViewRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice.ID, "viewed")

	counters, err := repo.RecordView(ctx, post.ID, &alice.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counters.TotalViews)
	assert.EqualValues(t, 1, counters.Views)
	assert.EqualValues(t, 1, counters.AuthenticatedViews)
	assert.EqualValues(t, 0, counters.PublicViews)

	counters, err = repo.RecordView(ctx, post.ID, nil, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counters.TotalViews)
	assert.EqualValues(t, 1, counters.AuthenticatedViews)
	assert.EqualValues(t, 1, counters.PublicViews)

	n, err := repo.CountViews(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestViewRepository_RecordViewMissingPostRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewViewRepository(db)

	_, err := repo.RecordView(context.Background(), 404, nil, false)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	var n int64
	require.NoError(t, db.Model(&models.ViewLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestViewRepository_RecordViewMissingPostWithForeignKeys(t *testing.T) {
	db := newForeignKeyDB(t)
	repo := NewViewRepository(db)
	ctx := context.Background()

	_, err := repo.RecordView(ctx, 999, nil, false)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	author := testutil.SeedUser(t, db, "fk-author")
	post := testutil.SeedPost(t, db, author.ID, "fk-post")
	counters, err := repo.RecordView(ctx, post.ID, nil, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counters.PublicViews)

	var n int64
	require.NoError(t, db.Model(&models.ViewLog{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestViewRepository_ConsumptionKeepsMaxDepth(t *testing.T) {
	db := newTestDB(t)
	repo := NewViewRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice.ID, "deep")

	upsert := func(depth float64) float64 {
		rec, err := repo.UpsertConsumption(ctx, &models.ConsumptionRecord{
			PostID: post.ID, ViewerKey: "session:abc", Kind: models.ConsumptionScroll, MaxDepth: depth,
		})
		require.NoError(t, err)
		return rec.MaxDepth
	}

	assert.InDelta(t, 0.4, upsert(0.4), 1e-9)
	assert.InDelta(t, 0.9, upsert(0.9), 1e-9)
	assert.InDelta(t, 0.9, upsert(0.3), 1e-9)

	// Video depth for the same viewer is tracked separately.
	rec, err := repo.UpsertConsumption(ctx, &models.ConsumptionRecord{
		PostID: post.ID, ViewerKey: "session:abc", Kind: models.ConsumptionVideo, MaxDepth: 0.2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, rec.MaxDepth, 1e-9)
}

func TestUploadLimitRepository_Window(t *testing.T) {
	db := newTestDB(t)
	repo := NewUploadLimitRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Record(ctx, 1, now.Add(-50*time.Minute)))
	require.NoError(t, repo.Record(ctx, 1, now.Add(-10*time.Minute)))
	require.NoError(t, repo.Record(ctx, 1, now.Add(-2*time.Hour)))
	require.NoError(t, repo.Record(ctx, 1, now.Add(-30*time.Hour)))
	require.NoError(t, repo.Record(ctx, 2, now))

	stats, err := repo.Window(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Count)
	assert.WithinDuration(t, now.Add(-50*time.Minute), stats.Oldest, time.Second)

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
