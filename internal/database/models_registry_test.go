package database

import (
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesEngagementTables(t *testing.T) {
	var hasLike, hasMirror, hasViewLog bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Like:
			hasLike = true
		case *models.LegacyPostLike:
			hasMirror = true
		case *models.ViewLog:
			hasViewLog = true
		}
	}
	assert.True(t, hasLike)
	assert.True(t, hasMirror)
	assert.True(t, hasViewLog)
}

func TestPersistentModels_AutoMigrateOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	require.NoError(t, autoMigrateModels(db))

	assert.True(t, db.Migrator().HasIndex(&models.Post{}, "idx_posts_author_slug"))
	assert.True(t, db.Migrator().HasIndex(&models.Like{}, "idx_likes_post_user"))
	assert.True(t, db.Migrator().HasTable("post_likes"))
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Bookmark{}))

	require.NoError(t, db.Create(&models.Bookmark{UserID: 1, PostID: 1}).Error)
	err = db.Create(&models.Bookmark{UserID: 1, PostID: 1}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
}
