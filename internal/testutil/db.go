// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory SQLite database. A single
// connection keeps every query on the same in-memory schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// UserOption adjusts a seeded user before insert.
type UserOption func(*models.User)

// Admin marks the seeded user as an admin.
func Admin(u *models.User) { u.IsAdmin = true }

// BetaApproved grants the seeded user beta publishing rights.
func BetaApproved(u *models.User) { u.BetaApproved = true }

// SeedUser inserts a user named username with email <username>@example.com.
func SeedUser(t testing.TB, db *gorm.DB, username string, opts ...UserOption) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedPost inserts a published post by authorID.
func SeedPost(t testing.TB, db *gorm.DB, authorID uint, slug string) *models.Post {
	t.Helper()
	now := time.Now()
	p := &models.Post{
		UserID:      authorID,
		Title:       slug,
		Slug:        slug,
		Content:     fmt.Sprintf("body of %s", slug),
		Status:      models.PostStatusPublished,
		PublishedAt: &now,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedDraft inserts an unpublished post by authorID.
func SeedDraft(t testing.TB, db *gorm.DB, authorID uint, slug string) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:  authorID,
		Title:   slug,
		Slug:    slug,
		Content: "draft body",
		Status:  models.PostStatusDraft,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
