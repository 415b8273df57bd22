package repository

import (
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t)
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	return testutil.SeedUser(t, db, username)
}

func seedPost(t *testing.T, db *gorm.DB, authorID uint, slug string) *models.Post {
	t.Helper()
	return testutil.SeedPost(t, db, authorID, slug)
}
