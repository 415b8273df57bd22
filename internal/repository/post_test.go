package repository

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_SlugExistsIsPerAuthor(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	post := seedPost(t, db, alice.ID, "hello-world")

	exists, err := repo.SlugExists(ctx, alice.ID, "hello-world", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, bob.ID, "hello-world", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.SlugExists(ctx, alice.ID, "hello-world", post.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a post does not collide with itself")
}

func TestPostRepository_SlugExistsSeesDeletedPosts(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice.ID, "gone")
	require.NoError(t, repo.Delete(ctx, post.ID))

	exists, err := repo.SlugExists(ctx, alice.ID, "gone", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.GetByID(ctx, post.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestPostRepository_UniqueIndexRejectsDuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	seedPost(t, db, alice.ID, "dup")

	err := NewPostRepository(db).Create(context.Background(), &models.Post{
		UserID: alice.ID, Title: "dup", Slug: "dup", Content: "x", Status: models.PostStatusDraft,
	})
	assert.Error(t, err)
}

func TestPostRepository_UpdateLeavesCountersAlone(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	post := seedPost(t, db, alice.ID, "counted")
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("likes", 7).Error)

	post.Title = "Renamed"
	post.Likes = 0
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.EqualValues(t, 7, got.Likes)
}

func TestPostRepository_Recount(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	post := seedPost(t, db, alice.ID, "drifted")

	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: bob.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: bob.ID, Content: "hi"}).Error)
	require.NoError(t, db.Create(&models.ViewLog{PostID: post.ID, UserID: &bob.ID, IsAuthenticated: true}).Error)
	require.NoError(t, db.Create(&models.ViewLog{PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.ViewLog{PostID: post.ID}).Error)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("likes", 40).Error)

	counters, err := repo.Recount(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostCounters{
		Likes: 1, Comments: 1, Views: 3, TotalViews: 3, AuthenticatedViews: 1, PublicViews: 2,
	}, *counters)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Likes)
	assert.EqualValues(t, 3, got.TotalViews)
}

func TestPostRepository_ApplyViewerState(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	p1 := seedPost(t, db, alice.ID, "one")
	p2 := seedPost(t, db, alice.ID, "two")
	require.NoError(t, db.Create(&models.Like{PostID: p1.ID, UserID: bob.ID}).Error)
	require.NoError(t, db.Create(&models.Bookmark{PostID: p2.ID, UserID: bob.ID}).Error)

	posts, err := repo.ListPublished(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.NoError(t, repo.ApplyViewerState(ctx, bob.ID, posts))

	for _, p := range posts {
		switch p.ID {
		case p1.ID:
			assert.True(t, p.Liked)
			assert.False(t, p.Bookmarked)
		case p2.ID:
			assert.False(t, p.Liked)
			assert.True(t, p.Bookmarked)
		}
	}
}
