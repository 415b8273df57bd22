package service

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostService_SlugsArePerAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	svc := f.postService(config.PlatformModeNatural)

	first, err := svc.CreatePost(ctx, CreatePostInput{UserID: alice.ID, Title: "Hello World", Content: "one", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", first.Slug)

	second, err := svc.CreatePost(ctx, CreatePostInput{UserID: alice.ID, Title: "Hello, World!", Content: "two", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", second.Slug)

	other, err := svc.CreatePost(ctx, CreatePostInput{UserID: bob.ID, Title: "Hello World", Content: "three", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", other.Slug)

	got, err := svc.GetPostBySlug(ctx, alice.ID, "hello-world-1", 0)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestPostService_CreateDerivesReadingFields(t *testing.T) {
	f := newFixture(t)
	alice := testutil.SeedUser(t, f.db, "alice")
	svc := f.postService(config.PlatformModeNatural)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:  alice.ID,
		Title:   "  Notes  ",
		Content: "<p>Short <b>body</b></p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes", post.Title)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, 1, post.ReadingTime)
	assert.NotContains(t, post.Excerpt, "<")
}

func TestPostService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	alice := testutil.SeedUser(t, f.db, "alice")
	svc := f.postService(config.PlatformModeNatural)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"missing title", CreatePostInput{UserID: alice.ID, Title: "  ", Content: "x"}},
		{"missing content", CreatePostInput{UserID: alice.ID, Title: "t", Content: " "}},
		{"bad cover", CreatePostInput{UserID: alice.ID, Title: "t", Content: "x", CoverImageURL: "ftp://x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_BetaGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plain := testutil.SeedUser(t, f.db, "plain")
	approved := testutil.SeedUser(t, f.db, "approved", testutil.BetaApproved)
	admin := testutil.SeedUser(t, f.db, "boss", testutil.Admin)
	svc := f.postService(config.PlatformModeBeta)

	_, err := svc.CreatePost(ctx, CreatePostInput{UserID: plain.ID, Title: "t", Content: "x"})
	assertCode(t, err, models.CodeForbidden)

	for _, u := range []*models.User{approved, admin} {
		_, err := svc.CreatePost(ctx, CreatePostInput{UserID: u.ID, Title: "t", Content: "x"})
		assert.NoError(t, err, u.Username)
	}

	natural := f.postService(config.PlatformModeNatural)
	_, err = natural.CreatePost(ctx, CreatePostInput{UserID: plain.ID, Title: "t", Content: "x"})
	assert.NoError(t, err)
}

func TestPostService_DraftVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	reader := testutil.SeedUser(t, f.db, "reader")
	admin := testutil.SeedUser(t, f.db, "boss", testutil.Admin)
	draft := testutil.SeedDraft(t, f.db, author.ID, "wip")
	testutil.SeedPost(t, f.db, author.ID, "live")
	svc := f.postService(config.PlatformModeNatural)

	_, err := svc.GetPost(ctx, draft.ID, reader.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.GetPost(ctx, draft.ID, 0)
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.GetPost(ctx, draft.ID, author.ID)
	assert.NoError(t, err)
	_, err = svc.GetPost(ctx, draft.ID, admin.ID)
	assert.NoError(t, err)

	feed, err := svc.ListFeed(ctx, ListPostsInput{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "live", feed[0].Slug)

	own, err := svc.GetUserPosts(ctx, author.ID, 10, 0, author.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	public, err := svc.GetUserPosts(ctx, author.ID, 10, 0, reader.ID)
	require.NoError(t, err)
	assert.Len(t, public, 1)
}

func TestPostService_UpdateReslugsOnlyOnTitleChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	svc := f.postService(config.PlatformModeNatural)

	post, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "First Title", Content: "x"})
	require.NoError(t, err)

	same, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Title: "First Title", Content: "new body"})
	require.NoError(t, err)
	assert.Equal(t, "first-title", same.Slug)
	assert.Equal(t, "new body", f.reload(t, post.ID).Content)

	renamed, err := svc.UpdatePost(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Title: "Second Title"})
	require.NoError(t, err)
	assert.Equal(t, "second-title", renamed.Slug)
	assert.Equal(t, "second-title", f.reload(t, post.ID).Slug)

	stranger := testutil.SeedUser(t, f.db, "stranger")
	_, err = svc.UpdatePost(ctx, UpdatePostInput{UserID: stranger.ID, PostID: post.ID, Title: "Mine now"})
	assertCode(t, err, models.CodeForbidden)
}

func TestPostService_PublishKeepsOriginalTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	svc := f.postService(config.PlatformModeNatural)

	post, err := svc.CreatePost(ctx, CreatePostInput{UserID: author.ID, Title: "Draft", Content: "x"})
	require.NoError(t, err)

	published, err := svc.PublishPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	first := *published.PublishedAt

	again, err := svc.PublishPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.PublishedAt))
}

func TestPostService_DeletePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "author")
	stranger := testutil.SeedUser(t, f.db, "stranger")
	admin := testutil.SeedUser(t, f.db, "boss", testutil.Admin)
	mine := testutil.SeedPost(t, f.db, author.ID, "mine")
	theirs := testutil.SeedPost(t, f.db, author.ID, "theirs")
	svc := f.postService(config.PlatformModeNatural)

	assertCode(t, svc.DeletePost(ctx, DeletePostInput{UserID: stranger.ID, PostID: mine.ID}), models.CodeForbidden)
	require.NoError(t, svc.DeletePost(ctx, DeletePostInput{UserID: author.ID, PostID: mine.ID}))
	require.NoError(t, svc.DeletePost(ctx, DeletePostInput{UserID: admin.ID, PostID: theirs.ID}))

	_, err := svc.GetPost(ctx, mine.ID, author.ID)
	assertCode(t, err, models.CodeNotFound)
}

// racingPosts loses every slug insert to a concurrent writer.
type racingPosts struct {
	repository.PostRepository
	attempts int
}

func (r *racingPosts) SlugExists(context.Context, uint, string, uint) (bool, error) { return false, nil }

func (r *racingPosts) Create(context.Context, *models.Post) error {
	r.attempts++
	return gorm.ErrDuplicatedKey
}

func TestPostService_SlugRaceGivesUpWithConflict(t *testing.T) {
	f := newFixture(t)
	author := testutil.SeedUser(t, f.db, "author")
	posts := &racingPosts{PostRepository: f.posts}
	svc := NewPostService(posts, f.users, config.PlatformModeNatural, f.isAdmin)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{UserID: author.ID, Title: "Contended", Content: "x"})
	assertCode(t, err, models.CodeConflict)
	assert.Equal(t, maxSlugInsertAttempts, posts.attempts)
}
