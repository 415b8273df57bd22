package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// BookmarkService manages a reader's saved posts.
type BookmarkService struct {
	bookmarks repository.BookmarkRepository
	posts     repository.PostRepository
}

func NewBookmarkService(bookmarks repository.BookmarkRepository, posts repository.PostRepository) *BookmarkService {
	return &BookmarkService{bookmarks: bookmarks, posts: posts}
}

// Toggle flips the bookmark and reports whether the post is now saved.
func (s *BookmarkService) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if !post.IsPublished() && post.UserID != userID {
		return false, models.NewNotFoundError("Post", postID)
	}
	return s.bookmarks.Toggle(ctx, userID, postID)
}

func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, postID uint) (bool, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}
	return s.bookmarks.Exists(ctx, userID, postID)
}

func (s *BookmarkService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Bookmark, error) {
	return s.bookmarks.ListByUser(ctx, userID, limit, offset)
}
