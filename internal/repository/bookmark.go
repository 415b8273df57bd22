package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarkRepository stores a user's saved posts.
type BookmarkRepository interface {
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	// Toggle adds the bookmark when absent and removes it when present. It
	// reports the resulting state.
	Toggle(ctx context.Context, userID, postID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Bookmark, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

func (r *bookmarkRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}

func (r *bookmarkRepository) Toggle(ctx context.Context, userID, postID uint) (bool, error) {
	var bookmarked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			bookmarked = false
			return nil
		}
		bookmarked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Bookmark{UserID: userID, PostID: postID}).Error
	})
	return bookmarked, err
}

func (r *bookmarkRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Bookmark, error) {
	limit, offset = clampPage(limit, offset)
	var bookmarks []*models.Bookmark
	err := r.db.WithContext(ctx).
		Preload("Post").
		Preload("Post.User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookmarks).Error
	return bookmarks, err
}
