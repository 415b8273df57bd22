package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotLiked is returned by DeleteLike when the user had not liked the post.
var ErrNotLiked = errors.New("post not liked")

// ErrAlreadyLiked is returned by CreateLike when the (post, user) like exists.
var ErrAlreadyLiked = errors.New("post already liked")

// WindowStats summarises a user's events inside a rolling window.
type WindowStats struct {
	Count  int64
	Oldest time.Time
}

// EngagementRepository persists likes and comments together with the post
// counters they drive. Every counter change happens in the same
// transaction as the event row insert or delete.
type EngagementRepository interface {
	CreateLike(ctx context.Context, postID, userID uint) (*models.PostCounters, error)
	DeleteLike(ctx context.Context, postID, userID uint) (*models.PostCounters, error)
	HasLiked(ctx context.Context, postID, userID uint) (bool, error)
	MirrorLike(ctx context.Context, postID, userID uint) error
	UnmirrorLike(ctx context.Context, postID, userID uint) error

	CreateComment(ctx context.Context, comment *models.Comment) (*models.PostCounters, error)
	DeleteComment(ctx context.Context, commentID uint) (*models.PostCounters, error)
	GetComment(ctx context.Context, commentID uint) (*models.Comment, error)
	ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error)
	HasRecentDuplicateComment(ctx context.Context, userID, postID uint, content string, since time.Time) (bool, error)

	Window(ctx context.Context, kind models.EngagementKind, userID uint, since time.Time) (WindowStats, error)
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func bumpCounter(tx *gorm.DB, postID uint, column string, delta int) error {
	var expr clause.Expr
	if delta >= 0 {
		expr = gorm.Expr(column+" + ?", delta)
	} else {
		expr = gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", -delta, -delta)
	}
	return tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn(column, expr).Error
}

func readCounters(tx *gorm.DB, postID uint) (*models.PostCounters, error) {
	var post models.Post
	if err := tx.Select("id", "likes", "comments", "views", "total_views", "authenticated_views", "public_views").
		First(&post, postID).Error; err != nil {
		return nil, lookupErr(err, "Post", postID)
	}
	c := post.Counters()
	return &c, nil
}

func (r *engagementRepository) CreateLike(ctx context.Context, postID, userID uint) (*models.PostCounters, error) {
	var counters *models.PostCounters
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{PostID: postID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyLiked
		}
		if err := bumpCounter(tx, postID, "likes", 1); err != nil {
			return err
		}
		var err error
		counters, err = readCounters(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, postID)
	return counters, nil
}

func (r *engagementRepository) DeleteLike(ctx context.Context, postID, userID uint) (*models.PostCounters, error) {
	var counters *models.PostCounters
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotLiked
		}
		if err := bumpCounter(tx, postID, "likes", -1); err != nil {
			return err
		}
		var err error
		counters, err = readCounters(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, postID)
	return counters, nil
}

func (r *engagementRepository) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *engagementRepository) MirrorLike(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LegacyPostLike{PostID: postID, UserID: userID}).Error
}

func (r *engagementRepository) UnmirrorLike(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.LegacyPostLike{}).Error
}

func (r *engagementRepository) CreateComment(ctx context.Context, comment *models.Comment) (*models.PostCounters, error) {
	var counters *models.PostCounters
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := bumpCounter(tx, comment.PostID, "comments", 1); err != nil {
			return err
		}
		var err error
		counters, err = readCounters(tx, comment.PostID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return counters, nil
}

func (r *engagementRepository) DeleteComment(ctx context.Context, commentID uint) (*models.PostCounters, error) {
	var counters *models.PostCounters
	var postID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "post_id").First(&comment, commentID).Error; err != nil {
			return lookupErr(err, "Comment", commentID)
		}
		postID = comment.PostID

		res := tx.Delete(&models.Comment{}, commentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", commentID)
		}
		if err := bumpCounter(tx, postID, "comments", -1); err != nil {
			return err
		}
		var err error
		counters, err = readCounters(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, postID)
	return counters, nil
}

func (r *engagementRepository) GetComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, commentID).Error; err != nil {
		return nil, lookupErr(err, "Comment", commentID)
	}
	return &comment, nil
}

func (r *engagementRepository) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	limit, offset = clampPage(limit, offset)
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

func (r *engagementRepository) HasRecentDuplicateComment(ctx context.Context, userID, postID uint, content string, since time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("user_id = ? AND post_id = ? AND content = ? AND created_at >= ?", userID, postID, content, since).
		Count(&n).Error
	return n > 0, err
}

// Window counts kind events by userID created at or after since and
// reports the oldest one.
func (r *engagementRepository) Window(ctx context.Context, kind models.EngagementKind, userID uint, since time.Time) (WindowStats, error) {
	var model interface{}
	switch kind {
	case models.EngagementLike:
		model = &models.Like{}
	case models.EngagementComment:
		model = &models.Comment{}
	default:
		return WindowStats{}, models.NewValidationError("unknown engagement kind")
	}

	var stats WindowStats
	q := r.db.WithContext(ctx).Model(model).Where("user_id = ? AND created_at >= ?", userID, since)
	if err := q.Count(&stats.Count).Error; err != nil {
		return WindowStats{}, err
	}
	if stats.Count == 0 {
		return stats, nil
	}

	var oldest struct{ CreatedAt time.Time }
	if err := r.db.WithContext(ctx).Model(model).
		Select("created_at").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Limit(1).
		Scan(&oldest).Error; err != nil {
		return WindowStats{}, err
	}
	stats.Oldest = oldest.CreatedAt
	return stats, nil
}
