package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByAuthorSlug(ctx context.Context, userID uint, slug string) (*models.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, includeDrafts bool, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, userID uint, slug string, excludePostID uint) (bool, error)
	Recount(ctx context.Context, id uint) (*models.PostCounters, error)
	ApplyViewerState(ctx context.Context, viewerID uint, posts []*models.Post) error
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil && post.IsPublished() {
		cache.InvalidateFeed(ctx)
	}
	return err
}

// GetByID is served from cache; counters may lag by up to cache.PostTTL.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
			return lookupErr(err, "Post", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByAuthorSlug(ctx context.Context, userID uint, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND slug = ?", userID, slug).
		First(&post).Error
	if err != nil {
		return nil, lookupErr(err, "Post", slug)
	}
	return &post, nil
}

func (r *postRepository) ListPublished(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []*models.Post
	err := cache.Aside(ctx, cache.FeedPageKey(ctx, limit, offset), &posts, cache.FeedTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("User").
			Where("status = ?", models.PostStatusPublished).
			Order("published_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
	})
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, includeDrafts bool, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID)
	if !includeDrafts {
		q = q.Where("status = ?", models.PostStatusPublished)
	}
	var posts []*models.Post
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

// Update persists editable fields only. Counter columns are owned by the
// engagement and view paths and are never written from a loaded struct.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("title", "slug", "content", "excerpt", "reading_time", "cover_image_url", "video_key", "status", "published_at").
		Updates(post).Error
	if err == nil {
		cache.InvalidatePost(ctx, post.ID)
		cache.InvalidateFeed(ctx)
	}
	return err
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateFeed(ctx)
	return nil
}

// SlugExists includes soft-deleted posts because the unique index does.
func (r *postRepository) SlugExists(ctx context.Context, userID uint, slug string, excludePostID uint) (bool, error) {
	q := r.db.WithContext(ctx).Unscoped().Model(&models.Post{}).
		Where("user_id = ? AND slug = ?", userID, slug)
	if excludePostID != 0 {
		q = q.Where("id <> ?", excludePostID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Recount rebuilds the cached counters of a post from the event tables.
func (r *postRepository) Recount(ctx context.Context, id uint) (*models.PostCounters, error) {
	var counters models.PostCounters
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			return lookupErr(err, "Post", id)
		}

		if err := tx.Model(&models.Like{}).Where("post_id = ?", id).Count(&counters.Likes).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Count(&counters.Comments).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ViewLog{}).Where("post_id = ?", id).Count(&counters.TotalViews).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ViewLog{}).Where("post_id = ? AND is_authenticated = ?", id, true).
			Count(&counters.AuthenticatedViews).Error; err != nil {
			return err
		}
		counters.PublicViews = counters.TotalViews - counters.AuthenticatedViews
		counters.Views = counters.TotalViews

		return tx.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"likes":               counters.Likes,
			"comments":            counters.Comments,
			"views":               counters.Views,
			"total_views":         counters.TotalViews,
			"authenticated_views": counters.AuthenticatedViews,
			"public_views":        counters.PublicViews,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, id)
	return &counters, nil
}

// ApplyViewerState fills Liked and Bookmarked for viewerID. It is a no-op
// for anonymous viewers.
func (r *postRepository) ApplyViewerState(ctx context.Context, viewerID uint, posts []*models.Post) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var liked, bookmarked []uint
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", viewerID, ids).
		Pluck("post_id", &liked).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND post_id IN ?", viewerID, ids).
		Pluck("post_id", &bookmarked).Error; err != nil {
		return err
	}

	likedSet := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}
	bookmarkedSet := make(map[uint]struct{}, len(bookmarked))
	for _, id := range bookmarked {
		bookmarkedSet[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = likedSet[p.ID]
		_, p.Bookmarked = bookmarkedSet[p.ID]
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}
