package repository

import (
	"context"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// UploadLimitRepository stores one marker row per upload for the hourly limiter.
type UploadLimitRepository interface {
	Window(ctx context.Context, userID uint, since time.Time) (WindowStats, error)
	Record(ctx context.Context, userID uint, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type uploadLimitRepository struct {
	db *gorm.DB
}

func NewUploadLimitRepository(db *gorm.DB) UploadLimitRepository {
	return &uploadLimitRepository{db: db}
}

func (r *uploadLimitRepository) Window(ctx context.Context, userID uint, since time.Time) (WindowStats, error) {
	var stats WindowStats
	if err := r.db.WithContext(ctx).Model(&models.ImageUploadRateLimit{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&stats.Count).Error; err != nil {
		return WindowStats{}, err
	}
	if stats.Count == 0 {
		return stats, nil
	}

	var oldest models.ImageUploadRateLimit
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Take(&oldest).Error; err != nil {
		return WindowStats{}, err
	}
	stats.Oldest = oldest.CreatedAt
	return stats, nil
}

func (r *uploadLimitRepository) Record(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Create(&models.ImageUploadRateLimit{UserID: userID, CreatedAt: at}).Error
}

func (r *uploadLimitRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ImageUploadRateLimit{})
	return res.RowsAffected, res.Error
}
