package repository

import (
	"context"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ViewRepository records views and consumption depth.
type ViewRepository interface {
	RecordView(ctx context.Context, postID uint, userID *uint, authenticated bool) (*models.PostCounters, error)
	UpsertConsumption(ctx context.Context, rec *models.ConsumptionRecord) (*models.ConsumptionRecord, error)
	GetConsumption(ctx context.Context, postID uint, viewerKey string, kind models.ConsumptionKind) (*models.ConsumptionRecord, error)
	CountViews(ctx context.Context) (int64, error)
}

type viewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db}
}

// RecordView bumps total_views, views and exactly one of
// authenticated_views or public_views in a single UPDATE, then appends a
// ViewLog. The UPDATE runs first so a missing post is a NotFound rather
// than a foreign key failure.
func (r *viewRepository) RecordView(ctx context.Context, postID uint, userID *uint, authenticated bool) (*models.PostCounters, error) {
	audience := "public_views"
	if authenticated {
		audience = "authenticated_views"
	}

	var counters *models.PostCounters
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumns(map[string]interface{}{
			"total_views": gorm.Expr("total_views + 1"),
			"views":       gorm.Expr("views + 1"),
			audience:      gorm.Expr(audience + " + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", postID)
		}
		log := models.ViewLog{PostID: postID, UserID: userID, IsAuthenticated: authenticated}
		if err := tx.Create(&log).Error; err != nil {
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

// UpsertConsumption inserts the record or raises the stored max_depth to
// rec.MaxDepth when that is deeper. The stored value never decreases.
func (r *viewRepository) UpsertConsumption(ctx context.Context, rec *models.ConsumptionRecord) (*models.ConsumptionRecord, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "viewer_key"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"max_depth": gorm.Expr(
				"CASE WHEN excluded.max_depth > consumption_records.max_depth THEN excluded.max_depth ELSE consumption_records.max_depth END",
			),
			"updated_at": now,
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}
	return r.GetConsumption(ctx, rec.PostID, rec.ViewerKey, rec.Kind)
}

func (r *viewRepository) GetConsumption(ctx context.Context, postID uint, viewerKey string, kind models.ConsumptionKind) (*models.ConsumptionRecord, error) {
	var rec models.ConsumptionRecord
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND viewer_key = ? AND kind = ?", postID, viewerKey, kind).
		First(&rec).Error
	if err != nil {
		return nil, lookupErr(err, "Consumption", viewerKey)
	}
	return &rec, nil
}

func (r *viewRepository) CountViews(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ViewLog{}).Count(&n).Error
	return n, err
}
