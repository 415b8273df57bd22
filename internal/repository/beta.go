package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// BetaRepository stores beta publishing applications.
type BetaRepository interface {
	Create(ctx context.Context, app *models.BetaApplication) error
	HasPending(ctx context.Context, userID uint) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.BetaApplication, error)
	List(ctx context.Context, status models.BetaApplicationStatus, limit, offset int) ([]*models.BetaApplication, error)
	// Review settles a pending application. Approval also grants the
	// applicant beta publishing rights in the same transaction.
	Review(ctx context.Context, id uint, status models.BetaApplicationStatus, reviewerID uint, notes string) (*models.BetaApplication, error)
	CountPending(ctx context.Context) (int64, error)
}

type betaRepository struct {
	db *gorm.DB
}

func NewBetaRepository(db *gorm.DB) BetaRepository {
	return &betaRepository{db: db}
}

func (r *betaRepository) Create(ctx context.Context, app *models.BetaApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *betaRepository) HasPending(ctx context.Context, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BetaApplication{}).
		Where("user_id = ? AND status = ?", userID, models.BetaApplicationPending).
		Count(&n).Error
	return n > 0, err
}

func (r *betaRepository) GetByID(ctx context.Context, id uint) (*models.BetaApplication, error) {
	var app models.BetaApplication
	if err := r.db.WithContext(ctx).Preload("User").First(&app, id).Error; err != nil {
		return nil, lookupErr(err, "Beta application", id)
	}
	return &app, nil
}

func (r *betaRepository) List(ctx context.Context, status models.BetaApplicationStatus, limit, offset int) ([]*models.BetaApplication, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Preload("User")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []*models.BetaApplication
	err := q.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&apps).Error
	return apps, err
}

func (r *betaRepository) Review(ctx context.Context, id uint, status models.BetaApplicationStatus, reviewerID uint, notes string) (*models.BetaApplication, error) {
	var app models.BetaApplication
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, id).Error; err != nil {
			return lookupErr(err, "Beta application", id)
		}
		res := tx.Model(&models.BetaApplication{}).
			Where("id = ? AND status = ?", id, models.BetaApplicationPending).
			Updates(map[string]interface{}{
				"status":              status,
				"reviewed_by_user_id": reviewerID,
				"review_notes":        notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewValidationError("Application has already been reviewed")
		}
		if status == models.BetaApplicationApproved {
			if err := tx.Model(&models.User{}).Where("id = ?", app.UserID).
				Update("beta_approved", true).Error; err != nil {
				return err
			}
		}
		app.Status = status
		app.ReviewedByUserID = &reviewerID
		app.ReviewNotes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, app.UserID)
	return &app, nil
}

func (r *betaRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BetaApplication{}).
		Where("status = ?", models.BetaApplicationPending).
		Count(&n).Error
	return n, err
}
