package repository

import (
	"context"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// WalletChallengeRepository stores single-use wallet signing nonces.
type WalletChallengeRepository interface {
	Create(ctx context.Context, ch *models.WalletChallenge) error
	// Consume deletes and returns the newest unexpired challenge of userID.
	Consume(ctx context.Context, userID uint, now time.Time) (*models.WalletChallenge, error)
	DeleteExpired(ctx context.Context, now time.Time) error
}

type walletChallengeRepository struct {
	db *gorm.DB
}

func NewWalletChallengeRepository(db *gorm.DB) WalletChallengeRepository {
	return &walletChallengeRepository{db: db}
}

func (r *walletChallengeRepository) Create(ctx context.Context, ch *models.WalletChallenge) error {
	return r.db.WithContext(ctx).Create(ch).Error
}

func (r *walletChallengeRepository) Consume(ctx context.Context, userID uint, now time.Time) (*models.WalletChallenge, error) {
	var ch models.WalletChallenge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at > ?", userID, now).
			Order("created_at DESC, id DESC").
			First(&ch).Error; err != nil {
			return lookupErr(err, "Wallet challenge", userID)
		}
		res := tx.Delete(&models.WalletChallenge{}, ch.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Wallet challenge", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *walletChallengeRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.WalletChallenge{}).Error
}
