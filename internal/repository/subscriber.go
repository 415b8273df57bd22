package repository

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// SubscriberRepository manages newsletter subscriptions.
type SubscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.EmailSubscriber, error)
	Create(ctx context.Context, sub *models.EmailSubscriber) error
	SetActive(ctx context.Context, id uint, active bool, at time.Time) error
	CountActive(ctx context.Context) (int64, error)
}

type subscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*models.EmailSubscriber, error) {
	var sub models.EmailSubscriber
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		return nil, lookupErr(err, "Subscriber", email)
	}
	return &sub, nil
}

func (r *subscriberRepository) Create(ctx context.Context, sub *models.EmailSubscriber) error {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	return r.db.WithContext(ctx).Create(sub).Error
}

// SetActive reactivates (resetting subscribed_at) or deactivates (stamping
// unsubscribed_at) a subscription.
func (r *subscriberRepository) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	cols := map[string]interface{}{"is_active": active}
	if active {
		cols["subscribed_at"] = at
		cols["unsubscribed_at"] = nil
	} else {
		cols["unsubscribed_at"] = at
	}
	return r.db.WithContext(ctx).Model(&models.EmailSubscriber{}).Where("id = ?", id).Updates(cols).Error
}

func (r *subscriberRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.EmailSubscriber{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

// VerificationTokenRepository stores email verification tokens.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *models.EmailVerificationToken) error
	GetByToken(ctx context.Context, token string) (*models.EmailVerificationToken, error)
	DeleteForUser(ctx context.Context, userID uint) error
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *models.EmailVerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, token string) (*models.EmailVerificationToken, error) {
	var t models.EmailVerificationToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, lookupErr(err, "Token", "provided")
	}
	return &t, nil
}

func (r *verificationTokenRepository) DeleteForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.EmailVerificationToken{}).Error
}
