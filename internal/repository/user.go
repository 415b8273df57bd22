// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByWallet(ctx context.Context, address string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	MarkEmailVerified(ctx context.Context, id uint, at time.Time) error
	LinkWallet(ctx context.Context, id uint, address string, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return lookupErr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, lookupErr(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, lookupErr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) GetByWallet(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", address).First(&user).Error; err != nil {
		return nil, lookupErr(err, "User", address)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err == nil {
		cache.InvalidateUser(ctx, user.ID)
	}
	return err
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	var users []models.User
	err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"is_admin": isAdmin})
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"email_verified":    true,
		"email_verified_at": at,
	})
}

// LinkWallet stores a lowercased, checksum-agnostic address.
func (r *userRepository) LinkWallet(ctx context.Context, id uint, address string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"wallet_address":     strings.ToLower(address),
		"wallet_verified_at": at,
	})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}
