package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type UserService struct {
	userRepo    repository.UserRepository
	setupSecret string
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Bio      string
	Avatar   string
}

// NewUserService builds the service. setupSecret is ADMIN_SETUP_SECRET;
// empty disables self-promotion to admin.
func NewUserService(userRepo repository.UserRepository, setupSecret string) *UserService {
	return &UserService{userRepo: userRepo, setupSecret: setupSecret}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsAdmin is handed to services that let admins act on other users' content.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500

	if in.Username != "" {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = in.Username
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError("Username is already taken")
		}
		return nil, err
	}

	return user, nil
}

func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	user.IsAdmin = isAdmin
	return user, nil
}

// ClaimAdmin promotes userID when secret matches ADMIN_SETUP_SECRET.
func (s *UserService) ClaimAdmin(ctx context.Context, userID uint, secret string) (*models.User, error) {
	if s.setupSecret == "" {
		return nil, models.NewForbiddenError("Admin setup is disabled")
	}
	secret = strings.TrimSpace(secret)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.setupSecret)) != 1 {
		return nil, models.NewForbiddenError("Invalid setup secret")
	}
	return s.SetAdmin(ctx, userID, true)
}
