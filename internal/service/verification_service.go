package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// VerificationTokenTTL is how long an emailed verification link works.
const VerificationTokenTTL = 24 * time.Hour

// VerificationService issues and redeems email verification tokens.
type VerificationService struct {
	users   repository.UserRepository
	tokens  repository.VerificationTokenRepository
	sender  email.Sender
	baseURL string
	now     func() time.Time
}

func NewVerificationService(
	users repository.UserRepository,
	tokens repository.VerificationTokenRepository,
	sender email.Sender,
	baseURL string,
) *VerificationService {
	return &VerificationService{users: users, tokens: tokens, sender: sender, baseURL: baseURL, now: time.Now}
}

func newVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue replaces any outstanding token for user and emails a fresh link.
func (s *VerificationService) Issue(ctx context.Context, user *models.User) error {
	if err := s.tokens.DeleteForUser(ctx, user.ID); err != nil {
		return models.NewInternalError(err)
	}
	value, err := newVerificationToken()
	if err != nil {
		return models.NewInternalError(err)
	}
	token := &models.EmailVerificationToken{
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: s.now().Add(VerificationTokenTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return models.NewInternalError(err)
	}
	if s.sender == nil {
		return nil
	}
	if err := s.sender.Send(ctx, email.VerificationEmail(s.baseURL, user.Email, user.Username, value)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IssueBestEffort is Issue for signup, where a mail failure must not undo
// the account.
func (s *VerificationService) IssueBestEffort(ctx context.Context, user *models.User) {
	if err := s.Issue(ctx, user); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "verification_email", err,
			slog.Uint64("user_id", uint64(user.ID)))
	}
}

// Verify redeems token, marks the owner verified, and sends the welcome
// email best-effort.
func (s *VerificationService) Verify(ctx context.Context, value string) (*models.User, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, models.NewValidationError("Verification token is required")
	}
	token, err := s.tokens.GetByToken(ctx, value)
	if isNotFound(err) {
		return nil, models.NewValidationError("Invalid or expired verification token")
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if token.Expired(now) {
		if err := s.tokens.DeleteForUser(ctx, token.UserID); err != nil {
			observability.LogBestEffortFailure(ctx, nil, "verification_token_cleanup", err)
		}
		return nil, models.NewValidationError("Invalid or expired verification token")
	}

	if err := s.users.MarkEmailVerified(ctx, token.UserID, now); err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteForUser(ctx, token.UserID); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "verification_token_cleanup", err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if s.sender != nil {
		if err := s.sender.Send(ctx, email.WelcomeEmail(s.baseURL, user.Email, user.Username)); err != nil {
			observability.LogBestEffortFailure(ctx, nil, "welcome_email", err,
				slog.Uint64("user_id", uint64(user.ID)))
		}
	}
	return user, nil
}

// Resend issues a new token for a user who has not verified yet.
func (s *VerificationService) Resend(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return models.NewValidationError("Email is already verified")
	}
	return s.Issue(ctx, user)
}
