package service

import (
	"context"
	"net/url"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
)

const (
	minBetaReasonLen = 20
	maxBetaReasonLen = 2000
)

type ApplyBetaInput struct {
	UserID       uint
	Reason       string
	PortfolioURL string
}

type ReviewBetaInput struct {
	ApplicationID uint
	ReviewerID    uint
	Approve       bool
	Notes         string
}

// BetaService handles applications to publish while the platform is in beta.
type BetaService struct {
	apps     repository.BetaRepository
	users    repository.UserRepository
	notifier *notifications.Notifier
}

func NewBetaService(apps repository.BetaRepository, users repository.UserRepository, notifier *notifications.Notifier) *BetaService {
	return &BetaService{apps: apps, users: users, notifier: notifier}
}

func (s *BetaService) Apply(ctx context.Context, in ApplyBetaInput) (*models.BetaApplication, error) {
	reason := strings.TrimSpace(in.Reason)
	if len(reason) < minBetaReasonLen {
		return nil, models.NewValidationError("Please tell us a bit more about what you plan to publish (min 20 characters)")
	}
	if len(reason) > maxBetaReasonLen {
		return nil, models.NewValidationError("Reason too long (max 2000 characters)")
	}
	portfolio := strings.TrimSpace(in.PortfolioURL)
	if portfolio != "" {
		if u, err := url.ParseRequestURI(portfolio); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, models.NewValidationError("portfolio_url must be a valid URL")
		}
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.BetaApproved || user.IsAdmin {
		return nil, models.NewValidationError("You already have publishing access")
	}
	pending, err := s.apps.HasPending(ctx, in.UserID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if pending {
		return nil, models.NewConflictError("You already have a pending application")
	}

	app := &models.BetaApplication{
		UserID:       in.UserID,
		Reason:       reason,
		PortfolioURL: portfolio,
		Status:       models.BetaApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError("You already have a pending application")
		}
		return nil, models.NewInternalError(err)
	}
	return app, nil
}

func (s *BetaService) List(ctx context.Context, status string, limit, offset int) ([]*models.BetaApplication, error) {
	st := models.BetaApplicationStatus(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case "", models.BetaApplicationPending, models.BetaApplicationApproved, models.BetaApplicationRejected:
	default:
		return nil, models.NewValidationError("status must be pending, approved or rejected")
	}
	return s.apps.List(ctx, st, limit, offset)
}

// Review approves or rejects a pending application. Approval grants the
// applicant publishing rights.
func (s *BetaService) Review(ctx context.Context, in ReviewBetaInput) (*models.BetaApplication, error) {
	status := models.BetaApplicationRejected
	if in.Approve {
		status = models.BetaApplicationApproved
	}
	app, err := s.apps.Review(ctx, in.ApplicationID, status, in.ReviewerID, strings.TrimSpace(in.Notes))
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, app.UserID, notifications.EventBetaApplicationReviewed, map[string]interface{}{
		"application_id": app.ID,
		"status":         app.Status,
	})
	return app, nil
}
