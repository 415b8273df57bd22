package service

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// FlagConsumptionTracking gates depth reports.
const FlagConsumptionTracking = featureflags.ConsumptionTracking

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ViewService records post views and how far viewers got into a post.
type ViewService struct {
	posts repository.PostRepository
	views repository.ViewRepository
	flags *featureflags.Manager
}

func NewViewService(posts repository.PostRepository, views repository.ViewRepository, flags *featureflags.Manager) *ViewService {
	return &ViewService{posts: posts, views: views, flags: flags}
}

// RecordView appends a view and bumps total_views plus exactly one of the
// authenticated or public counters. userID 0 means an anonymous reader.
func (s *ViewService) RecordView(ctx context.Context, postID, userID uint) (*models.PostCounters, error) {
	var viewer *uint
	authenticated := userID != 0
	if authenticated {
		viewer = &userID
	}
	counters, err := s.views.RecordView(ctx, postID, viewer, authenticated)
	if err != nil {
		return nil, err
	}
	audience := "public"
	if authenticated {
		audience = "authenticated"
	}
	observability.ViewsTotal.WithLabelValues(audience).Inc()
	return counters, nil
}

type RecordConsumptionInput struct {
	PostID    uint
	UserID    uint
	SessionID string
	Kind      models.ConsumptionKind
	Depth     float64
}

// ViewerKey identifies a consumption viewer: the account when signed in,
// otherwise the client session.
func ViewerKey(userID uint, sessionID string) (string, error) {
	if userID != 0 {
		return fmt.Sprintf("user:%d", userID), nil
	}
	if !sessionIDRe.MatchString(sessionID) {
		return "", models.NewValidationError("session_id is required for anonymous readers")
	}
	return "session:" + sessionID, nil
}

// ClampDepth bounds a reported depth to [0, 1].
func ClampDepth(depth float64) float64 {
	switch {
	case math.IsNaN(depth) || depth < 0:
		return 0
	case depth > 1:
		return 1
	default:
		return depth
	}
}

// RecordConsumption stores the deepest point a viewer reached. Shallower
// reports than the stored one leave it unchanged.
func (s *ViewService) RecordConsumption(ctx context.Context, in RecordConsumptionInput) (*models.ConsumptionRecord, error) {
	if s.flags != nil && !s.flags.Enabled(FlagConsumptionTracking, in.UserID) {
		return nil, models.NewForbiddenError("Consumption tracking is disabled")
	}
	if in.Kind != models.ConsumptionScroll && in.Kind != models.ConsumptionVideo {
		return nil, models.NewValidationError("kind must be scroll or video")
	}
	key, err := ViewerKey(in.UserID, in.SessionID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	rec, err := s.views.UpsertConsumption(ctx, &models.ConsumptionRecord{
		PostID:    in.PostID,
		ViewerKey: key,
		Kind:      in.Kind,
		MaxDepth:  ClampDepth(in.Depth),
	})
	if err != nil {
		return nil, err
	}
	observability.ConsumptionReports.WithLabelValues(string(in.Kind)).Inc()
	return rec, nil
}
