package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// AdminStats is the dashboard summary.
type AdminStats struct {
	Users                   int64 `json:"users"`
	Posts                   int64 `json:"posts"`
	Views                   int64 `json:"views"`
	ActiveSubscribers       int64 `json:"active_subscribers"`
	PendingBetaApplications int64 `json:"pending_beta_applications"`
}

// AdminService provides admin reporting and maintenance.
type AdminService struct {
	users repository.UserRepository
	posts repository.PostRepository
	views repository.ViewRepository
	subs  repository.SubscriberRepository
	beta  repository.BetaRepository
}

func NewAdminService(
	users repository.UserRepository,
	posts repository.PostRepository,
	views repository.ViewRepository,
	subs repository.SubscriberRepository,
	beta repository.BetaRepository,
) *AdminService {
	return &AdminService{users: users, posts: posts, views: views, subs: subs, beta: beta}
}

func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	counts := []struct {
		dst   *int64
		count func(context.Context) (int64, error)
	}{
		{&stats.Users, s.users.Count},
		{&stats.Posts, s.posts.Count},
		{&stats.Views, s.views.CountViews},
		{&stats.ActiveSubscribers, s.subs.CountActive},
		{&stats.PendingBetaApplications, s.beta.CountPending},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		*c.dst = n
	}
	return &stats, nil
}

// RecountPost rebuilds a post's cached counters from its event rows.
func (s *AdminService) RecountPost(ctx context.Context, postID uint) (*models.PostCounters, error) {
	return s.posts.Recount(ctx, postID)
}
