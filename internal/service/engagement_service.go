package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

const (
	// LikesPerMinute caps likes a user may give in a rolling minute.
	LikesPerMinute = 30
	// CommentsPerMinute caps comments a user may post in a rolling minute.
	CommentsPerMinute = 5

	engagementWindow       = time.Minute
	duplicateCommentWindow = 60 * time.Second
	maxCommentLen          = 5000
)

// AntiGamingGuard rejects engagement that would inflate counters: self
// likes, repeats, copy-pasted comments, and bursts.
type AntiGamingGuard struct {
	repo repository.EngagementRepository
	now  func() time.Time
}

func NewAntiGamingGuard(repo repository.EngagementRepository) *AntiGamingGuard {
	return &AntiGamingGuard{repo: repo, now: time.Now}
}

// Check returns a validation error for disallowed engagement and a rate
// limit error when the user exceeded the per-minute budget for kind.
func (g *AntiGamingGuard) Check(ctx context.Context, post *models.Post, userID uint, kind models.EngagementKind, content string) error {
	now := g.now()
	limit := LikesPerMinute

	switch kind {
	case models.EngagementLike:
		if post.UserID == userID {
			return models.NewValidationError("You cannot like your own post")
		}
		liked, err := g.repo.HasLiked(ctx, post.ID, userID)
		if err != nil {
			return err
		}
		if liked {
			return models.NewValidationError("You have already liked this post")
		}
	case models.EngagementComment:
		limit = CommentsPerMinute
		dup, err := g.repo.HasRecentDuplicateComment(ctx, userID, post.ID, content, now.Add(-duplicateCommentWindow))
		if err != nil {
			return err
		}
		if dup {
			return models.NewValidationError("Duplicate comment. Please wait before posting the same comment again")
		}
	default:
		return models.NewValidationError("Unsupported engagement type")
	}

	stats, err := g.repo.Window(ctx, kind, userID, now.Add(-engagementWindow))
	if err != nil {
		return err
	}
	if stats.Count >= int64(limit) {
		retry := stats.Oldest.Add(engagementWindow).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return models.NewRateLimitedError("Too many "+string(kind)+"s. Please slow down", retry)
	}
	return nil
}

// EngagementResult is returned after a like, unlike, or comment.
type EngagementResult struct {
	Success  bool                  `json:"success"`
	Kind     models.EngagementKind `json:"kind"`
	Liked    bool                  `json:"liked"`
	Comment  *models.Comment       `json:"comment,omitempty"`
	Counters models.PostCounters   `json:"counters"`
}

// LikeStatus is the caller's like state on a post.
type LikeStatus struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type RecordEngagementInput struct {
	PostID  uint
	UserID  uint
	Kind    models.EngagementKind
	Content string
}

// EngagementService records likes and comments and keeps post counters in
// step with them.
type EngagementService struct {
	posts       repository.PostRepository
	engagements repository.EngagementRepository
	guard       *AntiGamingGuard
	notifier    *notifications.Notifier
}

func NewEngagementService(
	posts repository.PostRepository,
	engagements repository.EngagementRepository,
	notifier *notifications.Notifier,
) *EngagementService {
	return &EngagementService{
		posts:       posts,
		engagements: engagements,
		guard:       NewAntiGamingGuard(engagements),
		notifier:    notifier,
	}
}

func (s *EngagementService) publishedPost(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// Record applies one engagement event. The counter moves by exactly one in
// the same transaction as the event row.
func (s *EngagementService) Record(ctx context.Context, in RecordEngagementInput) (*EngagementResult, error) {
	ctx, end := observability.StartSpan(ctx, "engagement", "record")
	result, err := s.record(ctx, in)
	end(err)
	observability.EngagementsTotal.WithLabelValues(string(in.Kind), engagementOutcome(err)).Inc()
	return result, err
}

func (s *EngagementService) record(ctx context.Context, in RecordEngagementInput) (*EngagementResult, error) {
	content := strings.TrimSpace(in.Content)
	if in.Kind == models.EngagementComment {
		if content == "" {
			return nil, models.NewValidationError("Content is required")
		}
		if len(content) > maxCommentLen {
			return nil, models.NewValidationError("Comment too long (max 5000 characters)")
		}
	}

	post, err := s.publishedPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, post, in.UserID, in.Kind, content); err != nil {
		return nil, err
	}

	switch in.Kind {
	case models.EngagementLike:
		counters, err := s.engagements.CreateLike(ctx, post.ID, in.UserID)
		if errors.Is(err, repository.ErrAlreadyLiked) {
			return nil, models.NewValidationError("You have already liked this post")
		}
		if err != nil {
			return nil, err
		}
		if err := s.engagements.MirrorLike(ctx, post.ID, in.UserID); err != nil {
			observability.LogBestEffortFailure(ctx, nil, "legacy_like_mirror", err,
				slog.Uint64("post_id", uint64(post.ID)))
		}
		s.notifier.Notify(ctx, post.UserID, notifications.EventPostLiked, map[string]interface{}{
			"post_id": post.ID,
			"user_id": in.UserID,
		})
		return &EngagementResult{Success: true, Kind: in.Kind, Liked: true, Counters: *counters}, nil

	default:
		comment := &models.Comment{PostID: post.ID, UserID: in.UserID, Content: content}
		counters, err := s.engagements.CreateComment(ctx, comment)
		if err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, post.UserID, notifications.EventPostCommented, map[string]interface{}{
			"post_id":    post.ID,
			"comment_id": comment.ID,
			"user_id":    in.UserID,
		})
		return &EngagementResult{Success: true, Kind: in.Kind, Comment: comment, Counters: *counters}, nil
	}
}

// Unlike removes the caller's like. Without a prior like it fails with a
// validation error and leaves the counter untouched.
func (s *EngagementService) Unlike(ctx context.Context, postID, userID uint) (*EngagementResult, error) {
	counters, err := s.engagements.DeleteLike(ctx, postID, userID)
	if errors.Is(err, repository.ErrNotLiked) {
		observability.EngagementsTotal.WithLabelValues("unlike", "rejected").Inc()
		return nil, models.NewValidationError("You have not liked this post")
	}
	if err != nil {
		return nil, err
	}
	if err := s.engagements.UnmirrorLike(ctx, postID, userID); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "legacy_like_unmirror", err,
			slog.Uint64("post_id", uint64(postID)))
	}
	observability.EngagementsTotal.WithLabelValues("unlike", "ok").Inc()
	return &EngagementResult{Success: true, Kind: models.EngagementLike, Counters: *counters}, nil
}

func (s *EngagementService) LikeStatus(ctx context.Context, postID, userID uint) (*LikeStatus, error) {
	post, err := s.publishedPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	status := &LikeStatus{Likes: post.Likes}
	if userID != 0 {
		if status.Liked, err = s.engagements.HasLiked(ctx, postID, userID); err != nil {
			return nil, err
		}
	}
	return status, nil
}

func engagementOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeRateLimited:
			return "rate_limited"
		case models.CodeValidation:
			return "rejected"
		case models.CodeNotFound:
			return "not_found"
		}
	}
	return "error"
}
