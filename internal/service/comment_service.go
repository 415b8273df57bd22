package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// CommentService covers reading and removing comments. New comments go
// through EngagementService so they pass the anti-gaming guard.
type CommentService struct {
	engagements repository.EngagementRepository
	postRepo    repository.PostRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type ListCommentsInput struct {
	PostID uint
	Limit  int
	Offset int
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

func NewCommentService(
	engagements repository.EngagementRepository,
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		engagements: engagements,
		postRepo:    postRepo,
		isAdmin:     isAdmin,
	}
}

func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) ([]*models.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	return s.engagements.ListComments(ctx, in.PostID, in.Limit, in.Offset)
}

// DeleteComment removes a comment written by the caller, or any comment
// when the caller is an admin, and decrements the post's comment counter.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.PostCounters, error) {
	comment, err := s.engagements.GetComment(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if in.PostID != 0 && comment.PostID != in.PostID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}

	if comment.UserID != in.UserID {
		if s.isAdmin == nil {
			return nil, models.NewForbiddenError("You can only delete your own comments")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewForbiddenError("You can only delete your own comments")
		}
	}

	return s.engagements.DeleteComment(ctx, in.CommentID)
}
