package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/content"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const (
	maxTitleLen   = 300
	maxContentLen = 100000
	// maxSlugInsertAttempts bounds re-probing after a concurrent insert
	// claimed the same (author, slug).
	maxSlugInsertAttempts = 5
	ExcerptLength         = 160
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	mode     config.PlatformMode
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
	now      func() time.Time
}

type CreatePostInput struct {
	UserID        uint
	Title         string
	Content       string
	CoverImageURL string
	VideoKey      string
	Publish       bool
}

type UpdatePostInput struct {
	UserID        uint
	PostID        uint
	Title         string
	Content       string
	CoverImageURL string
	VideoKey      string
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	mode config.PlatformMode,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		mode:     mode,
		isAdmin:  isAdmin,
		now:      time.Now,
	}
}

// canAuthor enforces the beta gate: while the platform is in BETA only
// admins and approved applicants may write.
func (s *PostService) canAuthor(ctx context.Context, userID uint) error {
	if s.mode != config.PlatformModeBeta {
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin || user.BetaApproved {
		return nil
	}
	return models.NewForbiddenError("Publishing is limited to approved beta creators. Apply at /api/beta/apply")
}

func validatePostFields(title, body, coverURL string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if strings.TrimSpace(body) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(body) > maxContentLen {
		return models.NewValidationError("Content too long (max 100000 characters)")
	}
	if coverURL != "" {
		if u, err := url.ParseRequestURI(coverURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return models.NewValidationError("cover_image_url must be a valid URL")
		}
	}
	return nil
}

func (s *PostService) slugProbe(userID, excludeID uint) content.SlugExists {
	return func(ctx context.Context, slug string) (bool, error) {
		return s.postRepo.SlugExists(ctx, userID, slug, excludeID)
	}
}

// withFreshSlug derives a free slug for post and runs write. When write
// loses a race for the slug it probes again, up to maxSlugInsertAttempts.
func (s *PostService) withFreshSlug(ctx context.Context, post *models.Post, excludeID uint, write func() error) error {
	var err error
	for attempt := 0; attempt < maxSlugInsertAttempts; attempt++ {
		post.Slug, err = content.UniqueSlug(ctx, post.Title, s.slugProbe(post.UserID, excludeID))
		if err != nil {
			return models.NewInternalError(err)
		}
		err = write()
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return models.NewConflictError("Could not allocate a unique slug, please retry")
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if err := validatePostFields(title, in.Content, in.CoverImageURL); err != nil {
		return nil, err
	}
	if err := s.canAuthor(ctx, in.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:        in.UserID,
		Title:         title,
		Content:       in.Content,
		Excerpt:       content.Excerpt(in.Content, ExcerptLength),
		ReadingTime:   content.ReadingTime(in.Content),
		CoverImageURL: in.CoverImageURL,
		VideoKey:      in.VideoKey,
		Status:        models.PostStatusDraft,
	}
	if in.Publish {
		now := s.now()
		post.Status = models.PostStatusPublished
		post.PublishedAt = &now
	}

	err := s.withFreshSlug(ctx, post, 0, func() error {
		post.ID = 0
		return s.postRepo.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns a post. Drafts are only visible to their author and admins.
func (s *PostService) GetPost(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, post, currentUserID)
}

func (s *PostService) GetPostBySlug(ctx context.Context, authorID uint, slug string, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByAuthorSlug(ctx, authorID, slug)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, post, currentUserID)
}

func (s *PostService) visible(ctx context.Context, post *models.Post, currentUserID uint) (*models.Post, error) {
	if !post.IsPublished() && post.UserID != currentUserID {
		admin, err := s.checkAdmin(ctx, currentUserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewNotFoundError("Post", post.ID)
		}
	}
	if currentUserID != 0 {
		if err := s.postRepo.ApplyViewerState(ctx, currentUserID, []*models.Post{post}); err != nil {
			return nil, err
		}
	}
	return post, nil
}

func (s *PostService) checkAdmin(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 || s.isAdmin == nil {
		return false, nil
	}
	return s.isAdmin(ctx, userID)
}

// ListFeed returns published posts newest first.
func (s *PostService) ListFeed(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	posts, err := s.postRepo.ListPublished(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	if in.CurrentUserID != 0 && len(posts) > 0 {
		if err := s.postRepo.ApplyViewerState(ctx, in.CurrentUserID, posts); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, userID == currentUserID, limit, offset)
}

func (s *PostService) authoredBy(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.authoredBy(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	retitled := title != "" && title != post.Title
	if title != "" {
		post.Title = title
	}
	if in.Content != "" {
		post.Content = in.Content
		post.Excerpt = content.Excerpt(in.Content, ExcerptLength)
		post.ReadingTime = content.ReadingTime(in.Content)
	}
	if in.CoverImageURL != "" {
		post.CoverImageURL = in.CoverImageURL
	}
	if in.VideoKey != "" {
		post.VideoKey = in.VideoKey
	}
	if err := validatePostFields(post.Title, post.Content, post.CoverImageURL); err != nil {
		return nil, err
	}

	if !retitled {
		if err := s.postRepo.Update(ctx, post); err != nil {
			return nil, err
		}
		return post, nil
	}
	if err := s.withFreshSlug(ctx, post, post.ID, func() error {
		return s.postRepo.Update(ctx, post)
	}); err != nil {
		return nil, err
	}
	return post, nil
}

// PublishPost makes a draft visible in the feed. Publishing twice keeps
// the original publication time.
func (s *PostService) PublishPost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.authoredBy(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.canAuthor(ctx, userID); err != nil {
		return nil, err
	}
	if post.IsPublished() {
		return post, nil
	}
	now := s.now()
	post.Status = models.PostStatusPublished
	post.PublishedAt = &now
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		admin, err := s.checkAdmin(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("You can only delete your own posts")
		}
	}

	return s.postRepo.Delete(ctx, in.PostID)
}
