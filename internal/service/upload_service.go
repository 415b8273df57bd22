package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/oklog/ulid/v2"
)

const (
	// VideoPresignTTL is how long a presigned video PUT stays valid.
	VideoPresignTTL             = 15 * time.Minute
	DefaultVideoMaxUploadSizeMB = 500
)

var allowedVideoExts = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mov":  {},
	".webm": {},
	".mkv":  {},
}

type PresignVideoInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Size        int64
}

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// VideoUpload is what a client needs to PUT a video straight to storage.
type VideoUpload struct {
	Upload    *storage.PresignedUpload `json:"upload"`
	Key       string                   `json:"key"`
	PublicURL string                   `json:"public_url"`
	RateLimit RateLimitResult          `json:"rate_limit"`
}

// ImageUpload describes a stored image.
type ImageUpload struct {
	Key       string          `json:"key"`
	URL       string          `json:"url"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	SizeBytes int             `json:"size_bytes"`
	RateLimit RateLimitResult `json:"rate_limit"`
}

// UploadService issues presigned video uploads and stores processed images.
// A nil store means object storage is not configured.
type UploadService struct {
	store         storage.ObjectStore
	limiter       *UploadLimiter
	maxImageBytes int64
	maxVideoBytes int64
	now           func() time.Time
}

func NewUploadService(store storage.ObjectStore, limiter *UploadLimiter, cfg *config.Config) *UploadService {
	imageMB := DefaultImageMaxUploadSizeMB
	videoMB := DefaultVideoMaxUploadSizeMB
	if cfg != nil {
		if cfg.ImageMaxUploadSizeMB > 0 {
			imageMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.VideoMaxUploadSizeMB > 0 {
			videoMB = cfg.VideoMaxUploadSizeMB
		}
	}
	return &UploadService{
		store:         store,
		limiter:       limiter,
		maxImageBytes: int64(imageMB) * 1024 * 1024,
		maxVideoBytes: int64(videoMB) * 1024 * 1024,
		now:           time.Now,
	}
}

// MaxImageBytes is the largest accepted image body.
func (s *UploadService) MaxImageBytes() int64 { return s.maxImageBytes }

func (s *UploadService) objectKey(prefix string, userID uint, ext string) string {
	id := ulid.MustNew(ulid.Timestamp(s.now()), rand.Reader)
	return fmt.Sprintf("%s/%d/%s%s", prefix, userID, strings.ToLower(id.String()), ext)
}

// Limit reports the caller's current upload window without consuming it.
func (s *UploadService) Limit(ctx context.Context, userID uint) RateLimitResult {
	return s.limiter.Check(ctx, userID)
}

// afterRecord records one upload and returns the window as it now stands.
func (s *UploadService) afterRecord(ctx context.Context, userID uint, before RateLimitResult) (RateLimitResult, error) {
	if err := s.limiter.Record(ctx, userID); err != nil {
		return before, models.NewInternalError(err)
	}
	after := before
	if after.Remaining > 0 {
		after.Remaining--
	}
	return after, nil
}

func (s *UploadService) PresignVideo(ctx context.Context, in PresignVideoInput) (*VideoUpload, error) {
	if s.store == nil {
		return nil, models.NewUnavailableError("Video uploads are not configured")
	}
	contentType := normalizeContentType(in.ContentType)
	if !strings.HasPrefix(contentType, "video/") {
		return nil, models.NewValidationError("content_type must be a video type")
	}
	if in.Size <= 0 {
		return nil, models.NewValidationError("size is required")
	}
	if in.Size > s.maxVideoBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxVideoBytes/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if _, ok := allowedVideoExts[ext]; !ok {
		return nil, models.NewValidationError("Unsupported video file extension")
	}

	window, err := s.limiter.Enforce(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	key := s.objectKey("videos", in.UserID, ext)
	upload, err := s.store.PresignPut(ctx, key, contentType, VideoPresignTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	window, err = s.afterRecord(ctx, in.UserID, window)
	if err != nil {
		return nil, err
	}
	return &VideoUpload{
		Upload:    upload,
		Key:       key,
		PublicURL: s.store.PublicURL(key),
		RateLimit: window,
	}, nil
}

func (s *UploadService) UploadImage(ctx context.Context, in UploadImageInput) (*ImageUpload, error) {
	if s.store == nil {
		return nil, models.NewUnavailableError("Image uploads are not configured")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxImageBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxImageBytes/(1024*1024)))
	}

	window, err := s.limiter.Enforce(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	img, err := processImage(in.Content, in.ContentType)
	if err != nil {
		return nil, err
	}
	key := s.objectKey("images", in.UserID, ".webp")
	if err := s.store.Put(ctx, key, "image/webp", img.Data); err != nil {
		return nil, models.NewInternalError(err)
	}
	window, err = s.afterRecord(ctx, in.UserID, window)
	if err != nil {
		return nil, err
	}
	return &ImageUpload{
		Key:       key,
		URL:       s.store.PublicURL(key),
		Width:     img.Width,
		Height:    img.Height,
		SizeBytes: len(img.Data),
		RateLimit: window,
	}, nil
}
