package server

import (
	"io"
	"strconv"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type presignVideoRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"gt=0"`
}

// setRateLimitHeaders mirrors the upload window into X-RateLimit-* headers.
func setRateLimitHeaders(c *fiber.Ctx, window service.RateLimitResult) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(window.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(window.Remaining))
	if !window.Allowed {
		c.Set("X-RateLimit-Reset", strconv.Itoa(window.ResetInSeconds()))
	}
}

// PresignVideoUpload handles POST /api/upload/video/presigned
func (s *Server) PresignVideoUpload(c *fiber.Ctx) error {
	var req presignVideoRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	upload, err := s.uploadService.PresignVideo(c.UserContext(), service.PresignVideoInput{
		UserID:      userID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	setRateLimitHeaders(c, upload.RateLimit)
	return c.JSON(fiber.Map{"success": true, "upload": upload})
}

// UploadImage handles POST /api/upload/image (multipart field "image").
func (s *Server) UploadImage(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.uploadService.MaxImageBytes() {
		return models.RespondWithAppError(c, models.NewValidationError("File too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, s.uploadService.MaxImageBytes()+1))
	if err != nil {
		return models.RespondWithAppError(c, models.NewValidationError("Unable to read uploaded file"))
	}

	uploaded, err := s.uploadService.UploadImage(c.UserContext(), service.UploadImageInput{
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	setRateLimitHeaders(c, uploaded.RateLimit)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "image": uploaded})
}

// GetUploadLimit handles GET /api/upload/limit
func (s *Server) GetUploadLimit(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	window := s.uploadService.Limit(c.UserContext(), userID)
	setRateLimitHeaders(c, window)
	return c.JSON(fiber.Map{
		"success":          true,
		"allowed":          window.Allowed,
		"remaining":        window.Remaining,
		"limit":            window.Limit,
		"reset_in_seconds": window.ResetInSeconds(),
	})
}
