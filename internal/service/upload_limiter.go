package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

const (
	// DefaultMaxUploadsPerHour applies when MAX_IMAGE_UPLOADS_PER_HOUR is unset.
	DefaultMaxUploadsPerHour = 5
	// UploadWindow is the sliding window uploads are counted over.
	UploadWindow = time.Hour
	// uploadMarkerRetention bounds how long upload markers are kept.
	uploadMarkerRetention = 24 * time.Hour
)

// RateLimitResult is the outcome of an upload rate-limit check.
type RateLimitResult struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	Limit     int           `json:"limit"`
	ResetIn   time.Duration `json:"-"`
}

// ResetInSeconds rounds ResetIn up to whole seconds.
func (r RateLimitResult) ResetInSeconds() int {
	return int((r.ResetIn + time.Second - 1) / time.Second)
}

// UploadLimiter bounds uploads per user over a trailing hour using
// timestamped markers in the database.
type UploadLimiter struct {
	repo repository.UploadLimitRepository
	max  int
	now  func() time.Time
}

// NewUploadLimiter builds a limiter allowing maxPerHour uploads per user.
// Non-positive values fall back to DefaultMaxUploadsPerHour.
func NewUploadLimiter(repo repository.UploadLimitRepository, maxPerHour int) *UploadLimiter {
	if maxPerHour <= 0 {
		maxPerHour = DefaultMaxUploadsPerHour
	}
	return &UploadLimiter{repo: repo, max: maxPerHour, now: time.Now}
}

// Max returns the per-hour allowance.
func (l *UploadLimiter) Max() int { return l.max }

// Check reports whether userID may upload now. Store failures deny the
// upload.
func (l *UploadLimiter) Check(ctx context.Context, userID uint) RateLimitResult {
	now := l.now()
	stats, err := l.repo.Window(ctx, userID, now.Add(-UploadWindow))
	if err != nil {
		observability.UploadRateLimitDecisions.WithLabelValues("error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "upload rate limit check failed, denying",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return RateLimitResult{Allowed: false, Remaining: 0, Limit: l.max}
	}

	result := RateLimitResult{
		Allowed: stats.Count < int64(l.max),
		Limit:   l.max,
	}
	if remaining := int64(l.max) - stats.Count; remaining > 0 {
		result.Remaining = int(remaining)
	}
	if !result.Allowed {
		result.ResetIn = stats.Oldest.Add(UploadWindow).Sub(now)
		if result.ResetIn < 0 {
			result.ResetIn = 0
		}
		observability.UploadRateLimitDecisions.WithLabelValues("denied").Inc()
		return result
	}
	observability.UploadRateLimitDecisions.WithLabelValues("allowed").Inc()
	return result
}

// Enforce is Check expressed as an error for handlers.
func (l *UploadLimiter) Enforce(ctx context.Context, userID uint) (RateLimitResult, error) {
	result := l.Check(ctx, userID)
	if result.Allowed {
		return result, nil
	}
	return result, models.NewRateLimitedError(
		"Upload limit reached. Please try again later.", result.ResetIn)
}

// Record stores a marker for one upload and prunes markers older than a
// day. Pruning failures are logged only.
func (l *UploadLimiter) Record(ctx context.Context, userID uint) error {
	now := l.now()
	if err := l.repo.Record(ctx, userID, now); err != nil {
		return err
	}
	if _, err := l.repo.DeleteOlderThan(ctx, now.Add(-uploadMarkerRetention)); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "upload_marker_cleanup", err)
	}
	return nil
}
