package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
)

// publishPostPublished tells every connected reader that the feed changed.
func (s *Server) publishPostPublished(ctx context.Context, post *models.Post) {
	if s.notifier == nil {
		return
	}
	body, err := json.Marshal(notifications.Event{
		Type: notifications.EventPostPublished,
		Payload: map[string]interface{}{
			"post_id":   post.ID,
			"author_id": post.UserID,
			"slug":      post.Slug,
			"title":     post.Title,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		observability.LogBestEffortFailure(ctx, nil, "post_published_marshal", err)
		return
	}
	if err := s.notifier.PublishBroadcast(ctx, string(body)); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "post_published_broadcast", err,
			slog.Uint64("post_id", uint64(post.ID)))
	}
}
