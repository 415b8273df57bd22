// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types delivered to users.
const (
	EventPostLiked               = "post_liked"
	EventPostCommented           = "post_commented"
	EventMessageReceived         = "message_received"
	EventMessageResponded        = "message_responded"
	EventBetaApplicationReviewed = "beta_application_reviewed"
	EventPostPublished           = "post_published"

	// EventConnected is sent once to a socket right after it registers.
	EventConnected = "connected"
)

const (
	userChannelPattern = "notifications:user:*"
	broadcastChannel   = "notifications:broadcast"
)

// Event is the JSON envelope pushed to websocket clients.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserChannel returns the Redis channel for userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a raw payload to a user's channel. A nil Notifier or
// Redis client makes this a no-op.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Notify wraps payload in an Event and publishes it to userID. Failures
// are logged and counted; notifications never fail the caller.
func (n *Notifier) Notify(ctx context.Context, userID uint, eventType string, payload interface{}) {
	if n == nil || n.rdb == nil || userID == 0 {
		return
	}
	body, err := json.Marshal(Event{Type: eventType, Payload: payload, CreatedAt: time.Now().UTC()})
	if err != nil {
		observability.LogBestEffortFailure(ctx, nil, "notify_marshal", err, slog.String("event", eventType))
		return
	}
	if err := n.PublishUser(ctx, userID, string(body)); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "notify_publish", err,
			slog.String("event", eventType),
			slog.Uint64("user_id", uint64(userID)),
		)
	}
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel, calling onMessage for each message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern, broadcastChannel)
	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
