package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix     = "post:%d"
	FeedPageKeyPrefix = "feed:v%d:%d:%d"
	feedVersionKey    = "feed:version"
	UserKeyPrefix     = "user:%d"
)

const (
	PostTTL = 30 * time.Second
	FeedTTL = 30 * time.Second
	UserTTL = 5 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// FeedPageKey addresses one page of the public feed. Bumping the feed
// version orphans every cached page at once.
func FeedPageKey(ctx context.Context, limit, offset int) string {
	return fmt.Sprintf(FeedPageKeyPrefix, feedVersion(ctx), limit, offset)
}

func feedVersion(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, feedVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateFeed drops all cached feed pages.
func InvalidateFeed(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, feedVersionKey)
	}
}
