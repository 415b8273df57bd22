package models

import (
	"time"

	"gorm.io/gorm"
)

// EngagementKind identifies a counted user action on a post.
type EngagementKind string

const (
	EngagementLike    EngagementKind = "like"
	EngagementComment EngagementKind = "comment"
)

// Like records that a user liked a post. At most one per (post, user).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:2;index:idx_likes_user_created,priority:1" json:"user_id"`
	CreatedAt time.Time `gorm:"index:idx_likes_user_created,priority:2" json:"created_at"`
}

// LegacyPostLike mirrors Like into the table older clients still read.
// Writes to it are best-effort.
type LegacyPostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_legacy_likes_post_user,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_legacy_likes_post_user,priority:2" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (LegacyPostLike) TableName() string { return "post_likes" }

// Comment is a reader reply on a post.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	UserID    uint           `gorm:"not null;index:idx_comments_user_created,priority:1" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_comments_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Bookmark saves a post to a user's reading list.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post,priority:1" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post,priority:2" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
