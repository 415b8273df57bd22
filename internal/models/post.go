// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post is an article authored by a user. Slugs are unique per author.
//
// The counter columns are cached values; they are only ever changed through
// atomic increments alongside the event row that justifies them, and can be
// rebuilt from the event tables with a recount.
type Post struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex:idx_posts_author_slug,priority:1" json:"user_id"`
	User               *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title              string         `gorm:"size:300;not null" json:"title"`
	Slug               string         `gorm:"size:320;not null;uniqueIndex:idx_posts_author_slug,priority:2" json:"slug"`
	Content            string         `gorm:"type:text;not null" json:"content"`
	Excerpt            string         `gorm:"size:400" json:"excerpt"`
	ReadingTime        int            `gorm:"not null;default:1" json:"reading_time"`
	CoverImageURL      string         `json:"cover_image_url,omitempty"`
	VideoKey           string         `json:"video_key,omitempty"`
	Status             PostStatus     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	PublishedAt        *time.Time     `gorm:"index" json:"published_at,omitempty"`
	Likes              int64          `gorm:"not null;default:0" json:"likes"`
	Comments           int64          `gorm:"not null;default:0" json:"comments"`
	Views              int64          `gorm:"not null;default:0" json:"views"`
	TotalViews         int64          `gorm:"not null;default:0" json:"total_views"`
	AuthenticatedViews int64          `gorm:"not null;default:0" json:"authenticated_views"`
	PublicViews        int64          `gorm:"not null;default:0" json:"public_views"`
	Liked              bool           `gorm:"-" json:"liked"`
	Bookmarked         bool           `gorm:"-" json:"bookmarked"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPublished reports whether readers can see and engage with the post.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PostCounters is the engagement snapshot returned after a write.
type PostCounters struct {
	Likes              int64 `json:"likes"`
	Comments           int64 `json:"comments"`
	Views              int64 `json:"views"`
	TotalViews         int64 `json:"total_views"`
	AuthenticatedViews int64 `json:"authenticated_views"`
	PublicViews        int64 `json:"public_views"`
}

// Counters extracts the counter columns of p.
func (p *Post) Counters() PostCounters {
	return PostCounters{
		Likes:              p.Likes,
		Comments:           p.Comments,
		Views:              p.Views,
		TotalViews:         p.TotalViews,
		AuthenticatedViews: p.AuthenticatedViews,
		PublicViews:        p.PublicViews,
	}
}
