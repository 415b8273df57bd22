package models

import "time"

// ViewLog is an append-only record of a single post view.
type ViewLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          *uint     `gorm:"index" json:"user_id,omitempty"`
	IsAuthenticated bool      `gorm:"not null" json:"is_authenticated"`
	CreatedAt       time.Time `json:"created_at"`
}

// ConsumptionKind distinguishes article scroll depth from video watch depth.
type ConsumptionKind string

const (
	ConsumptionScroll ConsumptionKind = "scroll"
	ConsumptionVideo  ConsumptionKind = "video"
)

// ConsumptionRecord keeps the deepest point a viewer reached in a post.
// MaxDepth is a fraction in [0, 1] and never decreases.
type ConsumptionRecord struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	PostID    uint            `gorm:"not null;uniqueIndex:idx_consumption_viewer,priority:1" json:"post_id"`
	ViewerKey string          `gorm:"size:80;not null;uniqueIndex:idx_consumption_viewer,priority:2" json:"viewer_key"`
	Kind      ConsumptionKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_consumption_viewer,priority:3" json:"kind"`
	MaxDepth  float64         `gorm:"not null;default:0" json:"max_depth"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ImageUploadRateLimit marks one upload by a user. Rows older than a day
// are pruned opportunistically.
type ImageUploadRateLimit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_upload_rl_user_created,priority:1" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;index:idx_upload_rl_user_created,priority:2;index" json:"created_at"`
}
