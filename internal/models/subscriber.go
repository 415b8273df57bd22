package models

import "time"

// EmailSubscriber is a newsletter subscription. Email is stored lowercased.
type EmailSubscriber struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EmailVerificationToken is a single-use token proving mailbox ownership.
type EmailVerificationToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token can no longer be redeemed at now.
func (t *EmailVerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
