package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Authors, readers, subscribers with an
// account, and admins are all users.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	Password         string         `gorm:"not null" json:"-"`
	Bio              string         `gorm:"type:text" json:"bio"`
	Avatar           string         `json:"avatar"`
	IsAdmin          bool           `gorm:"not null;default:false" json:"is_admin"`
	EmailVerified    bool           `gorm:"not null;default:false" json:"email_verified"`
	EmailVerifiedAt  *time.Time     `json:"email_verified_at,omitempty"`
	BetaApproved     bool           `gorm:"not null;default:false" json:"beta_approved"`
	WalletAddress    *string        `gorm:"uniqueIndex;size:42" json:"wallet_address,omitempty"`
	WalletVerifiedAt *time.Time     `json:"wallet_verified_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasVerifiedWallet reports whether the user linked a wallet through a signed challenge.
func (u *User) HasVerifiedWallet() bool {
	return u.WalletAddress != nil && *u.WalletAddress != "" && u.WalletVerifiedAt != nil
}
