package models

import "time"

// MembershipStatus is the state of a reader's membership in a creator tier.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipCancelled MembershipStatus = "cancelled"
)

// MembershipTier is a paid support level offered by a creator.
type MembershipTier struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatorID   uint      `gorm:"not null;index" json:"creator_id"`
	Creator     *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership maps a reader to a tier.
type Membership struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_memberships_user_tier,priority:1" json:"user_id"`
	TierID    uint             `gorm:"not null;uniqueIndex:idx_memberships_user_tier,priority:2;index" json:"tier_id"`
	Tier      *MembershipTier  `gorm:"foreignKey:TierID" json:"tier,omitempty"`
	Status    MembershipStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TierPayout summarises what a tier currently earns.
type TierPayout struct {
	TierID        uint   `json:"tier_id"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price_cents"`
	ActiveMembers int64  `json:"active_members"`
	MonthlyCents  int64  `json:"monthly_cents"`
}

// PayoutSummary is the creator-facing payout report.
type PayoutSummary struct {
	CreatorID     uint         `json:"creator_id"`
	WalletAddress string       `json:"wallet_address"`
	Tiers         []TierPayout `json:"tiers"`
	TotalCents    int64        `json:"total_cents"`
}

// WalletChallenge is a nonce a user must sign to prove wallet ownership.
type WalletChallenge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Nonce     string    `gorm:"size:64;not null;uniqueIndex" json:"nonce"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is the text presented to the wallet for signing.
func (w *WalletChallenge) Message() string {
	return "Sign this message to link your wallet to Inkwell.\n\nNonce: " + w.Nonce
}
