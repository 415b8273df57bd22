package models

import "time"

// BetaApplicationStatus defines lifecycle states for beta applications.
type BetaApplicationStatus string

const (
	// BetaApplicationPending indicates the application is awaiting review.
	BetaApplicationPending BetaApplicationStatus = "pending"
	// BetaApplicationApproved indicates the applicant may publish during beta.
	BetaApplicationApproved BetaApplicationStatus = "approved"
	// BetaApplicationRejected indicates the application was denied.
	BetaApplicationRejected BetaApplicationStatus = "rejected"
)

// BetaApplication is a user's request to publish while the platform is in beta.
type BetaApplication struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	UserID           uint                  `gorm:"not null;index" json:"user_id"`
	User             *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reason           string                `gorm:"type:text;not null" json:"reason"`
	PortfolioURL     string                `gorm:"size:500" json:"portfolio_url"`
	Status           BetaApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedByUserID *uint                 `json:"reviewed_by_user_id"`
	ReviewedByUser   *User                 `gorm:"foreignKey:ReviewedByUserID" json:"reviewed_by_user,omitempty"`
	ReviewNotes      string                `gorm:"type:text" json:"review_notes"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}
