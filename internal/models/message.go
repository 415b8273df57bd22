package models

import (
	"fmt"
	"time"
)

// MessageStatus is the lifecycle of a direct message request.
type MessageStatus string

const (
	MessageStatusPending  MessageStatus = "PENDING"
	MessageStatusAccepted MessageStatus = "ACCEPTED"
	MessageStatusDeclined MessageStatus = "DECLINED"
)

// Message is a direct message. A first contact stays PENDING until the
// recipient accepts or declines it.
type Message struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	SenderID    uint          `gorm:"not null;index" json:"sender_id"`
	Sender      *User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uint          `gorm:"not null;index" json:"recipient_id"`
	Recipient   *User         `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Content     string        `gorm:"type:text;not null" json:"content"`
	Status      MessageStatus `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	ThreadID    string        `gorm:"size:64;index" json:"thread_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ThreadIDFor returns the conversation id shared by two users regardless of
// who initiated contact.
func ThreadIDFor(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("thread_%d_%d", a, b)
}
