package repository

import (
	"context"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// MessageRepository persists direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Message, error)
	// Respond moves a PENDING message to status. It reports false when the
	// message was no longer pending.
	Respond(ctx context.Context, id uint, status models.MessageStatus, threadID string, at time.Time) (bool, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").First(&msg, id).Error
	if err != nil {
		return nil, lookupErr(err, "Message", id)
	}
	return &msg, nil
}

func (r *messageRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Message, error) {
	limit, offset = clampPage(limit, offset)
	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Recipient").
		Where("recipient_id = ? OR sender_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) Respond(ctx context.Context, id uint, status models.MessageStatus, threadID string, at time.Time) (bool, error) {
	cols := map[string]interface{}{
		"status":       status,
		"responded_at": at,
	}
	if threadID != "" {
		cols["thread_id"] = threadID
	}
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ? AND responded_at IS NULL", id, models.MessageStatusPending).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
