package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
)

const maxMessageLen = 5000

// Message responses.
const (
	MessageActionAccept  = "accept"
	MessageActionDecline = "decline"
)

type SendMessageInput struct {
	SenderID    uint
	RecipientID uint
	Content     string
}

type RespondMessageInput struct {
	UserID    uint
	MessageID uint
	Action    string
}

// MessageService handles direct message requests between users.
type MessageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	notifier *notifications.Notifier
	now      func() time.Time
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, notifier *notifications.Notifier) *MessageService {
	return &MessageService{messages: messages, users: users, notifier: notifier, now: time.Now}
}

func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 5000 characters)")
	}
	if in.RecipientID == 0 || in.RecipientID == in.SenderID {
		return nil, models.NewValidationError("Invalid recipient")
	}
	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Content:     content,
		Status:      models.MessageStatusPending,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.notifier.Notify(ctx, in.RecipientID, notifications.EventMessageReceived, map[string]interface{}{
		"message_id": msg.ID,
		"sender_id":  in.SenderID,
	})
	return msg, nil
}

func (s *MessageService) Inbox(ctx context.Context, userID uint, limit, offset int) ([]*models.Message, error) {
	return s.messages.ListForUser(ctx, userID, limit, offset)
}

// Respond lets the recipient accept or decline a pending message. Accepting
// opens the thread shared by the two participants. A message can be
// answered once; the conditional update settles concurrent answers.
func (s *MessageService) Respond(ctx context.Context, in RespondMessageInput) (*models.Message, error) {
	var status models.MessageStatus
	switch strings.ToLower(strings.TrimSpace(in.Action)) {
	case MessageActionAccept:
		status = models.MessageStatusAccepted
	case MessageActionDecline:
		status = models.MessageStatusDeclined
	default:
		return nil, models.NewValidationError("action must be accept or decline")
	}

	msg, err := s.messages.GetByID(ctx, in.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.RecipientID != in.UserID {
		return nil, models.NewForbiddenError("Only the recipient can respond to this message")
	}
	if msg.Status != models.MessageStatusPending || msg.RespondedAt != nil {
		return nil, models.NewValidationError("Message has already been responded to")
	}

	threadID := ""
	if status == models.MessageStatusAccepted {
		threadID = models.ThreadIDFor(msg.SenderID, msg.RecipientID)
	}
	now := s.now()
	ok, err := s.messages.Respond(ctx, msg.ID, status, threadID, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewValidationError("Message has already been responded to")
	}

	msg.Status = status
	msg.RespondedAt = &now
	msg.ThreadID = threadID
	s.notifier.Notify(ctx, msg.SenderID, notifications.EventMessageResponded, map[string]interface{}{
		"message_id": msg.ID,
		"status":     status,
		"thread_id":  threadID,
	})
	return msg, nil
}
