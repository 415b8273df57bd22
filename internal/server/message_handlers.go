package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type sendMessageRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required,max=5000"`
}

type respondMessageRequest struct {
	Action string `json:"action" validate:"required"`
}

// SendMessage handles POST /api/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	msg, err := s.messageService.Send(c.UserContext(), service.SendMessageInput{
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": msg})
}

// GetInbox handles GET /api/messages
func (s *Server) GetInbox(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	page := parsePagination(c, 20)

	messages, err := s.messageService.Inbox(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "messages": messages})
}

// RespondToMessage handles POST /api/messages/:id/respond. Only the
// recipient may accept or decline, and only once.
func (s *Server) RespondToMessage(c *fiber.Ctx) error {
	messageID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req respondMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	msg, err := s.messageService.Respond(c.UserContext(), service.RespondMessageInput{
		UserID:    userID,
		MessageID: messageID,
		Action:    req.Action,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}
