package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type subscribeRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// Subscribe handles POST /api/subscribe. New subscribers get 201; a
// reactivated or already active address gets 200.
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	result, err := s.subscriptionService.Subscribe(c.UserContext(), req.Email)
	if err != nil {
		return s.respondError(c, err)
	}
	status := fiber.StatusOK
	if result.Status == service.SubscriptionCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success":    true,
		"status":     result.Status,
		"subscriber": result.Subscriber,
	})
}

// Unsubscribe handles POST /api/unsubscribe
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.subscriptionService.Unsubscribe(c.UserContext(), req.Email); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
