package server

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type claimAdminRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type betaApplyRequest struct {
	Reason       string `json:"reason" validate:"required,max=2000"`
	PortfolioURL string `json:"portfolio_url" validate:"omitempty,url"`
}

type betaReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ClaimAdmin handles POST /api/admin/setup. An empty ADMIN_SETUP_SECRET
// disables the endpoint.
func (s *Server) ClaimAdmin(c *fiber.Ctx) error {
	var req claimAdminRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	user, err := s.userService.ClaimAdmin(c.UserContext(), userID, req.Secret)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// GetAdminStats handles GET /api/admin/stats
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(ctx, page.Limit, page.Offset)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(models.ErrorResponse{Error: "Request timeout"})
		}
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

// PromoteToAdmin handles POST /api/admin/users/:id/promote
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	return s.setAdmin(c, true)
}

// DemoteFromAdmin handles POST /api/admin/users/:id/demote
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	return s.setAdmin(c, false)
}

func (s *Server) setAdmin(c *fiber.Ctx, isAdmin bool) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actorID, _ := currentUserID(c)
	if !isAdmin && targetID == actorID {
		return models.RespondWithAppError(c, models.NewValidationError("You cannot demote yourself"))
	}

	user, err := s.userService.SetAdmin(c.UserContext(), targetID, isAdmin)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// ApplyForBeta handles POST /api/beta/apply
func (s *Server) ApplyForBeta(c *fiber.Ctx) error {
	var req betaApplyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	app, err := s.betaService.Apply(c.UserContext(), service.ApplyBetaInput{
		UserID:       userID,
		Reason:       req.Reason,
		PortfolioURL: req.PortfolioURL,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "application": app})
}

// ListBetaApplications handles GET /api/admin/beta-applications?status=
func (s *Server) ListBetaApplications(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	apps, err := s.betaService.List(c.UserContext(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "applications": apps})
}

// ApproveBetaApplication handles POST /api/admin/beta-applications/:id/approve
func (s *Server) ApproveBetaApplication(c *fiber.Ctx) error {
	return s.reviewBetaApplication(c, true)
}

// RejectBetaApplication handles POST /api/admin/beta-applications/:id/reject
func (s *Server) RejectBetaApplication(c *fiber.Ctx) error {
	return s.reviewBetaApplication(c, false)
}

func (s *Server) reviewBetaApplication(c *fiber.Ctx, approve bool) error {
	appID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req betaReviewRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	reviewerID, _ := currentUserID(c)

	app, err := s.betaService.Review(c.UserContext(), service.ReviewBetaInput{
		ApplicationID: appID,
		ReviewerID:    reviewerID,
		Approve:       approve,
		Notes:         req.Notes,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "application": app})
}

// RecountPost handles POST /api/admin/posts/:id/recount
func (s *Server) RecountPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	counters, err := s.adminService.RecountPost(c.UserContext(), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "counters": counters})
}
