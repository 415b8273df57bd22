package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type walletVerifyRequest struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type createTierRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  int64  `json:"price_cents" validate:"gt=0"`
}

// IssueWalletChallenge handles POST /api/wallet/challenge
func (s *Server) IssueWalletChallenge(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	ch, err := s.walletService.Challenge(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    ch.Message(),
		"nonce":      ch.Nonce,
		"expires_at": ch.ExpiresAt,
	})
}

// VerifyWallet handles POST /api/wallet/verify
func (s *Server) VerifyWallet(c *fiber.Ctx) error {
	var req walletVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	user, err := s.walletService.Verify(c.UserContext(), userID, req.Address, req.Signature)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// CreateTier handles POST /api/memberships/tiers
func (s *Server) CreateTier(c *fiber.Ctx) error {
	var req createTierRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	tier, err := s.membershipService.CreateTier(c.UserContext(), service.CreateTierInput{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "tier": tier})
}

// ListTiers handles GET /api/creators/:id/tiers
func (s *Server) ListTiers(c *fiber.Ctx) error {
	creatorID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	tiers, err := s.membershipService.ListTiers(c.UserContext(), creatorID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "tiers": tiers})
}

// JoinTier handles POST /api/memberships/tiers/:id/join
func (s *Server) JoinTier(c *fiber.Ctx) error {
	tierID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	membership, err := s.membershipService.Join(c.UserContext(), userID, tierID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "membership": membership})
}

// LeaveTier handles DELETE /api/memberships/tiers/:id/join
func (s *Server) LeaveTier(c *fiber.Ctx) error {
	tierID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	if err := s.membershipService.Leave(c.UserContext(), userID, tierID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetPayouts handles GET /api/creator/payouts
func (s *Server) GetPayouts(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	summary, err := s.membershipService.Payouts(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "payouts": summary})
}
