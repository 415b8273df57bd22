package server

import (
	"time"

	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,max=30"`
	Bio      string `json:"bio" validate:"max=500"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.Email = validation.NormalizeEmail(req.Email)

	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithAppError(c, models.NewValidationError(err.Error()))
	}

	ctx := c.UserContext()
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return models.RespondWithAppError(c, models.NewConflictError("User already exists"))
	} else if models.StatusFor(err) != fiber.StatusNotFound {
		return s.respondError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return models.RespondWithAppError(c, models.NewConflictError("Username or email already taken"))
		}
		return s.respondError(c, models.NewInternalError(err))
	}

	s.verificationService.IssueBestEffort(ctx, user)

	token, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, time.Now())
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), validation.NormalizeEmail(req.Email))
	if err != nil {
		if models.StatusFor(err) == fiber.StatusNotFound {
			return models.RespondWithAppError(c, models.NewUnauthorizedError("Invalid credentials"))
		}
		return s.respondError(c, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithAppError(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, time.Now())
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*middleware.Claims)
	if err := s.auth.Revoke(c.UserContext(), claims); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	user, err := s.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// UpdateMe handles PUT /api/auth/me
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   userID,
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// VerifyEmail handles GET /api/verify-email?token=
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	user, err := s.verificationService.Verify(c.UserContext(), c.Query("token"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// ResendVerification handles POST /api/resend-verification
func (s *Server) ResendVerification(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	if err := s.verificationService.Resend(c.UserContext(), userID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Verification email sent"})
}
