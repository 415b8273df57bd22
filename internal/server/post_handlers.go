package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title         string `json:"title" validate:"max=300"`
	Content       string `json:"content"`
	CoverImageURL string `json:"cover_image_url" validate:"omitempty,url"`
	VideoKey      string `json:"video_key" validate:"max=512"`
	Publish       bool   `json:"publish"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:        userID,
		Title:         req.Title,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		VideoKey:      req.VideoKey,
		Publish:       req.Publish,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	if post.IsPublished() {
		s.publishPostPublished(c.UserContext(), post)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "post": post})
}

// GetFeed handles GET /api/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListFeed(c.UserContext(), service.ListPostsInput{
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: s.viewerID(c),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"posts":   posts,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), postID, s.viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// GetPostBySlug handles GET /api/authors/:userId/posts/:slug
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	authorID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPostBySlug(c.UserContext(), authorID, c.Params("slug"), s.viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// GetUserPosts handles GET /api/users/:userId/posts. Authors see their own drafts.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	posts, err := s.postService.GetUserPosts(c.UserContext(), authorID, page.Limit, page.Offset, s.viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:        userID,
		PostID:        postID,
		Title:         req.Title,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		VideoKey:      req.VideoKey,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// PublishPost handles POST /api/posts/:id/publish
func (s *Server) PublishPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	post, err := s.postService.PublishPost(c.UserContext(), postID, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishPostPublished(c.UserContext(), post)
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: userID,
		PostID: postID,
	}); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// RecordView handles POST /api/posts/:id/view. The session is optional;
// anonymous views count toward public_views.
func (s *Server) RecordView(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	counters, err := s.viewService.RecordView(c.UserContext(), postID, s.viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "counters": counters})
}

type consumptionRequest struct {
	Kind      string  `json:"kind" validate:"required"`
	Depth     float64 `json:"depth"`
	SessionID string  `json:"session_id" validate:"max=128"`
}

// RecordConsumption handles POST /api/posts/:id/consumption
func (s *Server) RecordConsumption(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req consumptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	record, err := s.viewService.RecordConsumption(c.UserContext(), service.RecordConsumptionInput{
		PostID:    postID,
		UserID:    s.viewerID(c),
		SessionID: req.SessionID,
		Kind:      models.ConsumptionKind(req.Kind),
		Depth:     req.Depth,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "consumption": record})
}
