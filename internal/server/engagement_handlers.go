package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	result, err := s.engagementService.Record(c.UserContext(), service.RecordEngagementInput{
		PostID: postID,
		UserID: userID,
		Kind:   models.EngagementLike,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	result, err := s.engagementService.Unlike(c.UserContext(), postID, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// GetLikeStatus handles GET /api/posts/:id/like. Anonymous callers get the
// count with liked=false.
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	status, err := s.engagementService.LikeStatus(c.UserContext(), postID, s.viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "liked": status.Liked, "likes": status.Likes})
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// CreateComment handles POST /api/posts/:id/comment
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	result, err := s.engagementService.Record(c.UserContext(), service.RecordEngagementInput{
		PostID:  postID,
		UserID:  userID,
		Kind:    models.EngagementComment,
		Content: req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetComments handles GET /api/posts/:id/comment
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	comments, err := s.commentService.ListComments(c.UserContext(), service.ListCommentsInput{
		PostID: postID,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "comments": comments})
}

// DeleteComment handles DELETE /api/posts/:id/comment/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	counters, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "counters": counters})
}

// ToggleBookmark handles POST /api/posts/:id/bookmark
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	saved, err := s.bookmarkService.Toggle(c.UserContext(), userID, postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "bookmarked": saved})
}

// GetBookmarkStatus handles GET /api/posts/:id/bookmark
func (s *Server) GetBookmarkStatus(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	saved, err := s.bookmarkService.IsBookmarked(c.UserContext(), userID, postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "bookmarked": saved})
}

// ListBookmarks handles GET /api/bookmarks
func (s *Server) ListBookmarks(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	page := parsePagination(c, 20)

	bookmarks, err := s.bookmarkService.List(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "bookmarks": bookmarks})
}
