package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured feature flags and their evaluated state
// for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"success":   true,
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
