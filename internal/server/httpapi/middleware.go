package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/auctionchat/internal/server/auth"
)

const userIDLocal = "userID"

func (s *HTTPServer) authenticate(c *fiber.Ctx) (string, error) {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}
	return s.svc.Users.Authenticate(token)
}

func (s *HTTPServer) requireAuth(c *fiber.Ctx) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	c.Locals(userIDLocal, userID)
	return c.Next()
}

// optionalAuth records the user when a valid token is present and lets
// anonymous requests through.
func (s *HTTPServer) optionalAuth(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) != "" {
		return s.requireAuth(c)
	}
	return c.Next()
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
