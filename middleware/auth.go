package middleware

import (
	"strings"

	"meal-journal/logging"

	"github.com/gofiber/fiber/v2"
)

// TokenParser resolves a bearer token to the user id it was issued for.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// UserContextMiddleware requires a valid bearer token and stores the user id
// under Locals("user_id") for the handlers behind it.
func UserContextMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || token == "" || token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		userID, err := tokens.ParseToken(token)
		if err != nil {
			logging.Ctx(c.UserContext()).Warn().Err(err).Str("path", c.Path()).Msg("rejected token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID returns the id stored by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
