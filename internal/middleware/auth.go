package middleware

import (
	"log"
	"strings"

	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// Identity returns the authenticated caller stored by AuthRequired or
// OptionalAuth, or nil for anonymous requests.
func Identity(c *fiber.Ctx) *services.Identity {
	id, _ := c.Locals(identityKey).(*services.Identity)
	return id
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
				"error":   "unauthorized",
			})
		}

		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
				"error":   "unauthorized",
			})
		}

		identity, err := authService.Authenticate(token)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   "unauthorized",
			})
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent
// and lets anonymous shoppers through otherwise.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if identity, err := authService.Authenticate(token); err == nil {
				c.Locals(identityKey, identity)
			}
		}
		return c.Next()
	}
}

// AdminRequired allows only administrators. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := Identity(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
				"error":   "unauthorized",
			})
		}
		if !identity.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Administrator access required",
				"error":   "forbidden",
			})
		}
		return c.Next()
	}
}
