package middleware

import (
	"time"

	"herbstore/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionCookie carries the anonymous shopper session.
	SessionCookie = "herbstore_session"
	// SessionHeader may be sent instead of the cookie by API clients.
	SessionHeader = "X-Session-ID"

	sessionKey = "session_id"
)

// SessionID returns the shopper session resolved by Session.
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionKey).(string)
	return id
}

// Session resolves the shopper session from the header or cookie and
// issues a new one when neither is present or well formed.
func Session(ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if id == "" {
			id = c.Cookies(SessionCookie)
		}
		if !validation.ValidReference(id) {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(ttl),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Set(SessionHeader, id)
		c.Locals(sessionKey, id)
		return c.Next()
	}
}
