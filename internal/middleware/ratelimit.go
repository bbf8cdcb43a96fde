package middleware

import (
	"log"
	"time"

	"herbstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit caps requests per client over a sliding window. Clients are
// keyed by user when authenticated and by IP otherwise.
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := Identity(c); id != nil {
				return "user:" + id.UserID
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("Rate limit reached for %s %s from %s", c.Method(), c.Path(), c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": services.PublicMessage(services.ErrRateLimited),
				"error":   "rate_limited",
			})
		},
	})
}
