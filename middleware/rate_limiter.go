package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"threadview/utils"
)

// KeyFunc extracts the identity a limit is tracked against.
type KeyFunc func(*fiber.Ctx) string

// KeyByIP tracks limits per client IP.
func KeyByIP(c *fiber.Ctx) string {
	return c.IP()
}

// KeyByOwner tracks limits per authenticated user, falling back to the
// client IP before authentication has run.
func KeyByOwner(c *fiber.Ctx) string {
	if owner, ok := c.Locals("owner").(string); ok && owner != "" {
		return owner
	}
	return c.IP()
}

// RateLimiter creates a rate limiting middleware allowing `requests`
// per `duration` for each key.
func RateLimiter(requests int, duration time.Duration, key KeyFunc) fiber.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		clients = make(map[string]*client)
		mu      sync.Mutex
	)

	// Cleanup old clients every 5 minutes
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			for k, c := range clients {
				if time.Since(c.lastSeen) > 10*time.Minute {
					delete(clients, k)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *fiber.Ctx) error {
		k := key(c)

		mu.Lock()
		cl, exists := clients[k]
		if !exists {
			limiter := rate.NewLimiter(rate.Every(duration/time.Duration(requests)), requests)
			cl = &client{limiter: limiter}
			clients[k] = cl
		}
		cl.lastSeen = time.Now()
		mu.Unlock()

		if !cl.limiter.Allow() {
			utils.Log.Warn("rate limit exceeded for %s on %s", k, c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return c.Next()
	}
}

// SendRateLimiter caps send attempts per user. The send pipeline is
// single-flight already; this bounds how fast repeated attempts can be
// re-triggered after a failure.
func SendRateLimiter() fiber.Handler {
	return RateLimiter(6, time.Minute, KeyByOwner)
}
