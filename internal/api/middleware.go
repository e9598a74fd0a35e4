package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
	"github.com/medtrackpro/medtrack/internal/session"
)

const sessionContextKey = "medtrack_session"

// authMiddleware resolves the bearer token to a live session and stashes it
// on the request context
func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiberError(c, fiber.StatusUnauthorized, apperrors.ErrUnauthorized)
		}

		sess, err := s.sessions.Resolve(token)
		if err != nil {
			status := fiber.StatusUnauthorized
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				status = fiber.StatusNotFound
			}
			return fiberError(c, status, err)
		}

		c.Locals(sessionContextKey, sess)
		return c.Next()
	}
}

// currentSession returns the session placed by authMiddleware
func currentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(sessionContextKey).(*session.Session)
	return sess
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// WebSocket clients cannot set headers
	return c.Query("token")
}

// ipLimiter hands out one token bucket per client address
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rpm     int
}

func newIPLimiter(rpm int) *ipLimiter {
	return &ipLimiter{
		buckets: make(map[string]*rate.Limiter),
		rpm:     rpm,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.rpm <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.buckets[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.rpm)), l.rpm)
		l.buckets[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *ipLimiter) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}

// sessionRateLimit throttles session creation per client address
func (s *Server) sessionRateLimit() fiber.Handler {
	return newIPLimiter(s.config.Security.SessionRPM).middleware()
}

// droneRateLimit throttles delivery requests per client address
func (s *Server) droneRateLimit() fiber.Handler {
	return newIPLimiter(s.config.Security.DroneRPM).middleware()
}

// requestMetrics records per-route latency with the status class as a label
func (s *Server) requestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := fmt.Sprintf("%dxx", c.Response().StatusCode()/100)
		s.metrics.ObserveRequest(route, status, time.Since(start))
		return err
	}
}

// fiberError renders an error in the API's uniform shape, surfacing the
// application error code when there is one
func fiberError(c *fiber.Ctx, status int, err error) error {
	body := fiber.Map{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
	}
	return c.Status(status).JSON(body)
}
