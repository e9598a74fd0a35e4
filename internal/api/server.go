package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/assets"
	"github.com/medtrackpro/medtrack/internal/config"
	"github.com/medtrackpro/medtrack/internal/metrics"
	"github.com/medtrackpro/medtrack/internal/session"
)

// Server handles the HTTP API and the drone WebSocket
type Server struct {
	app      *fiber.App
	config   *config.Config
	sessions *session.Manager
	metrics  *metrics.Metrics
	styles   *assets.Stylesheet
	avatar   *assets.AvatarProxy
	logger   *zap.Logger

	now func() time.Time
}

// New creates a new API server
func New(cfg *config.Config, sessions *session.Manager, m *metrics.Metrics,
	styles *assets.Stylesheet, avatar *assets.AvatarProxy, logger *zap.Logger) *Server {

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		sessions: sessions,
		metrics:  m,
		styles:   styles,
		avatar:   avatar,
		logger:   logger,
		now:      time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Middleware
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(s.requestMetrics())

	// Health, metrics, assets
	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
		s.metrics.Registry(), promhttp.HandlerOpts{})))
	s.app.Get("/assets/style.css", s.handleStylesheet)

	api := s.app.Group("/api")

	// Session lifecycle (public)
	api.Post("/session", s.sessionRateLimit(), s.handleCreateSession)

	// Protected routes
	protected := api.Use(s.authMiddleware())

	protected.Delete("/session", s.handleDeleteSession)

	// Dashboard
	protected.Get("/dashboard", s.handleDashboard)

	// Analytics
	protected.Get("/analytics/adherence", s.handleAdherence)
	protected.Get("/analytics/patterns", s.handlePatterns)
	protected.Get("/analytics/breakdown", s.handleBreakdown)

	// Medications
	protected.Get("/medications", s.handleListMedications)
	protected.Post("/medications", s.handleAddMedication)
	protected.Delete("/medications/:id", s.handleRemoveMedication)

	// Dose log
	protected.Get("/doses", s.handleListDoses)
	protected.Post("/doses", s.handleLogDose)

	// Reminders and calendar
	protected.Get("/reminders", s.handleListReminders)
	protected.Post("/reminders", s.handleSetReminder)
	protected.Get("/calendar", s.handleCalendar)

	// Profile
	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleUpdateProfile)
	protected.Get("/profile/avatar", s.handleAvatar)

	// Notifications
	protected.Get("/notifications", s.handleListNotifications)

	// Drone delivery
	protected.Get("/drone", s.handleDroneStatus)
	protected.Post("/drone/deliveries", s.droneRateLimit(), s.handleRequestDelivery)
	protected.Delete("/drone/deliveries/current", s.handleCancelDelivery)

	// WebSocket (token passed as a query parameter)
	s.app.Get("/ws", websocket.New(s.handleDroneSocket))
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"sessions":  s.sessions.Count(),
		"timestamp": s.now().Unix(),
	})
}

func (s *Server) handleStylesheet(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	return c.Send(s.styles.Content())
}
