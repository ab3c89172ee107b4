// Package server exposes the HTTP API over the lifecycle engine, KPI store,
// intelligence service and governance records.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/internal/intelligence"
	"github.com/vantagehq/vantage/internal/kpi"
	"github.com/vantagehq/vantage/internal/sqlite"
)

// Server wires HTTP routes to the application components.
type Server struct {
	app          *fiber.App
	config       *config.Config
	engine       *engine.Engine
	kpis         *kpi.Store
	intelligence *intelligence.Client
	sqlite       *sqlite.DB
	log          *slog.Logger
	buildInfo    string
	version      string
}

// ServerOptions contains the dependencies needed to create a Server.
type ServerOptions struct {
	Config       *config.Config
	Engine       *engine.Engine
	KPIStore     *kpi.Store
	Intelligence *intelligence.Client
	SQLite       *sqlite.DB
	Logger       *slog.Logger
	BuildInfo    string
	Version      string
}

// New creates a configured Server with all routes registered.
func New(opts ServerOptions) *Server {
	s := &Server{
		config:       opts.Config,
		engine:       opts.Engine,
		kpis:         opts.KPIStore,
		intelligence: opts.Intelligence,
		sqlite:       opts.SQLite,
		log:          opts.Logger.With("component", "server"),
		buildInfo:    opts.BuildInfo,
		version:      opts.Version,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "vantage",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.corsOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Actor",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	s.registerRoutes()
	return s
}

func (s *Server) corsOrigins() string {
	if s.config.Server.ConsoleURL != "" {
		return s.config.Server.ConsoleURL
	}
	return "*"
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1")

	api.Get("/status", s.handleStatus)
	api.Post("/safe-mode/toggle", s.handleToggleSafeMode)

	api.Get("/alerts", s.handleListAlerts)
	api.Post("/alerts", s.handleTriggerAlert)
	api.Get("/alerts/:alertID", s.handleGetAlert)
	api.Get("/alerts/:alertID/audit", s.handleGetAuditTrail)
	api.Post("/alerts/:alertID/acknowledge", s.handleAcknowledgeAlert)
	api.Post("/alerts/:alertID/resolve", s.handleResolveAlert)
	api.Post("/alerts/:alertID/redispatch", s.handleRedispatchAlert)

	api.Get("/recipients", s.handleListRecipients)
	api.Post("/recipients", s.handleAddRecipient)
	api.Delete("/recipients/:address", s.handleRemoveRecipient)

	api.Get("/kpis", s.handleListKPIs)

	api.Get("/models", s.handleListModels)
	api.Get("/decisions", s.handleListDecisions)
	api.Patch("/decisions/:decisionID", s.handleUpdateDecision)

	api.Post("/intelligence/query", s.handleIntelligenceQuery)
	api.Post("/intelligence/simulate", s.handleIntelligenceSimulate)
}

// errorHandler is the fallback for errors that escape the handlers.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	s.log.Error("unhandled request error", "path", c.Path(), "error", err)
	return SendError(c, code, err.Error())
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// actor resolves the acting identity for audit attribution from the request.
func actor(c *fiber.Ctx) string {
	if a := c.Get("X-Actor"); a != "" {
		return a
	}
	return "executive-console"
}
