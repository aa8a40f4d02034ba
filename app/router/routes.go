// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/app/handlers"
	"github.com/amirphl/telecall/app/middleware"
	"github.com/amirphl/telecall/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Options tunes the router from configuration
type Options struct {
	AllowedOrigins   []string
	RateLimit        int
	MetricsEnabled   bool
	MetricsPath      string
	AccessLogEnabled bool
	BodyLimit        int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                *fiber.App
	opts               Options
	logger             *slog.Logger
	authMiddleware     *middleware.AuthMiddleware
	adminAuthHandler   handlers.AdminAuthHandlerInterface
	telecallingHandler handlers.TelecallingHandlerInterface
	appointmentHandler handlers.AppointmentAdminHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	opts Options,
	logger *slog.Logger,
	authMiddleware *middleware.AuthMiddleware,
	adminAuthHandler handlers.AdminAuthHandlerInterface,
	telecallingHandler handlers.TelecallingHandlerInterface,
	appointmentHandler handlers.AppointmentAdminHandlerInterface,
) *FiberRouter {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 1024 * 1024
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	r := &FiberRouter{
		opts:               opts,
		logger:             logger.With("component", "router"),
		authMiddleware:     authMiddleware,
		adminAuthHandler:   adminAuthHandler,
		telecallingHandler: telecallingHandler,
		appointmentHandler: appointmentHandler,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Telecall API",
		ServerHeader: "Telecall",
		ErrorHandler: r.errorHandler,
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.opts.MetricsEnabled {
		r.app.Get(r.opts.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.opts.RateLimit > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        r.opts.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
					Success: false,
					Message: "Too many requests. Please try again later.",
					Error: dto.ErrorDetail{
						Code: "RATE_LIMIT_EXCEEDED",
					},
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health"
			},
		}))
	}

	adminAuth := r.authMiddleware.AdminAuthenticate()

	// Token rotation takes a refresh token in the body, not a bearer access token
	api.Post("/admin/auth/refresh", r.adminAuthHandler.Refresh)
	api.Post("/admin/auth/logout", adminAuth, r.adminAuthHandler.Logout)

	telecalling := api.Group("/telecalling", adminAuth)
	telecalling.Post("/drafts", r.telecallingHandler.CreateDraft)
	telecalling.Get("/appointment-ids/next", r.telecallingHandler.PreviewNextAppointmentID)
	telecalling.Post("/records", r.telecallingHandler.CreateRecord)
	telecalling.Get("/records", r.telecallingHandler.ListRecords)
	telecalling.Get("/records/export", r.telecallingHandler.ExportRecords)
	telecalling.Get("/records/:uuid", r.telecallingHandler.GetRecord)
	telecalling.Put("/records/:uuid", r.telecallingHandler.UpdateRecord)
	telecalling.Delete("/records/:uuid", r.telecallingHandler.DeleteRecord)

	admin := api.Group("/admin/appointment-ids", adminAuth)
	admin.Post("/reset", r.appointmentHandler.ResetAllocator)
	admin.Get("/status", r.appointmentHandler.AllocatorStatus)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured", "metrics", r.opts.MetricsEnabled)
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(middleware.Metrics(r.opts.MetricsPath))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	if len(r.opts.AllowedOrigins) > 0 {
		r.app.Use(cors.New(cors.Config{
			AllowOrigins: r.opts.AllowedOrigins,
			AllowMethods: []string{
				"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS",
			},
			AllowHeaders: []string{
				"Origin",
				"Content-Type",
				"Accept",
				"Authorization",
				"X-Request-ID",
			},
			ExposeHeaders: []string{
				"X-Request-ID",
				"Content-Disposition",
			},
			AllowCredentials: !containsWildcard(r.opts.AllowedOrigins),
			MaxAge:           utils.CORSMaxAge,
		}))
	}

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if r.opts.AccessLogEnabled {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health"
			},
		}))
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				"request_id", requestid.FromContext(c),
				"error", e,
				"path", c.Path(),
				"method", c.Method(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", "address", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "telecall-api",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// errorHandler renders errors that escaped the handlers
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	if code >= fiber.StatusInternalServerError {
		r.logger.Error("unhandled request error", "status", code, "error", err, "path", c.Path())
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.Contains(o, "*") {
			return true
		}
	}
	return false
}
