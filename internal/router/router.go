package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/config"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/handler"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
	aiRateLimit    = 5
	aiRateWindow   = time.Minute
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	ClassHandler        *handler.ClassHandler
	AssessmentHandler   *handler.AssessmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	LiveSessionHandler  *handler.LiveSessionHandler
	FlashcardHandler    *handler.FlashcardHandler
	PracticeTestHandler *handler.PracticeTestHandler
	AIHandler           *handler.AIHandler
	DashboardHandler    *handler.DashboardHandler
	RelayHandler        *handler.RelayHandler
	HealthChecks        map[string]handler.DependencyCheck
	JWTMiddleware       fiber.Handler
	DisableRateLimit    bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	limit := func(identifier string, max int, window time.Duration) fiber.Handler {
		if deps.DisableRateLimit {
			return func(c *fiber.Ctx) error { return c.Next() }
		}
		return middleware.RateLimit(identifier, max, window)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), limit("auth", authRateLimit, authRateWindow), jwtMiddleware)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	if deps.ClassHandler != nil {
		deps.ClassHandler.Register(api.Group("/classes", jwtMiddleware))
	}

	if deps.AssessmentHandler != nil {
		assessments := api.Group("/assessments", jwtMiddleware)
		deps.AssessmentHandler.Register(assessments)

		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.RegisterAssessmentRoutes(assessments)
		}
		if deps.LiveSessionHandler != nil {
			deps.LiveSessionHandler.Register(assessments)
		}
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}

	if deps.FlashcardHandler != nil {
		deps.FlashcardHandler.Register(api.Group("/decks", jwtMiddleware))
	}

	if deps.PracticeTestHandler != nil {
		deps.PracticeTestHandler.Register(api.Group("/practice-tests", jwtMiddleware))
	}

	if deps.AIHandler != nil {
		deps.AIHandler.Register(api.Group("/ai", jwtMiddleware, limit("ai", aiRateLimit, aiRateWindow)))
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(api.Group("/dashboard", jwtMiddleware))
	}

	if deps.RelayHandler != nil {
		deps.RelayHandler.Register(app.Group("/ws", jwtMiddleware))
	}
}
