package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/config"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/handler"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/middleware"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	HealthProbes      map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/v1/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.AssignmentHandler != nil {
		var createLimits []fiber.Handler
		if cfg.AssignmentRateLimit > 0 {
			createLimits = append(createLimits, middleware.RateLimit("assignments", cfg.AssignmentRateLimit, time.Minute))
		}
		deps.AssignmentHandler.Register(api.Group("/assignments"), createLimits...)
	}

	if deps.SubmissionHandler != nil {
		var submitLimits []fiber.Handler
		if cfg.SubmitRateLimit > 0 {
			submitLimits = append(submitLimits, middleware.RateLimit("submissions", cfg.SubmitRateLimit, time.Minute))
		}
		deps.SubmissionHandler.Register(api, submitLimits...)
	}
}
