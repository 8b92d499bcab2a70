package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/config"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/utils"
)

const probeTimeout = 2 * time.Second

// HealthProbe reports whether a backing dependency is reachable.
type HealthProbe func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck returns a handler that reports application health information. A failing probe
// marks the service degraded but still answers 200 so the process is not restarted for an
// optional dependency.
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(names) > 0 {
			payload.Dependencies = make(map[string]string, len(names))
		}
		for _, name := range names {
			ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
			err := probes[name](ctx)
			cancel()

			if err != nil {
				payload.Status = "degraded"
				payload.Dependencies[name] = "down"
				continue
			}
			payload.Dependencies[name] = "up"
		}

		message := "service healthy"
		if payload.Status != "ok" {
			message = "service degraded"
		}

		return utils.SendSuccess(c, message, payload)
	}
}
