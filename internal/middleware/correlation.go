package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	// CorrelationHeader carries the request identifier in both directions.
	CorrelationHeader = "X-Correlation-ID"

	requestIDHeader = "X-Request-ID"
	correlationKey  = "correlation_id"
)

type correlationCtxKey struct{}

// CorrelationID tags every request with an identifier, taken from the caller when it sends one.
// Handlers read it back with GetCorrelationID; services get it from the user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(requestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		} else {
			// Header values alias the request buffer; the id is kept past the handler.
			id = fiberutils.CopyString(id)
		}

		c.Locals(correlationKey, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationCtxKey{}, id))

		return c.Next()
	}
}

// CorrelationIDFromContext returns the identifier stored by CorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationKey).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}
