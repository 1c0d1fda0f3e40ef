package middleware

import (
	"time"

	"meal-journal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id, puts it on the user context for
// service-level logs and writes one access line when the handler returns.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.SetUserContext(logging.ContextWithRequestID(c.UserContext(), requestID))

		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the app error handler pick the status before it is logged
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := logging.Ctx(c.UserContext()).Info()
		if status >= fiber.StatusInternalServerError {
			event = logging.Ctx(c.UserContext()).Error()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")
		return nil
	}
}
