package handlers

import (
	"errors"

	"meal-journal/logging"
	"meal-journal/services"
	"meal-journal/utils"
	"meal-journal/validation"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto status codes. The cause of a 500 is
// logged with the request id and never sent to the client.
func respondError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		return badRequest(c, rerr.msg, rerr.cause)
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": verrs,
		})
	case errors.Is(err, services.ErrInvalidOutcome),
		errors.Is(err, services.ErrWrongPassword),
		errors.Is(err, utils.ErrUnsupportedPhoto):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, utils.ErrPhotoTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFoundOrForbidden), errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	logging.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

// requestError is a malformed field the handler rejects before any service call.
type requestError struct {
	msg   string
	cause error
}

func (e *requestError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *requestError) Unwrap() error { return e.cause }

func badRequest(c *fiber.Ctx, msg string, cause error) error {
	body := fiber.Map{"error": msg}
	if cause != nil {
		body["cause"] = cause.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
