package middleware

import (
	"errors"

	"realty-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const reportedErrorLocal = "reported_error"

// ErrorHandler is the global error handler. Returns the standard error format.
// Errors that are not *fiber.Error are reported and hidden behind a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, nil)
	}
	ReportError(c, err)
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// ReportError logs a server-side failure with the request's trace id and marks
// it for the health error log. The caller still decides what the client sees.
func ReportError(c *fiber.Ctx, err error) {
	log.Error().Err(err).
		Str("trace_id", GetTraceID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	c.Locals(reportedErrorLocal, err)
}

func reportedError(c *fiber.Ctx) error {
	err, _ := c.Locals(reportedErrorLocal).(error)
	return err
}
