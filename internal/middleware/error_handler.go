package middleware

import (
	"errors"

	"plates-backend/internal/domain"
	"plates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidArgument, domain.KindInvalidState, domain.KindInsufficientCapacity:
		return fiber.StatusBadRequest
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindForbidden:
		return fiber.StatusForbidden
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// details carries the machine-readable parts of a domain error.
func details(err error) map[string]interface{} {
	out := map[string]interface{}{}
	var de *domain.Error
	if !errors.As(err, &de) {
		return out
	}
	out["kind"] = de.Kind
	switch de.Kind {
	case domain.KindInsufficientCapacity:
		out["available"] = de.Available
	case domain.KindInvalidState:
		out["current_status"] = de.Current
		out["required_status"] = de.Required
	}
	return out
}

// ErrorHandler is the global error handler. Returns the standard error format.
// Internal errors are logged with the trace id and never echoed to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("unhandled error")
		message = "Internal Server Error"
	}
	return response.Error(c, message, code, details(err))
}
