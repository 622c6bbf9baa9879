// Package apierr defines the JSON error envelope returned by every HTTP endpoint.
package apierr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Kinds used in the "error" field of the envelope.
const (
	KindValidation          = "ValidationFailed"
	KindInvalidAmount       = "InvalidAmount"
	KindSenderNotFound      = "SenderNotFound"
	KindReceiverNotFound    = "ReceiverNotFound"
	KindInsufficientFunds   = "InsufficientFunds"
	KindSelfTransfer        = "SelfTransfer"
	KindDuplicateEmail      = "DuplicateEmail"
	KindNotFound            = "NotFound"
	KindInvalidCredentials  = "InvalidCredentials"
	KindGenerationExhausted = "GenerationExhausted"
	KindStoreUnavailable    = "StoreUnavailable"
	KindRateLimited         = "RateLimited"
	KindConflict            = "Conflict"
	KindInternal            = "internal"
)

// Error is an HTTP-facing error with a machine readable kind.
type Error struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error.
func New(status int, kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// Handler renders errors returned from Fiber handlers as the JSON envelope. Errors that are
// neither *Error nor *fiber.Error are logged and reported as an internal failure.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Status).JSON(apiErr)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Error{Kind: kindForStatus(fe.Code), Message: fe.Message})
		}

		if logger != nil {
			logger.Error("unhandled request error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		return c.Status(http.StatusInternalServerError).JSON(Error{Kind: KindInternal, Message: "internal server error"})
	}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusServiceUnavailable:
		return KindStoreUnavailable
	case http.StatusUnauthorized:
		return KindInvalidCredentials
	default:
		if status >= 500 {
			return KindInternal
		}
		return http.StatusText(status)
	}
}
