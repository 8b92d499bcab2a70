package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/middleware"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/service"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/utils"
)

// Error codes returned in the response envelope.
const (
	CodeInvalidRequest     = "C001"
	CodeInternal           = "C002"
	CodeAssignmentNotFound = "A001"
	CodeScriptGeneration   = "A002"
	CodeSubmissionNotFound = "S001"
	CodeFileTypeInvalid    = "S002"
	CodeFileTooLarge       = "S003"
	CodeUploadFailed       = "S004"
)

var (
	// ErrArchiveTooLarge indicates the uploaded archive is larger than the configured limit.
	ErrArchiveTooLarge = errors.New("file size exceeds limit")

	errInvalidIdentifier = errors.New("invalid identifier")
	errMalformedBody     = errors.New("malformed request body")
	errFileRequired      = errors.New("file is required")
)

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, errInvalidIdentifier
	}
	return parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError maps service and handler errors onto the response envelope.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeInvalidRequest, validationErrors.Error())
	case errors.Is(err, errInvalidIdentifier),
		errors.Is(err, errMalformedBody),
		errors.Is(err, errFileRequired),
		errors.Is(err, service.ErrSubmissionSourceInvalid):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrFileTypeInvalid):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeFileTypeInvalid, "only .zip files are allowed")
	case errors.Is(err, ErrArchiveTooLarge):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeFileTooLarge, ErrArchiveTooLarge.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, CodeAssignmentNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, CodeSubmissionNotFound, "submission not found")
	case errors.Is(err, service.ErrScriptGenerationFailed):
		requestLogger(base, c).Error().Err(err).Msg("script generation failed")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, CodeScriptGeneration, "failed to generate AI script")
	case errors.Is(err, service.ErrSubmissionFailed):
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, CodeUploadFailed, "failed to upload file")
	default:
		requestLogger(base, c).Error().Err(err).Msg("internal server error")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// ErrorHandler renders errors that escape the handlers, such as oversized bodies or unknown
// routes, with the same envelope.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	base := logger.With().Str("component", "http_error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			switch {
			case fiberErr.Code == fiber.StatusRequestEntityTooLarge:
				return utils.SendErrorCode(c, fiber.StatusBadRequest, CodeFileTooLarge, ErrArchiveTooLarge.Error())
			case fiberErr.Code == fiber.StatusBadRequest:
				return utils.SendErrorCode(c, fiberErr.Code, CodeInvalidRequest, fiberErr.Message)
			case fiberErr.Code < fiber.StatusInternalServerError:
				return utils.SendError(c, fiberErr.Code, fiberErr.Message)
			}
		}

		return respondError(c, base, err)
	}
}
