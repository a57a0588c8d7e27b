package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/study"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
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

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
}

func invalidID(c *fiber.Ctx, err error) error {
	return utils.SendError(c, fiber.StatusBadRequest, err.Error())
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrClassNotFound, fiber.StatusNotFound},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrAssessmentNotFound, fiber.StatusNotFound},
	{service.ErrJoinCodeNotFound, fiber.StatusNotFound},
	{service.ErrSubmissionNotFound, fiber.StatusNotFound},
	{service.ErrDeckNotFound, fiber.StatusNotFound},
	{service.ErrCardNotFound, fiber.StatusNotFound},
	{service.ErrPracticeTestNotFound, fiber.StatusNotFound},
	{service.ErrResourceNotFound, fiber.StatusNotFound},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{service.ErrInvalidToken, fiber.StatusUnauthorized},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrNotDeckOwner, fiber.StatusForbidden},
	{service.ErrNotClassMember, fiber.StatusForbidden},
	{service.ErrEmailTaken, fiber.StatusConflict},
	{service.ErrAlreadySubmitted, fiber.StatusConflict},
	{service.ErrTimeLimitExceeded, fiber.StatusConflict},
	{service.ErrAssessmentClosed, fiber.StatusConflict},
	{service.ErrNotSubmitted, fiber.StatusConflict},
	{service.ErrAssessmentEmpty, fiber.StatusConflict},
	{service.ErrAssessmentUnpublished, fiber.StatusConflict},
	{service.ErrLiveNotActive, fiber.StatusConflict},
	{service.ErrNotJoined, fiber.StatusConflict},
	{service.ErrPracticeTestCompleted, fiber.StatusConflict},
	{service.ErrDeckEmpty, fiber.StatusConflict},
	{service.ErrInvalidLink, fiber.StatusBadRequest},
	{service.ErrDuplicateQuestionID, fiber.StatusBadRequest},
	{service.ErrQuestionOutOfRange, fiber.StatusBadRequest},
	{service.ErrFileRequired, fiber.StatusBadRequest},
	{service.ErrUploadScanFailed, fiber.StatusBadRequest},
	{grading.ErrInvalidQuestion, fiber.StatusBadRequest},
	{study.ErrUnknownRating, fiber.StatusBadRequest},
	{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
	{service.ErrUploadTypeNotAllowed, fiber.StatusUnsupportedMediaType},
	{service.ErrGenerationEmpty, fiber.StatusUnprocessableEntity},
	{service.ErrStorageUnavailable, fiber.StatusServiceUnavailable},
	{service.ErrGeneratorUnavailable, fiber.StatusServiceUnavailable},
}

// respondError maps service errors onto the response envelope. Unknown errors are logged and hidden.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	for _, mapping := range errorStatuses {
		if errors.Is(err, mapping.err) {
			return utils.SendError(c, mapping.status, err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Namespace()] = fieldErr.Tag()
	}
	return details
}
