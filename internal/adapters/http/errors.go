package http

import (
	"errors"
	"strings"

	"github.com/bsthun/gut"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/logger"
)

type ErrorResponse struct {
	Success *bool   `json:"success"`
	Error   *string `json:"error"`
	Detail  *string `json:"detail,omitempty"`
	Stage   *string `json:"stage,omitempty"`
}

// ErrorHandler renders every error returned by a handler as
// {success:false, error, detail}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// * case of `*fiber.Error`
	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		title := utils.StatusMessage(fiberError.Code)
		if fiberError.Code == fiber.StatusNotFound {
			title = "Endpoint not found"
		}
		return c.Status(fiberError.Code).JSON(&ErrorResponse{
			Success: gut.Ptr(false),
			Error:   &title,
			Detail:  &fiberError.Message,
		})
	}

	// * case of `validator.ValidationErrors`
	var validatorErr validator.ValidationErrors
	if errors.As(err, &validatorErr) {
		var lists []string
		for _, err := range validatorErr {
			lists = append(lists, err.Field()+" ("+err.Tag()+")")
		}
		return c.Status(fiber.StatusBadRequest).JSON(&ErrorResponse{
			Success: gut.Ptr(false),
			Error:   gut.Ptr("validation failed on " + strings.Join(lists, ", ")),
			Detail:  gut.Ptr(validatorErr.Error()),
		})
	}

	code := StatusOf(err)
	title := utils.StatusMessage(code)
	if code == fiber.StatusInternalServerError {
		title = "Internal server error"
		logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	resp := &ErrorResponse{
		Success: gut.Ptr(false),
		Error:   &title,
		Detail:  gut.Ptr(err.Error()),
	}
	if stage := domain.StageOf(err); stage != "" {
		resp.Stage = &stage
	}
	return c.Status(code).JSON(resp)
}

// StatusOf maps domain errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrMissingCredentials),
		errors.Is(err, domain.ErrCloneFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrCloneTimeout):
		return fiber.StatusRequestTimeout
	case errors.Is(err, domain.ErrDaemonUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// NotFound is the catch-all route.
func NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "no route for "+c.Method()+" "+c.Path())
}
