package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/couponops/promo-admin/internal/abtest"
	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/model"
	"github.com/couponops/promo-admin/internal/service"
	"github.com/couponops/promo-admin/pkg/apiclient"
)

// formatValidationError converts validator errors into messages that name
// the offending field, so operators know exactly what to fix. Field names
// are the json names, via the tag-name function registered in
// internal/validator.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "max":
				return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
			case "oneof":
				return "invalid request: " + field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
			case "gte":
				return "invalid request: " + field + " must be at least " + fe.Param()
			case "couponcode":
				return "invalid request: " + field + " may only contain uppercase letters, digits, - and _"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// respondError maps an operation failure to an HTTP response. Validation
// problems surface as 400 naming the field; local state-machine rejections
// as 409; backend request failures as 502 carrying the server's detail; the
// rest is a generic 500.
func respondError(c *fiber.Ctx, action string, err error) error {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Error()})
	}
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrEmptyEmailBatch),
		errors.Is(err, abtest.ErrSameCoupon),
		errors.Is(err, abtest.ErrPublicCoupon):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bulkjob.ErrNotCancellable),
		errors.Is(err, bulkjob.ErrNotRetryable),
		errors.Is(err, bulkjob.ErrJobInFlight),
		errors.Is(err, abtest.ErrAlreadyStarted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bulkjob.ErrNoJob),
		errors.Is(err, abtest.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		detail := "failed to " + action
		if apiErr.Message != "" {
			detail += ": " + apiErr.Message
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": detail})
	}

	log.Error().Err(err).Str("action", action).Msg("unexpected failure")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
