package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/couponops/promo-admin/internal/abtest"
	"github.com/couponops/promo-admin/internal/model"
)

// ABTestHandler handles HTTP requests for A/B distribution runs.
type ABTestHandler struct {
	manager   *abtest.Manager
	validator *validator.Validate
}

// NewABTestHandler creates a new ABTestHandler over the given manager.
func NewABTestHandler(manager *abtest.Manager, v *validator.Validate) *ABTestHandler {
	return &ABTestHandler{manager: manager, validator: v}
}

// startABTestRequest is the body of POST /api/abtests. Seed is optional; a
// blank seed derives a reproducible default from the coupon pair.
type startABTestRequest struct {
	CouponAID string               `json:"coupon_a_id" validate:"required,notblank"`
	CouponBID string               `json:"coupon_b_id" validate:"required,notblank"`
	Filters   model.SegmentFilters `json:"filters"`
	Seed      string               `json:"seed" validate:"max=128"`
}

// StartABTest handles POST /api/abtests. A partial start (one side accepted,
// the other refused) is reported with the pair state so the operator can
// follow up; the accepted job keeps running.
func (h *ABTestHandler) StartABTest(c *fiber.Ctx) error {
	var req startABTestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	run, err := h.manager.Start(c.Context(), req.CouponAID, req.CouponBID, req.Filters, req.Seed)
	if err != nil {
		var partial *abtest.PartialStartError
		if errors.As(err, &partial) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": partial.Error(),
				"pair":  run.Snapshot(),
			})
		}
		return respondError(c, "start A/B distribution", err)
	}
	return c.Status(fiber.StatusCreated).JSON(run.Snapshot())
}

// GetABTest handles GET /api/abtests/:id.
func (h *ABTestHandler) GetABTest(c *fiber.Ctx) error {
	run, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return respondError(c, "get A/B run", err)
	}
	return c.JSON(run.Snapshot())
}

// ABTestAnalytics handles GET /api/abtests/:id/analytics?days=N, the
// read-only side-by-side comparison over a shared lookback window.
func (h *ABTestHandler) ABTestAnalytics(c *fiber.Ctx) error {
	run, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return respondError(c, "get A/B run", err)
	}
	days := c.QueryInt("days", 30)
	if days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: days must be positive"})
	}

	comparison, err := run.Analytics(c.Context(), days)
	if err != nil {
		return respondError(c, "fetch A/B analytics", err)
	}
	return c.JSON(comparison)
}

// ReleaseABTest handles DELETE /api/abtests/:id: stop the run's watch loop
// and forget it.
func (h *ABTestHandler) ReleaseABTest(c *fiber.Ctx) error {
	if err := h.manager.Release(c.Params("id")); err != nil {
		return respondError(c, "release A/B run", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
