package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/model"
)

// JobHandler handles HTTP requests for bulk distribution jobs. Poll loops
// live inside the per-coupon controllers handed out by the registry; the
// handler only requests transitions and reads tracked state.
type JobHandler struct {
	registry  *bulkjob.Registry
	validator *validator.Validate
}

// NewJobHandler creates a new JobHandler over the given registry.
func NewJobHandler(registry *bulkjob.Registry, v *validator.Validate) *JobHandler {
	return &JobHandler{registry: registry, validator: v}
}

// StartJob handles POST /api/coupons/:id/jobs: create a distribution job
// and begin polling it until terminal.
func (h *JobHandler) StartJob(c *fiber.Ctx) error {
	couponID := c.Params("id")
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}
	if req.Bucket != nil {
		if err := h.validator.Struct(req.Bucket); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
		}
		if req.Bucket.Index >= req.Bucket.Total {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request: bucket_index must be below bucket_total",
			})
		}
	}

	job, err := h.registry.Controller(couponID).Start(c.Context(), &req)
	if err != nil {
		return respondError(c, "start distribution job", err)
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// CurrentJob handles GET /api/coupons/:id/jobs/current, returning the
// tracked job snapshot without a backend round-trip.
func (h *JobHandler) CurrentJob(c *fiber.Ctx) error {
	job := h.registry.Controller(c.Params("id")).Current()
	if job == nil {
		return respondError(c, "get current job", bulkjob.ErrNoJob)
	}
	return c.JSON(job)
}

// RecentJobs handles GET /api/coupons/:id/jobs?refresh=. With refresh=true
// the list is re-fetched from the backend, which is also how visibility is
// recovered after a poll loop stopped on a transport failure.
func (h *JobHandler) RecentJobs(c *fiber.Ctx) error {
	ctrl := h.registry.Controller(c.Params("id"))
	if c.QueryBool("refresh") {
		jobs, err := ctrl.RefreshRecent(c.Context())
		if err != nil {
			return respondError(c, "refresh recent jobs", err)
		}
		return c.JSON(jobs)
	}
	return c.JSON(ctrl.Recent(c.QueryInt("limit", bulkjob.RecentLimit)))
}

// CancelJob handles POST /api/coupons/:id/jobs/cancel for the tracked job.
func (h *JobHandler) CancelJob(c *fiber.Ctx) error {
	job, err := h.registry.Controller(c.Params("id")).Cancel(c.Context())
	if err != nil {
		return respondError(c, "cancel distribution job", err)
	}
	return c.JSON(job)
}

// RetryJob handles POST /api/coupons/:id/jobs/retry. The backend allocates
// a brand-new job; the response carries the new snapshot.
func (h *JobHandler) RetryJob(c *fiber.Ctx) error {
	job, err := h.registry.Controller(c.Params("id")).Retry(c.Context())
	if err != nil {
		return respondError(c, "retry distribution job", err)
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// ReleaseWorkspace handles DELETE /api/coupons/:id/workspace: the operator
// switched away from this coupon, so its poll loop must not outlive the
// selection.
func (h *JobHandler) ReleaseWorkspace(c *fiber.Ctx) error {
	h.registry.Release(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}
