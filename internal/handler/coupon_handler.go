package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/couponops/promo-admin/internal/emaillist"
	"github.com/couponops/promo-admin/internal/model"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error)
	Update(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error)
	Get(ctx context.Context, id string) (*model.Coupon, error)
	List(ctx context.Context, promotionID, query string) ([]model.Coupon, error)
	ParseEmailBatch(text string) *emaillist.Batch
	BulkByEmail(ctx context.Context, couponID string, action model.JobAction, text string) (*model.EmailBulkResult, *emaillist.Batch, error)
	SegmentPreview(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error)
}

// CouponHandler handles HTTP requests for coupon management and the
// CSV-based direct distribution path.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// CreateCoupon handles POST /api/coupons.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var draft model.CouponDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), &draft)
	if err != nil {
		return respondError(c, "create coupon", err)
	}
	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// UpdateCoupon handles PATCH /api/coupons/:id. Only activity, dates and
// redemption caps are mutable; the code never changes.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id := c.Params("id")
	var update model.CouponUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Update(c.Context(), id, &update)
	if err != nil {
		return respondError(c, "update coupon", err)
	}
	return c.JSON(coupon)
}

// ListCoupons handles GET /api/coupons?promotion_id=&q=.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context(), c.Query("promotion_id"), c.Query("q"))
	if err != nil {
		return respondError(c, "list coupons", err)
	}
	return c.JSON(coupons)
}

// ParseEmailBatch handles POST /api/coupons/:id/email-batch. The raw upload
// is the request body; the response is the batch report (accepted, invalid,
// duplicate and truncated counts). Nothing is sent to the backend and the
// batch is not retained; it exists for operator feedback before committing.
func (h *CouponHandler) ParseEmailBatch(c *fiber.Ctx) error {
	batch := h.service.ParseEmailBatch(string(c.Body()))
	return c.JSON(batch)
}

// bulkEmailRequest is the body of POST /api/coupons/:id/bulk-email.
type bulkEmailRequest struct {
	Action model.JobAction `json:"action" validate:"required,oneof=assign revoke"`
	Text   string          `json:"text" validate:"required"`
}

// bulkEmailResponse pairs the distribution counts with the parse report.
type bulkEmailResponse struct {
	Result *model.EmailBulkResult `json:"result"`
	Batch  *emaillist.Batch       `json:"batch"`
}

// BulkEmail handles POST /api/coupons/:id/bulk-email: parse the uploaded
// list and directly assign or revoke the coupon for every accepted address.
func (h *CouponHandler) BulkEmail(c *fiber.Ctx) error {
	couponID := c.Params("id")
	var req bulkEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, batch, err := h.service.BulkByEmail(c.Context(), couponID, req.Action, req.Text)
	if err != nil {
		return respondError(c, "bulk "+string(req.Action)+" by email", err)
	}
	return c.JSON(bulkEmailResponse{Result: result, Batch: batch})
}

// SegmentPreview handles POST /api/coupons/:id/segment-preview: dry-run
// counts and sample emails for a would-be job, nothing is created.
func (h *CouponHandler) SegmentPreview(c *fiber.Ctx) error {
	couponID := c.Params("id")
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	previewResp, err := h.service.SegmentPreview(c.Context(), couponID, &req)
	if err != nil {
		return respondError(c, "preview segment", err)
	}
	return c.JSON(previewResp)
}
