package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/couponops/promo-admin/internal/model"
	"github.com/couponops/promo-admin/internal/schedule"
)

// PromotionServiceInterface defines the interface for promotion business logic.
type PromotionServiceInterface interface {
	Create(ctx context.Context, draft *model.PromotionDraft) (*model.Promotion, error)
	Update(ctx context.Context, id string, draft *model.PromotionDraft) (*model.Promotion, error)
	List(ctx context.Context) ([]model.Promotion, error)
	Schedule(ctx context.Context, windowStart time.Time, windowDays int) ([]schedule.Row, error)
	Preview(draft *model.PromotionDraft, sampleSubtotal float64, assumeAllOnSale bool) (float64, bool, error)
}

// PromotionHandler handles HTTP requests for promotion management.
type PromotionHandler struct {
	service   PromotionServiceInterface
	validator *validator.Validate
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(svc PromotionServiceInterface, v *validator.Validate) *PromotionHandler {
	return &PromotionHandler{service: svc, validator: v}
}

// CreatePromotion handles POST /api/promotions.
func (h *PromotionHandler) CreatePromotion(c *fiber.Ctx) error {
	var draft model.PromotionDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	promo, err := h.service.Create(c.Context(), &draft)
	if err != nil {
		return respondError(c, "create promotion", err)
	}
	return c.Status(fiber.StatusCreated).JSON(promo)
}

// UpdatePromotion handles PUT /api/promotions/:id.
func (h *PromotionHandler) UpdatePromotion(c *fiber.Ctx) error {
	id := c.Params("id")
	var draft model.PromotionDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	promo, err := h.service.Update(c.Context(), id, &draft)
	if err != nil {
		return respondError(c, "update promotion", err)
	}
	return c.JSON(promo)
}

// ListPromotions handles GET /api/promotions.
func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	promos, err := h.service.List(c.Context())
	if err != nil {
		return respondError(c, "list promotions", err)
	}
	return c.JSON(promos)
}

// Schedule handles GET /api/promotions/schedule?start=RFC3339&days=N,
// returning timeline rows with conflict summaries. start defaults to the
// beginning of today (UTC), days to 30.
func (h *PromotionHandler) Schedule(c *fiber.Ctx) error {
	windowStart := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: start must be an RFC3339 timestamp"})
		}
		windowStart = parsed
	}
	days := c.QueryInt("days", 30)

	rows, err := h.service.Schedule(c.Context(), windowStart, days)
	if err != nil {
		return respondError(c, "compute schedule", err)
	}
	return c.JSON(rows)
}

// previewRequest is the body of POST /api/promotions/preview.
type previewRequest struct {
	Draft           model.PromotionDraft `json:"draft"`
	SampleSubtotal  float64              `json:"sample_subtotal"`
	AssumeAllOnSale bool                 `json:"assume_all_on_sale"`
}

// previewResponse reports the estimated discount; Amount is null for
// free_shipping promotions.
type previewResponse struct {
	Amount *float64 `json:"amount"`
}

// Preview handles POST /api/promotions/preview. Advisory only: the response
// estimates what the backend would grant, it never binds checkout.
func (h *PromotionHandler) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req.Draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	amount, ok, err := h.service.Preview(&req.Draft, req.SampleSubtotal, req.AssumeAllOnSale)
	if err != nil {
		return respondError(c, "preview discount", err)
	}
	resp := previewResponse{}
	if ok {
		resp.Amount = &amount
	}
	return c.JSON(resp)
}
