package service

import (
	"context"
	"fmt"
	"time"

	"github.com/couponops/promo-admin/internal/model"
	"github.com/couponops/promo-admin/internal/preview"
	"github.com/couponops/promo-admin/internal/schedule"
)

// PromotionAPI defines the backend operations for promotions.
type PromotionAPI interface {
	CreatePromotion(ctx context.Context, draft *model.PromotionDraft) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, id string, draft *model.PromotionDraft) (*model.Promotion, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
}

// PromotionService provides business logic for promotion management:
// draft validation before any network call, schedule conflict layout, and
// client-side discount previews.
type PromotionService struct {
	api PromotionAPI
}

// NewPromotionService creates a PromotionService over the given backend API.
func NewPromotionService(api PromotionAPI) *PromotionService {
	return &PromotionService{api: api}
}

// Create validates the draft locally and stores it via the backend.
// Returns a *model.ValidationError before any request when the draft is bad.
func (s *PromotionService) Create(ctx context.Context, draft *model.PromotionDraft) (*model.Promotion, error) {
	if draft == nil {
		return nil, ErrInvalidRequest
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.api.CreatePromotion(ctx, draft)
}

// Update validates the draft locally and replaces the stored promotion.
func (s *PromotionService) Update(ctx context.Context, id string, draft *model.PromotionDraft) (*model.Promotion, error) {
	if id == "" || draft == nil {
		return nil, ErrInvalidRequest
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.api.UpdatePromotion(ctx, id, draft)
}

// List returns all promotions.
func (s *PromotionService) List(ctx context.Context) ([]model.Promotion, error) {
	return s.api.ListPromotions(ctx)
}

// Schedule fetches the promotion list and lays it out over the viewing
// window, conflicts included.
func (s *PromotionService) Schedule(ctx context.Context, windowStart time.Time, windowDays int) ([]schedule.Row, error) {
	if windowDays <= 0 {
		return nil, &model.ValidationError{Field: "days", Reason: "must be a positive number of days"}
	}
	promos, err := s.api.ListPromotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load promotions for schedule: %w", err)
	}
	return schedule.Layout(promos, windowStart, windowDays), nil
}

// Preview estimates the discount a draft would grant on a sample subtotal.
// ok is false for free_shipping drafts, which have nothing to preview.
// Purely local and advisory; the checkout discount is computed server-side.
func (s *PromotionService) Preview(draft *model.PromotionDraft, sampleSubtotal float64, assumeAllOnSale bool) (float64, bool, error) {
	if draft == nil {
		return 0, false, ErrInvalidRequest
	}
	if err := draft.Validate(); err != nil {
		return 0, false, err
	}
	p := draft.Promotion()
	amount, ok := preview.Estimate(&p, sampleSubtotal, assumeAllOnSale)
	return amount, ok, nil
}
