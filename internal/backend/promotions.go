package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/couponops/promo-admin/internal/model"
)

// CreatePromotion stores a new promotion and returns it with its assigned id.
func (c *Client) CreatePromotion(ctx context.Context, draft *model.PromotionDraft) (*model.Promotion, error) {
	var out model.Promotion
	if err := c.api.Post(ctx, "/api/promotions", draft, &out); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}
	return &out, nil
}

// UpdatePromotion replaces an existing promotion's definition.
func (c *Client) UpdatePromotion(ctx context.Context, id string, draft *model.PromotionDraft) (*model.Promotion, error) {
	var out model.Promotion
	if err := c.api.Put(ctx, "/api/promotions/"+url.PathEscape(id), draft, &out); err != nil {
		return nil, fmt.Errorf("update promotion %s: %w", id, err)
	}
	return &out, nil
}

// ListPromotions returns all promotions.
func (c *Client) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	var out []model.Promotion
	if err := c.api.Get(ctx, "/api/promotions", &out); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return out, nil
}
