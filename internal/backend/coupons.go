package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couponops/promo-admin/internal/model"
)

// CreateCoupon stores a new coupon. The code is immutable afterwards.
func (c *Client) CreateCoupon(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error) {
	var out model.Coupon
	if err := c.api.Post(ctx, "/api/coupons", draft, &out); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return &out, nil
}

// UpdateCoupon patches the mutable fields of a coupon.
func (c *Client) UpdateCoupon(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error) {
	var out model.Coupon
	if err := c.api.Patch(ctx, "/api/coupons/"+url.PathEscape(id), update, &out); err != nil {
		return nil, fmt.Errorf("update coupon %s: %w", id, err)
	}
	return &out, nil
}

// GetCoupon fetches one coupon by id.
func (c *Client) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	var out model.Coupon
	if err := c.api.Get(ctx, "/api/coupons/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("get coupon %s: %w", id, err)
	}
	return &out, nil
}

// ListCoupons returns coupons, optionally filtered by owning promotion and a
// free-text query over codes.
func (c *Client) ListCoupons(ctx context.Context, promotionID, query string) ([]model.Coupon, error) {
	q := url.Values{}
	if promotionID != "" {
		q.Set("promotion_id", promotionID)
	}
	if query != "" {
		q.Set("q", query)
	}
	path := "/api/coupons"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.Coupon
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return out, nil
}

// BulkEmail performs a direct (non-job) assign or revoke for an explicit
// email list and returns the aggregate counts.
func (c *Client) BulkEmail(ctx context.Context, couponID string, action model.JobAction, emails []string) (*model.EmailBulkResult, error) {
	body := struct {
		Action model.JobAction `json:"action"`
		Emails []string        `json:"emails"`
	}{Action: action, Emails: emails}

	var out model.EmailBulkResult
	if err := c.api.Post(ctx, "/api/coupons/"+url.PathEscape(couponID)+"/bulk-email", body, &out); err != nil {
		return nil, fmt.Errorf("bulk %s by email for coupon %s: %w", action, couponID, err)
	}
	return &out, nil
}

// CouponAnalytics fetches the per-coupon aggregates over a day-count window.
func (c *Client) CouponAnalytics(ctx context.Context, couponID string, days int) (*model.CouponAnalytics, error) {
	path := "/api/coupons/" + url.PathEscape(couponID) + "/analytics?days=" + strconv.Itoa(days)
	var out model.CouponAnalytics
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("analytics for coupon %s: %w", couponID, err)
	}
	return &out, nil
}
