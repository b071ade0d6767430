package model

import "time"

// CouponVisibility controls who can see and redeem a coupon code.
type CouponVisibility string

const (
	// VisibilityPublic coupons are redeemable by anyone holding the code.
	VisibilityPublic CouponVisibility = "public"
	// VisibilityAssigned coupons are redeemable only by customers the code
	// was explicitly distributed to, which is what makes deterministic
	// segment bucketing possible.
	VisibilityAssigned CouponVisibility = "assigned"
)

// Coupon is a redeemable code instance bound to one promotion.
// Code is immutable after creation; Active, the date window and the
// redemption caps are the only fields the backend lets us change.
type Coupon struct {
	ID             string           `json:"id"`
	PromotionID    string           `json:"promotion_id"`
	Code           string           `json:"code"`
	Visibility     CouponVisibility `json:"visibility"`
	Active         bool             `json:"active"`
	StartsAt       *time.Time       `json:"starts_at,omitempty"`
	EndsAt         *time.Time       `json:"ends_at,omitempty"`
	MaxRedemptions *int             `json:"max_redemptions,omitempty"`
	MaxPerCustomer *int             `json:"max_per_customer,omitempty"`
}

// CouponDraft is the creation form for a coupon.
type CouponDraft struct {
	PromotionID    string           `json:"promotion_id" validate:"required,notblank"`
	Code           string           `json:"code" validate:"required,couponcode,max=64"`
	Visibility     CouponVisibility `json:"visibility" validate:"required,oneof=public assigned"`
	Active         bool             `json:"active"`
	StartsAt       *time.Time       `json:"starts_at,omitempty"`
	EndsAt         *time.Time       `json:"ends_at,omitempty"`
	MaxRedemptions *int             `json:"max_redemptions,omitempty" validate:"omitempty,gte=1"`
	MaxPerCustomer *int             `json:"max_per_customer,omitempty" validate:"omitempty,gte=1"`
}

// Validate checks the cross-field rules for a coupon draft.
func (d *CouponDraft) Validate() error {
	if d.StartsAt != nil && d.EndsAt != nil && d.EndsAt.Before(*d.StartsAt) {
		return &ValidationError{Field: "ends_at", Reason: "must not be before starts_at"}
	}
	return nil
}

// CouponUpdate carries the mutable subset of a coupon. Nil pointers mean
// "leave unchanged"; code and visibility are deliberately absent.
type CouponUpdate struct {
	Active         *bool      `json:"active,omitempty"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	MaxRedemptions *int       `json:"max_redemptions,omitempty" validate:"omitempty,gte=1"`
	MaxPerCustomer *int       `json:"max_per_customer,omitempty" validate:"omitempty,gte=1"`
}

// CouponAnalytics is the backend's per-coupon aggregate over a lookback window.
type CouponAnalytics struct {
	CouponID        string  `json:"coupon_id"`
	WindowDays      int     `json:"window_days"`
	Assigned        int     `json:"assigned"`
	Redemptions     int     `json:"redemptions"`
	UniqueCustomers int     `json:"unique_customers"`
	Revenue         float64 `json:"revenue"`
	DiscountTotal   float64 `json:"discount_total"`
}
