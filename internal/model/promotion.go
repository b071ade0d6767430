package model

import (
	"fmt"
	"time"
)

// DiscountKind identifies how a promotion discounts an order.
type DiscountKind string

const (
	DiscountPercent      DiscountKind = "percent"
	DiscountAmount       DiscountKind = "amount"
	DiscountFreeShipping DiscountKind = "free_shipping"
)

// Promotion is a discount rule definition as stored by the storefront backend.
type Promotion struct {
	ID             string       `json:"id"`
	Key            string       `json:"key,omitempty"`
	Name           string       `json:"name"`
	Kind           DiscountKind `json:"kind"`
	PercentOff     float64      `json:"percent_off,omitempty"`
	AmountOff      float64      `json:"amount_off,omitempty"`
	MaxDiscount    *float64     `json:"max_discount,omitempty"`
	MinSubtotal    *float64     `json:"min_subtotal,omitempty"`
	AllowOnSale    bool         `json:"allow_on_sale"`
	FirstOrderOnly bool         `json:"first_order_only,omitempty"`
	StartsAt       *time.Time   `json:"starts_at,omitempty"`
	EndsAt         *time.Time   `json:"ends_at,omitempty"`
	Active         bool         `json:"active"`
	Automatic      bool         `json:"automatic"`

	IncludedProductIDs  []string `json:"included_product_ids,omitempty"`
	ExcludedProductIDs  []string `json:"excluded_product_ids,omitempty"`
	IncludedCategoryIDs []string `json:"included_category_ids,omitempty"`
	ExcludedCategoryIDs []string `json:"excluded_category_ids,omitempty"`
}

// PromotionDraft is the operator-editable form of a promotion. It carries the
// same fields as Promotion minus the server-assigned id, plus validation tags.
type PromotionDraft struct {
	Key            string       `json:"key,omitempty" validate:"max=64"`
	Name           string       `json:"name" validate:"required,notblank,max=255"`
	Kind           DiscountKind `json:"kind" validate:"required,oneof=percent amount free_shipping"`
	PercentOff     float64      `json:"percent_off,omitempty"`
	AmountOff      float64      `json:"amount_off,omitempty"`
	MaxDiscount    *float64     `json:"max_discount,omitempty"`
	MinSubtotal    *float64     `json:"min_subtotal,omitempty"`
	AllowOnSale    bool         `json:"allow_on_sale"`
	FirstOrderOnly bool         `json:"first_order_only,omitempty"`
	StartsAt       *time.Time   `json:"starts_at,omitempty"`
	EndsAt         *time.Time   `json:"ends_at,omitempty"`
	Active         bool         `json:"active"`
	Automatic      bool         `json:"automatic"`

	IncludedProductIDs  []string `json:"included_product_ids,omitempty"`
	ExcludedProductIDs  []string `json:"excluded_product_ids,omitempty"`
	IncludedCategoryIDs []string `json:"included_category_ids,omitempty"`
	ExcludedCategoryIDs []string `json:"excluded_category_ids,omitempty"`
}

// ValidationError reports a locally detected draft problem, naming the field
// so the operator can fix it. It is raised before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the cross-field rules struct tags cannot express.
// Returns a *ValidationError describing the first violation found.
func (d *PromotionDraft) Validate() error {
	switch d.Kind {
	case DiscountPercent:
		if d.PercentOff <= 0 || d.PercentOff > 100 {
			return &ValidationError{Field: "percent_off", Reason: "must be greater than 0 and at most 100"}
		}
		if d.AmountOff != 0 {
			return &ValidationError{Field: "amount_off", Reason: "must not be set for a percent promotion"}
		}
	case DiscountAmount:
		if d.AmountOff <= 0 {
			return &ValidationError{Field: "amount_off", Reason: "must be greater than 0"}
		}
		if d.PercentOff != 0 {
			return &ValidationError{Field: "percent_off", Reason: "must not be set for an amount promotion"}
		}
	case DiscountFreeShipping:
		if d.PercentOff != 0 || d.AmountOff != 0 {
			return &ValidationError{Field: "kind", Reason: "free_shipping promotions carry no discount value"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: "must be percent, amount or free_shipping"}
	}

	if d.MaxDiscount != nil && *d.MaxDiscount <= 0 {
		return &ValidationError{Field: "max_discount", Reason: "must be greater than 0 when set"}
	}
	if d.MinSubtotal != nil && *d.MinSubtotal < 0 {
		return &ValidationError{Field: "min_subtotal", Reason: "must not be negative"}
	}
	if d.StartsAt != nil && d.EndsAt != nil && d.EndsAt.Before(*d.StartsAt) {
		return &ValidationError{Field: "ends_at", Reason: "must not be before starts_at"}
	}
	if id, ok := firstOverlap(d.IncludedProductIDs, d.ExcludedProductIDs); ok {
		return &ValidationError{Field: "product_ids", Reason: "product " + id + " is both included and excluded"}
	}
	if id, ok := firstOverlap(d.IncludedCategoryIDs, d.ExcludedCategoryIDs); ok {
		return &ValidationError{Field: "category_ids", Reason: "category " + id + " is both included and excluded"}
	}
	return nil
}

// Promotion converts the draft into a Promotion value (no id yet).
func (d *PromotionDraft) Promotion() Promotion {
	return Promotion{
		Key:                 d.Key,
		Name:                d.Name,
		Kind:                d.Kind,
		PercentOff:          d.PercentOff,
		AmountOff:           d.AmountOff,
		MaxDiscount:         d.MaxDiscount,
		MinSubtotal:         d.MinSubtotal,
		AllowOnSale:         d.AllowOnSale,
		FirstOrderOnly:      d.FirstOrderOnly,
		StartsAt:            d.StartsAt,
		EndsAt:              d.EndsAt,
		Active:              d.Active,
		Automatic:           d.Automatic,
		IncludedProductIDs:  d.IncludedProductIDs,
		ExcludedProductIDs:  d.ExcludedProductIDs,
		IncludedCategoryIDs: d.IncludedCategoryIDs,
		ExcludedCategoryIDs: d.ExcludedCategoryIDs,
	}
}

func firstOverlap(a, b []string) (string, bool) {
	if len(a) == 0 || len(b) == 0 {
		return "", false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return id, true
		}
	}
	return "", false
}
