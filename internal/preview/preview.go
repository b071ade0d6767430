// Package preview estimates the monetary effect of a promotion against a
// sample subtotal. The number is advisory operator feedback only; the real
// discount is computed and enforced by the storefront backend at checkout.
package preview

import (
	"math"

	"github.com/couponops/promo-admin/internal/model"
)

// Estimate returns the approximate discount a promotion would grant on the
// given sample subtotal, rounded to currency granularity.
// ok is false for free_shipping promotions, which have no monetary product
// discount to show.
func Estimate(p *model.Promotion, sampleSubtotal float64, assumeAllOnSale bool) (amount float64, ok bool) {
	if p.Kind == model.DiscountFreeShipping {
		return 0, false
	}
	if sampleSubtotal <= 0 {
		return 0, true
	}
	if p.MinSubtotal != nil && sampleSubtotal < *p.MinSubtotal {
		return 0, true
	}
	if assumeAllOnSale && !p.AllowOnSale {
		return 0, true
	}

	var discount float64
	switch p.Kind {
	case model.DiscountPercent:
		discount = sampleSubtotal * p.PercentOff / 100
	case model.DiscountAmount:
		discount = math.Min(p.AmountOff, sampleSubtotal)
	default:
		return 0, true
	}

	if p.MaxDiscount != nil && discount > *p.MaxDiscount {
		discount = *p.MaxDiscount
	}
	// A discount never exceeds the base it applies to.
	if discount > sampleSubtotal {
		discount = sampleSubtotal
	}
	return round2(discount), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
