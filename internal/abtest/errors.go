package abtest

import (
	"errors"
	"fmt"
)

var (
	// ErrSameCoupon is returned when both sides of a pair name the same coupon
	ErrSameCoupon = errors.New("A/B sides must be two different coupons")

	// ErrPublicCoupon is returned when a side's coupon is publicly visible.
	// Public coupons cannot be bucketed deterministically against a segment,
	// so they are excluded from A/B distribution.
	ErrPublicCoupon = errors.New("A/B distribution requires assigned-visibility coupons")

	// ErrAlreadyStarted is returned when a pair is started twice
	ErrAlreadyStarted = errors.New("this A/B pair has already been started")

	// ErrNotFound is returned when no run exists for a pair id
	ErrNotFound = errors.New("A/B run not found")
)

// PartialStartError reports that one side's job was accepted while the other
// side's creation failed. The accepted job is left running; there is no
// automatic rollback, the operator must follow up manually.
type PartialStartError struct {
	AcceptedCouponID string
	FailedCouponID   string
	Err              error
}

func (e *PartialStartError) Error() string {
	return fmt.Sprintf("partial A/B start: job for coupon %s was accepted and is left running, but coupon %s failed: %v",
		e.AcceptedCouponID, e.FailedCouponID, e.Err)
}

func (e *PartialStartError) Unwrap() error {
	return e.Err
}
