package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponDraft_Validate(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	valid := CouponDraft{PromotionID: "promo-1", Code: "SUMMER-15", Visibility: VisibilityAssigned, StartsAt: &start, EndsAt: &end}
	assert.NoError(t, valid.Validate())

	inverted := CouponDraft{PromotionID: "promo-1", Code: "SUMMER-15", Visibility: VisibilityAssigned, StartsAt: &end, EndsAt: &start}
	var verr *ValidationError
	require.ErrorAs(t, inverted.Validate(), &verr)
	assert.Equal(t, "ends_at", verr.Field)
}

func TestJobStatus_Lifecycle(t *testing.T) {
	assert.True(t, JobPending.InFlight())
	assert.True(t, JobRunning.InFlight())
	assert.False(t, JobSucceeded.InFlight())

	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCancelled.Terminal())
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
}
