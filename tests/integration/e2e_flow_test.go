package integration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couponops/promo-admin/internal/abtest"
	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/model"
	"github.com/couponops/promo-admin/internal/service"
)

const pollEvery = 10 * time.Millisecond

// TestE2E_PromotionCouponBulkJobFlow walks the full operator journey:
// 1. Create a promotion
// 2. Create an assigned-visibility coupon under it
// 3. Direct-assign a pasted email list (with rejects) to the coupon
// 4. Start a segment distribution job and poll it to completion
// 5. Verify the dependent refresh hook fired exactly once
func TestE2E_PromotionCouponBulkJobFlow(t *testing.T) {
	fb := newFakeBackend(t)
	api := fb.client()
	ctx := context.Background()

	promoSvc := service.NewPromotionService(api)
	promo, err := promoSvc.Create(ctx, &model.PromotionDraft{
		Name:       "Summer Sale",
		Kind:       model.DiscountPercent,
		PercentOff: 15,
		Active:     true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, promo.ID)

	couponSvc := service.NewCouponService(api)
	coupon, err := couponSvc.Create(ctx, &model.CouponDraft{
		PromotionID: promo.ID,
		Code:        "SUMMER-15",
		Visibility:  model.VisibilityAssigned,
		Active:      true,
	})
	require.NoError(t, err)

	// Paste with a header line, a duplicate and an invalid address.
	text := "email\nanna@example.com\nANNA@example.com\nnot-an-email\nbert@example.com\n"
	result, batch, err := couponSvc.BulkByEmail(ctx, coupon.ID, model.ActionAssign, text)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, batch.Duplicates)
	assert.Equal(t, []string{"not-an-email"}, batch.Invalid)

	var refreshes atomic.Int32
	registry := bulkjob.NewRegistry(api, pollEvery, func(couponID string) {
		refreshes.Add(1)
	})
	defer registry.StopAll()

	ctrl := registry.Controller(coupon.ID)
	created, err := ctrl.Start(ctx, &model.CreateJobRequest{
		Action:  model.ActionAssign,
		Filters: model.SegmentFilters{RequireMarketingOptIn: true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, created.Status)

	require.Eventually(t, func() bool {
		cur := ctrl.Current()
		return cur != nil && cur.Status == model.JobSucceeded
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), refreshes.Load(), "one refresh per succeeded job")
	cur := ctrl.Current()
	assert.Equal(t, cur.Counters.TotalCandidates, cur.Counters.Processed)
}

// TestE2E_PollFailureRecoversViaRefresh exercises the transport-failure path:
// a failed status fetch stops the poll loop without discarding state, and a
// manual refresh plus polls restore visibility.
func TestE2E_PollFailureRecoversViaRefresh(t *testing.T) {
	fb := newFakeBackend(t)
	api := fb.client()
	ctx := context.Background()

	couponSvc := service.NewCouponService(api)
	coupon, err := couponSvc.Create(ctx, &model.CouponDraft{
		PromotionID: "promo-x",
		Code:        "RECOVER-1",
		Visibility:  model.VisibilityAssigned,
	})
	require.NoError(t, err)

	registry := bulkjob.NewRegistry(api, pollEvery, nil)
	defer registry.StopAll()
	ctrl := registry.Controller(coupon.ID)

	fb.failNextPolls.Store(1)
	created, err := ctrl.Start(ctx, &model.CreateJobRequest{Action: model.ActionAssign})
	require.NoError(t, err)

	// The first poll fails; the loop stops and the pending snapshot stays.
	time.Sleep(10 * pollEvery)
	cur := ctrl.Current()
	require.NotNil(t, cur)
	assert.Equal(t, model.JobPending, cur.Status, "last-known state survives the failed poll")

	// Manual recovery: refresh the list, then poll the job forward.
	_, err = ctrl.RefreshRecent(ctx)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = ctrl.Poll(ctx)
		require.NoError(t, err)
	}

	cur = ctrl.Current()
	assert.Equal(t, created.ID, cur.ID)
	assert.Equal(t, model.JobSucceeded, cur.Status)
}

// TestE2E_CancelThenRetryAllocatesNewJob drives cancel and retry through the
// backend: retry never reuses the old job id.
func TestE2E_CancelThenRetryAllocatesNewJob(t *testing.T) {
	fb := newFakeBackend(t)
	api := fb.client()
	ctx := context.Background()

	couponSvc := service.NewCouponService(api)
	coupon, err := couponSvc.Create(ctx, &model.CouponDraft{
		PromotionID: "promo-x",
		Code:        "RETRY-1",
		Visibility:  model.VisibilityAssigned,
	})
	require.NoError(t, err)

	registry := bulkjob.NewRegistry(api, time.Hour, nil)
	defer registry.StopAll()
	ctrl := registry.Controller(coupon.ID)

	created, err := ctrl.Start(ctx, &model.CreateJobRequest{Action: model.ActionRevoke})
	require.NoError(t, err)

	cancelled, err := ctrl.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, cancelled.ID)
	assert.Equal(t, model.JobCancelled, cancelled.Status)

	retried, err := ctrl.Retry(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, retried.ID, "retry allocates a brand-new job")
	assert.Equal(t, model.ActionRevoke, retried.Action)

	// Drive the new job to completion manually; the hour-long interval keeps
	// the background loop out of the picture.
	for i := 0; i < 2; i++ {
		_, err = ctrl.Poll(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, model.JobSucceeded, ctrl.Current().Status)

	recent := ctrl.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, retried.ID, recent[0].ID)
	assert.Equal(t, model.JobCancelled, recent[1].Status, "old record kept as-is")
}

// TestE2E_ABTestFlow runs a full A/B pair against the fake backend: both
// sides carry the shared seed with complementary buckets, both finish, and
// completion fires exactly once.
func TestE2E_ABTestFlow(t *testing.T) {
	fb := newFakeBackend(t)
	api := fb.client()
	ctx := context.Background()

	couponSvc := service.NewCouponService(api)
	couponA, err := couponSvc.Create(ctx, &model.CouponDraft{
		PromotionID: "promo-x", Code: "VARIANT-A", Visibility: model.VisibilityAssigned,
	})
	require.NoError(t, err)
	couponB, err := couponSvc.Create(ctx, &model.CouponDraft{
		PromotionID: "promo-x", Code: "VARIANT-B", Visibility: model.VisibilityAssigned,
	})
	require.NoError(t, err)

	var completions atomic.Int32
	manager := abtest.NewManager(api, pollEvery, func(pairID string) {
		completions.Add(1)
	})
	defer manager.StopAll()

	run, err := manager.Start(ctx, couponA.ID, couponB.ID, model.SegmentFilters{RequireEmailVerified: true}, "")
	require.NoError(t, err)

	snap := run.Snapshot()
	require.NotNil(t, snap.JobA)
	require.NotNil(t, snap.JobB)
	require.NotNil(t, snap.JobA.Bucket)
	require.NotNil(t, snap.JobB.Bucket)
	assert.Equal(t, abtest.DefaultSeed(couponA.ID, couponB.ID), snap.Seed)
	assert.Equal(t, snap.JobA.Bucket.Seed, snap.JobB.Bucket.Seed)
	assert.NotEqual(t, snap.JobA.Bucket.Index, snap.JobB.Bucket.Index, "complementary halves")

	require.Eventually(t, func() bool {
		return run.Snapshot().Done
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), completions.Load())

	comparison, err := run.Analytics(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, couponA.ID, comparison.A.CouponID)
	assert.Equal(t, couponB.ID, comparison.B.CouponID)
}
