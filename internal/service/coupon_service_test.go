package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couponops/promo-admin/internal/model"
)

// mockCouponAPI is a mock implementation of CouponAPI.
type mockCouponAPI struct {
	createFn    func(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error)
	updateFn    func(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error)
	getFn       func(ctx context.Context, id string) (*model.Coupon, error)
	listFn      func(ctx context.Context, promotionID, query string) ([]model.Coupon, error)
	bulkEmailFn func(ctx context.Context, couponID string, action model.JobAction, emails []string) (*model.EmailBulkResult, error)
	previewFn   func(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error)

	bulkEmailCalls atomic.Int32
}

func (m *mockCouponAPI) CreateCoupon(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, draft)
	}
	return &model.Coupon{ID: "c-1", PromotionID: draft.PromotionID, Code: draft.Code, Visibility: draft.Visibility}, nil
}

func (m *mockCouponAPI) UpdateCoupon(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponAPI) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponAPI) ListCoupons(ctx context.Context, promotionID, query string) ([]model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx, promotionID, query)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponAPI) BulkEmail(ctx context.Context, couponID string, action model.JobAction, emails []string) (*model.EmailBulkResult, error) {
	m.bulkEmailCalls.Add(1)
	if m.bulkEmailFn != nil {
		return m.bulkEmailFn(ctx, couponID, action, emails)
	}
	return &model.EmailBulkResult{Created: len(emails)}, nil
}

func (m *mockCouponAPI) PreviewSegment(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error) {
	if m.previewFn != nil {
		return m.previewFn(ctx, couponID, req)
	}
	return &model.SegmentPreview{}, nil
}

func TestCouponService_CreateValidatesDateWindow(t *testing.T) {
	svc := NewCouponService(&mockCouponAPI{})

	created, err := svc.Create(context.Background(), &model.CouponDraft{
		PromotionID: "promo-1",
		Code:        "SUMMER-15",
		Visibility:  model.VisibilityAssigned,
	})

	require.NoError(t, err)
	assert.Equal(t, "c-1", created.ID)
}

func TestCouponService_ParseEmailBatch(t *testing.T) {
	svc := NewCouponService(&mockCouponAPI{})

	batch := svc.ParseEmailBatch("a@example.com\nnot-an-email\na@example.com\n")

	assert.Equal(t, []string{"a@example.com"}, batch.Emails)
	assert.Equal(t, []string{"not-an-email"}, batch.Invalid)
	assert.Equal(t, 1, batch.Duplicates)
}

func TestCouponService_BulkByEmail(t *testing.T) {
	var gotEmails []string
	api := &mockCouponAPI{
		bulkEmailFn: func(ctx context.Context, couponID string, action model.JobAction, emails []string) (*model.EmailBulkResult, error) {
			gotEmails = emails
			return &model.EmailBulkResult{Created: len(emails)}, nil
		},
	}
	svc := NewCouponService(api)

	result, batch, err := svc.BulkByEmail(context.Background(), "c-1", model.ActionAssign, "A@x.com\nb@y.com\nbad\n")

	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, gotEmails, "addresses are normalized before sending")
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, []string{"bad"}, batch.Invalid, "rejects reported alongside the result")
}

func TestCouponService_BulkByEmailEmptyBatchStaysLocal(t *testing.T) {
	api := &mockCouponAPI{}
	svc := NewCouponService(api)

	_, batch, err := svc.BulkByEmail(context.Background(), "c-1", model.ActionAssign, "bad\nworse\n")

	assert.ErrorIs(t, err, ErrEmptyEmailBatch)
	assert.Len(t, batch.Invalid, 2)
	assert.Equal(t, int32(0), api.bulkEmailCalls.Load(), "nothing sent for an empty accepted list")
}

func TestCouponService_SegmentPreviewRequiresRequest(t *testing.T) {
	svc := NewCouponService(&mockCouponAPI{})

	_, err := svc.SegmentPreview(context.Background(), "c-1", nil)

	assert.ErrorIs(t, err, ErrInvalidRequest)
}
