package service

import (
	"context"

	"github.com/couponops/promo-admin/internal/emaillist"
	"github.com/couponops/promo-admin/internal/model"
)

// CouponAPI defines the backend operations for coupons and the direct
// email-list distribution path.
type CouponAPI interface {
	CreateCoupon(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error)
	UpdateCoupon(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error)
	GetCoupon(ctx context.Context, id string) (*model.Coupon, error)
	ListCoupons(ctx context.Context, promotionID, query string) ([]model.Coupon, error)
	BulkEmail(ctx context.Context, couponID string, action model.JobAction, emails []string) (*model.EmailBulkResult, error)
	PreviewSegment(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error)
}

// CouponService provides business logic for coupon management and the
// CSV-driven direct assign/revoke path.
type CouponService struct {
	api CouponAPI
}

// NewCouponService creates a CouponService over the given backend API.
func NewCouponService(api CouponAPI) *CouponService {
	return &CouponService{api: api}
}

// Create validates and stores a new coupon.
func (s *CouponService) Create(ctx context.Context, draft *model.CouponDraft) (*model.Coupon, error) {
	if draft == nil {
		return nil, ErrInvalidRequest
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return s.api.CreateCoupon(ctx, draft)
}

// Update patches a coupon's mutable fields.
func (s *CouponService) Update(ctx context.Context, id string, update *model.CouponUpdate) (*model.Coupon, error) {
	if id == "" || update == nil {
		return nil, ErrInvalidRequest
	}
	return s.api.UpdateCoupon(ctx, id, update)
}

// Get fetches one coupon.
func (s *CouponService) Get(ctx context.Context, id string) (*model.Coupon, error) {
	return s.api.GetCoupon(ctx, id)
}

// List returns coupons filtered by promotion and free-text query.
func (s *CouponService) List(ctx context.Context, promotionID, query string) ([]model.Coupon, error) {
	return s.api.ListCoupons(ctx, promotionID, query)
}

// ParseEmailBatch parses an uploaded CSV/line list into a batch report
// without sending anything to the backend. Used for operator preview; the
// batch is ephemeral and superseded by the next upload.
func (s *CouponService) ParseEmailBatch(text string) *emaillist.Batch {
	return emaillist.Parse(text)
}

// BulkByEmail parses the uploaded list and, when at least one address was
// accepted, performs the direct (non-job) assign or revoke. The batch report
// is returned alongside the result so the operator sees what was rejected.
// An empty accepted list is a validation condition: ErrEmptyEmailBatch is
// returned before any network call.
func (s *CouponService) BulkByEmail(ctx context.Context, couponID string, action model.JobAction, text string) (*model.EmailBulkResult, *emaillist.Batch, error) {
	batch := emaillist.Parse(text)
	if batch.Empty() {
		return nil, batch, ErrEmptyEmailBatch
	}
	result, err := s.api.BulkEmail(ctx, couponID, action, batch.Emails)
	if err != nil {
		return nil, batch, err
	}
	return result, batch, nil
}

// SegmentPreview dry-runs a would-be job against the backend.
func (s *CouponService) SegmentPreview(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error) {
	if couponID == "" || req == nil {
		return nil, ErrInvalidRequest
	}
	return s.api.PreviewSegment(ctx, couponID, req)
}
