package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/couponops/promo-admin/internal/model"
)

// CreateJob asks the backend to create a bulk distribution job for a coupon.
// A client-generated idempotency key shields against double submission when
// the gateway retries a request whose response was lost.
func (c *Client) CreateJob(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.BulkJob, error) {
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())

	var out model.BulkJob
	path := "/api/coupons/" + url.PathEscape(couponID) + "/jobs"
	if err := c.api.Do(ctx, http.MethodPost, path, req, &out, header); err != nil {
		return nil, fmt.Errorf("create %s job for coupon %s: %w", req.Action, couponID, err)
	}
	return &out, nil
}

// GetJob fetches the current snapshot of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*model.BulkJob, error) {
	var out model.BulkJob
	if err := c.api.Get(ctx, "/api/jobs/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &out, nil
}

// ListJobs returns the most recent jobs for a coupon, newest first.
func (c *Client) ListJobs(ctx context.Context, couponID string, limit int) ([]model.BulkJob, error) {
	path := "/api/coupons/" + url.PathEscape(couponID) + "/jobs?limit=" + strconv.Itoa(limit)
	var out []model.BulkJob
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list jobs for coupon %s: %w", couponID, err)
	}
	return out, nil
}

// CancelJob requests cancellation and returns the resulting snapshot.
func (c *Client) CancelJob(ctx context.Context, id string) (*model.BulkJob, error) {
	var out model.BulkJob
	if err := c.api.Post(ctx, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, &out); err != nil {
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	return &out, nil
}

// RetryJob asks the backend to re-run a failed or cancelled job. The backend
// allocates a brand-new job; the old record is left untouched.
func (c *Client) RetryJob(ctx context.Context, id string) (*model.BulkJob, error) {
	var out model.BulkJob
	if err := c.api.Post(ctx, "/api/jobs/"+url.PathEscape(id)+"/retry", nil, &out); err != nil {
		return nil, fmt.Errorf("retry job %s: %w", id, err)
	}
	return &out, nil
}

// PreviewSegment dry-runs a would-be job: how many customers match the
// filters (and bucket, when set) plus a small sample of emails.
func (c *Client) PreviewSegment(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.SegmentPreview, error) {
	var out model.SegmentPreview
	path := "/api/coupons/" + url.PathEscape(couponID) + "/segment-preview"
	if err := c.api.Post(ctx, path, req, &out); err != nil {
		return nil, fmt.Errorf("segment preview for coupon %s: %w", couponID, err)
	}
	return &out, nil
}
