// Package integration contains end-to-end flow tests for the admin gateway's
// orchestration layer. They run against an in-process fake of the storefront
// backend API, so no external infrastructure is required:
//
//	go test -v -race ./tests/integration/...
//
// The fake advances every distribution job one lifecycle step per status
// fetch (pending -> running -> succeeded), which lets tests drive the poll
// state machine deterministically.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couponops/promo-admin/internal/backend"
	"github.com/couponops/promo-admin/internal/model"
	"github.com/couponops/promo-admin/pkg/apiclient"
)

type fakeBackend struct {
	srv *httptest.Server

	mu        sync.Mutex
	promos    map[string]model.Promotion
	coupons   map[string]model.Coupon
	jobs      map[string]*model.BulkJob
	assigned  map[string]map[string]bool // couponID -> active email set
	promoSeq  int
	couponSeq int
	jobSeq    int

	// failNextPolls makes the next N job status fetches return 500, which is
	// how tests exercise the stop-on-transport-failure path.
	failNextPolls atomic.Int32
	// nextJobFails marks freshly created jobs to finish as failed.
	nextJobFails atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		promos:   make(map[string]model.Promotion),
		coupons:  make(map[string]model.Coupon),
		jobs:     make(map[string]*model.BulkJob),
		assigned: make(map[string]map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/promotions", fb.createPromotion)
	mux.HandleFunc("GET /api/promotions", fb.listPromotions)
	mux.HandleFunc("PUT /api/promotions/{id}", fb.updatePromotion)

	mux.HandleFunc("POST /api/coupons", fb.createCoupon)
	mux.HandleFunc("GET /api/coupons", fb.listCoupons)
	mux.HandleFunc("GET /api/coupons/{id}", fb.getCoupon)
	mux.HandleFunc("POST /api/coupons/{id}/bulk-email", fb.bulkEmail)
	mux.HandleFunc("GET /api/coupons/{id}/analytics", fb.couponAnalytics)
	mux.HandleFunc("POST /api/coupons/{id}/segment-preview", fb.segmentPreview)
	mux.HandleFunc("POST /api/coupons/{id}/jobs", fb.createJob)
	mux.HandleFunc("GET /api/coupons/{id}/jobs", fb.listJobs)

	mux.HandleFunc("GET /api/jobs/{id}", fb.getJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", fb.cancelJob)
	mux.HandleFunc("POST /api/jobs/{id}/retry", fb.retryJob)

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

// client returns a typed backend client pointed at the fake.
func (fb *fakeBackend) client() *backend.Client {
	return backend.New(apiclient.New(fb.srv.URL, 5*time.Second))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (fb *fakeBackend) createPromotion(w http.ResponseWriter, r *http.Request) {
	var p model.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	fb.mu.Lock()
	fb.promoSeq++
	p.ID = fmt.Sprintf("promo-%d", fb.promoSeq)
	fb.promos[p.ID] = p
	fb.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (fb *fakeBackend) updatePromotion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p model.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if _, ok := fb.promos[id]; !ok {
		writeError(w, http.StatusNotFound, "promotion not found")
		return
	}
	p.ID = id
	fb.promos[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (fb *fakeBackend) listPromotions(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	out := make([]model.Promotion, 0, len(fb.promos))
	for _, p := range fb.promos {
		out = append(out, p)
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) createCoupon(w http.ResponseWriter, r *http.Request) {
	var c model.Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	fb.mu.Lock()
	fb.couponSeq++
	c.ID = fmt.Sprintf("coupon-%d", fb.couponSeq)
	fb.coupons[c.ID] = c
	fb.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (fb *fakeBackend) getCoupon(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	c, ok := fb.coupons[r.PathValue("id")]
	fb.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (fb *fakeBackend) listCoupons(w http.ResponseWriter, r *http.Request) {
	promoID := r.URL.Query().Get("promotion_id")
	q := strings.ToUpper(r.URL.Query().Get("q"))
	fb.mu.Lock()
	out := make([]model.Coupon, 0, len(fb.coupons))
	for _, c := range fb.coupons {
		if promoID != "" && c.PromotionID != promoID {
			continue
		}
		if q != "" && !strings.Contains(c.Code, q) {
			continue
		}
		out = append(out, c)
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) bulkEmail(w http.ResponseWriter, r *http.Request) {
	couponID := r.PathValue("id")
	var req struct {
		Action model.JobAction `json:"action"`
		Emails []string        `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if _, ok := fb.coupons[couponID]; !ok {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}
	set := fb.assigned[couponID]
	if set == nil {
		set = make(map[string]bool)
		fb.assigned[couponID] = set
	}

	var result model.EmailBulkResult
	for _, email := range req.Emails {
		switch req.Action {
		case model.ActionAssign:
			if set[email] {
				result.AlreadyActive++
			} else {
				set[email] = true
				result.Created++
			}
		case model.ActionRevoke:
			if set[email] {
				delete(set, email)
				result.Revoked++
			} else {
				result.NotAssigned++
			}
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (fb *fakeBackend) couponAnalytics(w http.ResponseWriter, r *http.Request) {
	couponID := r.PathValue("id")
	fb.mu.Lock()
	assigned := len(fb.assigned[couponID])
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, model.CouponAnalytics{
		CouponID:    couponID,
		WindowDays:  30,
		Assigned:    assigned,
		Redemptions: assigned / 2,
	})
}

func (fb *fakeBackend) segmentPreview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.SegmentPreview{
		TotalCandidates: 240,
		SampleEmails:    []string{"sample@example.com"},
	})
}

func (fb *fakeBackend) createJob(w http.ResponseWriter, r *http.Request) {
	couponID := r.PathValue("id")
	if r.Header.Get("Idempotency-Key") == "" {
		writeError(w, http.StatusBadRequest, "missing idempotency key")
		return
	}
	var req model.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if _, ok := fb.coupons[couponID]; !ok {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}
	job := fb.newJobLocked(couponID, req.Action, req.Filters, req.Bucket)
	writeJSON(w, http.StatusCreated, job)
}

// newJobLocked allocates a pending job. Caller holds fb.mu.
func (fb *fakeBackend) newJobLocked(couponID string, action model.JobAction, filters model.SegmentFilters, bucket *model.BucketPartition) *model.BulkJob {
	fb.jobSeq++
	job := &model.BulkJob{
		ID:        fmt.Sprintf("job-%d", fb.jobSeq),
		CouponID:  couponID,
		Action:    action,
		Status:    model.JobPending,
		Filters:   filters,
		Bucket:    bucket,
		Counters:  model.JobCounters{TotalCandidates: 120},
		CreatedAt: time.Now().UTC(),
	}
	fb.jobs[job.ID] = job
	return job
}

func (fb *fakeBackend) getJob(w http.ResponseWriter, r *http.Request) {
	if fb.failNextPolls.Load() > 0 {
		fb.failNextPolls.Add(-1)
		writeError(w, http.StatusInternalServerError, "transient backend failure")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	job, ok := fb.jobs[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	// One lifecycle step per fetch.
	switch job.Status {
	case model.JobPending:
		job.Status = model.JobRunning
		now := time.Now().UTC()
		job.StartedAt = &now
		job.Counters.Processed = job.Counters.TotalCandidates / 2
	case model.JobRunning:
		now := time.Now().UTC()
		job.FinishedAt = &now
		job.Counters.Processed = job.Counters.TotalCandidates
		if fb.nextJobFails.Load() {
			job.Status = model.JobFailed
			job.Error = "segment service timeout"
		} else {
			job.Status = model.JobSucceeded
			job.Counters.Created = job.Counters.TotalCandidates
		}
	}
	writeJSON(w, http.StatusOK, job)
}

func (fb *fakeBackend) listJobs(w http.ResponseWriter, r *http.Request) {
	couponID := r.PathValue("id")
	fb.mu.Lock()
	out := make([]model.BulkJob, 0)
	for _, job := range fb.jobs {
		if job.CouponID == couponID {
			out = append(out, *job)
		}
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) cancelJob(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	job, ok := fb.jobs[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, "job already terminal")
		return
	}
	job.Status = model.JobCancelled
	now := time.Now().UTC()
	job.FinishedAt = &now
	writeJSON(w, http.StatusOK, job)
}

func (fb *fakeBackend) retryJob(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	old, ok := fb.jobs[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if old.Status != model.JobFailed && old.Status != model.JobCancelled {
		writeError(w, http.StatusConflict, "job is not retryable")
		return
	}
	job := fb.newJobLocked(old.CouponID, old.Action, old.Filters, old.Bucket)
	writeJSON(w, http.StatusCreated, job)
}
