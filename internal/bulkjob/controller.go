// Package bulkjob drives asynchronous coupon distribution jobs through their
// backend-owned state machine: submit, poll until terminal, cancel, retry.
// The backend executes the jobs; a Controller only observes snapshots and
// requests transitions.
package bulkjob

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/couponops/promo-admin/internal/metrics"
	"github.com/couponops/promo-admin/internal/model"
)

// RecentLimit bounds the locally tracked most-recent-jobs list. It is a
// display cap only; how long the backend retains old job records is its own
// business.
const RecentLimit = 10

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 2 * time.Second

// JobAPI is the slice of the backend API a Controller needs.
type JobAPI interface {
	CreateJob(ctx context.Context, couponID string, req *model.CreateJobRequest) (*model.BulkJob, error)
	GetJob(ctx context.Context, id string) (*model.BulkJob, error)
	ListJobs(ctx context.Context, couponID string, limit int) ([]model.BulkJob, error)
	CancelJob(ctx context.Context, id string) (*model.BulkJob, error)
	RetryJob(ctx context.Context, id string) (*model.BulkJob, error)
}

// Controller tracks the distribution jobs of one coupon. It owns at most one
// poll loop at a time; the loop is bound to a single job id, so two polls for
// the same job are never in flight together. Teardown via Stop is mandatory
// on every exit path (selection switch, shutdown) so no loop outlives its
// coupon workspace.
type Controller struct {
	api         JobAPI
	couponID    string
	interval    time.Duration
	onSucceeded func(couponID string)

	mu       sync.Mutex
	current  *model.BulkJob
	recent   []model.BulkJob
	stopPoll context.CancelFunc
	wg       sync.WaitGroup
}

// NewController creates a Controller for one coupon. onSucceeded fires once
// per job when a poll observes the transition into succeeded; it is the hook
// dependent views (the assignment list) refresh through. It may be nil.
func NewController(api JobAPI, couponID string, interval time.Duration, onSucceeded func(couponID string)) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Controller{
		api:         api,
		couponID:    couponID,
		interval:    interval,
		onSucceeded: onSucceeded,
	}
}

// CouponID returns the coupon this controller belongs to.
func (c *Controller) CouponID() string {
	return c.couponID
}

// Start submits a new distribution job and begins polling it. The request is
// rejected locally, before any network call, when a job for this coupon is
// still in flight. A creation failure leaves prior state untouched.
func (c *Controller) Start(ctx context.Context, req *model.CreateJobRequest) (*model.BulkJob, error) {
	job, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Watch()
	return job, nil
}

// Submit creates the job and adopts it as current without starting a poll
// loop. Used by the A/B orchestrator, which runs its own shared watch loop.
func (c *Controller) Submit(ctx context.Context, req *model.CreateJobRequest) (*model.BulkJob, error) {
	c.mu.Lock()
	if c.current != nil && c.current.Status.InFlight() {
		c.mu.Unlock()
		return nil, ErrJobInFlight
	}
	c.mu.Unlock()

	job, err := c.api.CreateJob(ctx, c.couponID, req)
	if err != nil {
		return nil, err
	}
	metrics.Get().JobsStartedTotal.WithLabelValues(string(req.Action)).Inc()
	log.Info().
		Str("coupon_id", c.couponID).
		Str("job_id", job.ID).
		Str("action", string(req.Action)).
		Msg("distribution job created")

	c.adopt(job)
	return copyJob(job), nil
}

// Watch starts (or restarts) the poll loop for the currently tracked job.
func (c *Controller) Watch() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	jobID := c.current.ID
	if c.stopPoll != nil {
		c.stopPoll()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopPoll = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				metrics.Get().PollLoopsStoppedTotal.WithLabelValues("teardown").Inc()
				return
			case <-ticker.C:
				if done, reason := c.pollOnce(ctx, jobID); done {
					metrics.Get().PollLoopsStoppedTotal.WithLabelValues(reason).Inc()
					return
				}
			}
		}
	}()
}

// pollOnce fetches one snapshot and reconciles it. done reports that the
// loop should stop, with the reason used for instrumentation.
func (c *Controller) pollOnce(ctx context.Context, jobID string) (done bool, reason string) {
	job, err := c.api.GetJob(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true, "teardown"
		}
		// Transport failure is non-fatal: stop this loop, keep last-known
		// state; the operator recovers visibility via a manual refresh.
		metrics.Get().JobPollsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("job_id", jobID).Msg("job poll failed, stopping poll loop")
		return true, "error"
	}
	metrics.Get().JobPollsTotal.WithLabelValues("ok").Inc()

	applied, terminal := c.apply(job, jobID)
	if !applied {
		// Selection moved on while this poll was in flight; never apply a
		// stale snapshot to another job's view.
		return true, "stale"
	}
	if terminal {
		return true, "terminal"
	}
	return false, ""
}

// Poll performs one manual status fetch of the current job and reconciles
// it, independent of the background loop.
func (c *Controller) Poll(ctx context.Context) (*model.BulkJob, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return nil, ErrNoJob
	}

	job, err := c.api.GetJob(ctx, cur.ID)
	if err != nil {
		metrics.Get().JobPollsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Get().JobPollsTotal.WithLabelValues("ok").Inc()
	c.apply(job, cur.ID)
	return copyJob(job), nil
}

// apply reconciles a fetched snapshot against the tracked job. The snapshot
// is dropped when the tracked job id changed in the meantime.
func (c *Controller) apply(job *model.BulkJob, jobID string) (applied, terminal bool) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != jobID {
		c.mu.Unlock()
		return false, false
	}
	prev := c.current.Status
	c.current = copyJob(job)
	c.upsertRecentLocked(job)
	fire := prev != job.Status && job.Status == model.JobSucceeded
	onSucceeded := c.onSucceeded
	c.mu.Unlock()

	if fire {
		metrics.Get().RefreshesTotal.Inc()
		log.Info().Str("job_id", job.ID).Str("coupon_id", c.couponID).Msg("distribution job succeeded")
		if onSucceeded != nil {
			onSucceeded(c.couponID)
		}
	}
	return true, job.Status.Terminal()
}

// Cancel requests cancellation of the current job. Jobs already terminal are
// rejected locally without a network call. On success the poll loop stops
// and the returned (cancelled) snapshot is adopted; on failure prior state
// is left untouched.
func (c *Controller) Cancel(ctx context.Context) (*model.BulkJob, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return nil, ErrNoJob
	}
	if !cur.Status.InFlight() {
		return nil, ErrNotCancellable
	}

	job, err := c.api.CancelJob(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	metrics.Get().JobCancelsTotal.Inc()
	c.haltPolling()
	c.adopt(job)
	log.Info().Str("job_id", job.ID).Str("coupon_id", c.couponID).Msg("distribution job cancelled")
	return copyJob(job), nil
}

// Retry asks the backend to re-run a failed or cancelled job. The backend
// allocates a brand-new job id; the old record is never mutated. Rejected
// locally when the current job is not retryable or any tracked job for this
// coupon is still in flight.
func (c *Controller) Retry(ctx context.Context) (*model.BulkJob, error) {
	c.mu.Lock()
	cur := c.current
	if cur == nil {
		c.mu.Unlock()
		return nil, ErrNoJob
	}
	if cur.Status != model.JobFailed && cur.Status != model.JobCancelled {
		c.mu.Unlock()
		return nil, ErrNotRetryable
	}
	for i := range c.recent {
		if c.recent[i].Status.InFlight() {
			c.mu.Unlock()
			return nil, ErrJobInFlight
		}
	}
	c.mu.Unlock()

	job, err := c.api.RetryJob(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	metrics.Get().JobRetriesTotal.Inc()
	log.Info().
		Str("old_job_id", cur.ID).
		Str("job_id", job.ID).
		Str("coupon_id", c.couponID).
		Msg("distribution job retried as new job")

	c.adopt(job)
	c.Watch()
	return copyJob(job), nil
}

// Current returns a copy of the tracked job, or nil when none is tracked.
func (c *Controller) Current() *model.BulkJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return copyJob(c.current)
}

// Recent returns up to limit locally tracked jobs, most recent first.
func (c *Controller) Recent(limit int) []model.BulkJob {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.recent)
	if n > limit {
		n = limit
	}
	out := make([]model.BulkJob, n)
	copy(out, c.recent[:n])
	return out
}

// RefreshRecent re-fetches the recent-jobs list from the backend. This is
// the manual recovery path after a poll loop stopped on a transport failure.
func (c *Controller) RefreshRecent(ctx context.Context) ([]model.BulkJob, error) {
	jobs, err := c.api.ListJobs(ctx, c.couponID, RecentLimit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.recent = jobs
	if len(c.recent) > RecentLimit {
		c.recent = c.recent[:RecentLimit]
	}
	if c.current != nil {
		for i := range jobs {
			if jobs[i].ID == c.current.ID {
				c.current = copyJob(&jobs[i])
				break
			}
		}
	}
	out := make([]model.BulkJob, len(c.recent))
	copy(out, c.recent)
	c.mu.Unlock()
	return out, nil
}

// Stop tears down the poll loop and waits for it to exit. Safe to call
// multiple times and on a controller that never polled.
func (c *Controller) Stop() {
	c.haltPolling()
	c.wg.Wait()
}

func (c *Controller) haltPolling() {
	c.mu.Lock()
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
	c.mu.Unlock()
}

func (c *Controller) adopt(job *model.BulkJob) {
	c.mu.Lock()
	c.current = copyJob(job)
	c.upsertRecentLocked(job)
	c.mu.Unlock()
}

// upsertRecentLocked promotes the job to the front of the recent list,
// replacing any entry with the same id. Caller holds c.mu.
func (c *Controller) upsertRecentLocked(job *model.BulkJob) {
	for i := range c.recent {
		if c.recent[i].ID == job.ID {
			c.recent = append(c.recent[:i], c.recent[i+1:]...)
			break
		}
	}
	c.recent = append([]model.BulkJob{*job}, c.recent...)
	if len(c.recent) > RecentLimit {
		c.recent = c.recent[:RecentLimit]
	}
}

func copyJob(job *model.BulkJob) *model.BulkJob {
	cp := *job
	return &cp
}
