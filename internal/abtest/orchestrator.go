// Package abtest coordinates two coupon distribution jobs as one controlled
// experiment: a shared seed with complementary bucket indices splits the
// segment into disjoint halves, one per coupon.
package abtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/metrics"
	"github.com/couponops/promo-admin/internal/model"
)

// AnalyticsAPI is the read-only analytics slice of the backend API.
type AnalyticsAPI interface {
	CouponAnalytics(ctx context.Context, couponID string, days int) (*model.CouponAnalytics, error)
}

// Status is a point-in-time snapshot of an A/B run.
type Status struct {
	ID        string         `json:"id"`
	CouponAID string         `json:"coupon_a_id"`
	CouponBID string         `json:"coupon_b_id"`
	Seed      string         `json:"seed"`
	JobA      *model.BulkJob `json:"job_a"`
	JobB      *model.BulkJob `json:"job_b"`
	Done      bool           `json:"done"`
}

// Comparison pairs both sides' analytics over a shared lookback window.
type Comparison struct {
	WindowDays int                    `json:"window_days"`
	A          *model.CouponAnalytics `json:"a"`
	B          *model.CouponAnalytics `json:"b"`
}

// Orchestrator runs one A/B pair. It owns two bulkjob Controllers and a
// single watch loop that re-polls only the sides that have not reached a
// terminal state; once both are terminal it stops and triggers exactly one
// dependent refresh.
type Orchestrator struct {
	id         string
	a, b       *bulkjob.Controller
	analytics  AnalyticsAPI
	interval   time.Duration
	onComplete func()

	mu        sync.Mutex
	couponA   model.Coupon
	couponB   model.Coupon
	seed      string
	started   bool
	done      bool
	stopWatch context.CancelFunc
	wg        sync.WaitGroup
}

// DefaultSeed derives the reproducible fallback seed for a pairing, so that
// re-running the same two coupons without an explicit seed buckets customers
// identically.
func DefaultSeed(couponAID, couponBID string) string {
	return couponAID + ":" + couponBID
}

// New assembles an orchestrator from two per-coupon controllers. The
// controllers must not run their own poll loops; the orchestrator polls.
func New(id string, a, b *bulkjob.Controller, analytics AnalyticsAPI, interval time.Duration, onComplete func()) *Orchestrator {
	if interval <= 0 {
		interval = bulkjob.DefaultPollInterval
	}
	return &Orchestrator{
		id:         id,
		a:          a,
		b:          b,
		analytics:  analytics,
		interval:   interval,
		onComplete: onComplete,
	}
}

// ID returns the pair id.
func (o *Orchestrator) ID() string {
	return o.id
}

// Start validates the pairing, submits both assign jobs concurrently with
// identical filters and seed and complementary bucket indices, then begins
// the shared watch loop. Precondition violations are rejected before any
// job request is sent. When exactly one side is accepted the error is a
// *PartialStartError and the accepted side keeps running under its own
// controller's poll loop.
func (o *Orchestrator) Start(ctx context.Context, couponA, couponB *model.Coupon, filters model.SegmentFilters, seed string) error {
	if couponA.ID == couponB.ID {
		return ErrSameCoupon
	}
	if couponA.Visibility != model.VisibilityAssigned {
		return fmt.Errorf("%w: coupon %s is %s", ErrPublicCoupon, couponA.Code, couponA.Visibility)
	}
	if couponB.Visibility != model.VisibilityAssigned {
		return fmt.Errorf("%w: coupon %s is %s", ErrPublicCoupon, couponB.Code, couponB.Visibility)
	}

	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	if seed == "" {
		seed = DefaultSeed(couponA.ID, couponB.ID)
	}
	o.started = true
	o.seed = seed
	o.couponA = *couponA
	o.couponB = *couponB
	o.mu.Unlock()

	request := func(index int) *model.CreateJobRequest {
		return &model.CreateJobRequest{
			Action:  model.ActionAssign,
			Filters: filters,
			Bucket:  &model.BucketPartition{Total: 2, Index: index, Seed: seed},
		}
	}

	var (
		wg         sync.WaitGroup
		errA, errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = o.a.Submit(ctx, request(0))
	}()
	go func() {
		defer wg.Done()
		_, errB = o.b.Submit(ctx, request(1))
	}()
	wg.Wait()

	switch {
	case errA != nil && errB != nil:
		o.reset()
		return fmt.Errorf("A/B start failed on both sides (%v): %w", errA, errB)
	case errA != nil:
		o.reset()
		o.b.Watch()
		return &PartialStartError{AcceptedCouponID: couponB.ID, FailedCouponID: couponA.ID, Err: errA}
	case errB != nil:
		o.reset()
		o.a.Watch()
		return &PartialStartError{AcceptedCouponID: couponA.ID, FailedCouponID: couponB.ID, Err: errB}
	}

	metrics.Get().ABTestsStartedTotal.Inc()
	log.Info().
		Str("pair_id", o.id).
		Str("coupon_a", couponA.ID).
		Str("coupon_b", couponB.ID).
		Str("seed", seed).
		Msg("A/B distribution pair started")
	o.watch()
	return nil
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	o.started = false
	o.mu.Unlock()
}

func (o *Orchestrator) watch() {
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.stopWatch = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if o.tick(ctx) {
					return
				}
			}
		}
	}()
}

// tick re-polls only non-terminal sides. Returns true once the loop should
// stop, either because both sides are terminal or a poll failed.
func (o *Orchestrator) tick(ctx context.Context) bool {
	aTerm := sideTerminal(o.a)
	bTerm := sideTerminal(o.b)

	if !aTerm {
		if _, err := o.a.Poll(ctx); err != nil {
			log.Warn().Err(err).Str("pair_id", o.id).Msg("A-side poll failed, stopping A/B watch")
			return true
		}
		aTerm = sideTerminal(o.a)
	}
	if !bTerm {
		if _, err := o.b.Poll(ctx); err != nil {
			log.Warn().Err(err).Str("pair_id", o.id).Msg("B-side poll failed, stopping A/B watch")
			return true
		}
		bTerm = sideTerminal(o.b)
	}
	if !aTerm || !bTerm {
		return false
	}

	o.mu.Lock()
	already := o.done
	o.done = true
	onComplete := o.onComplete
	o.mu.Unlock()

	if !already {
		metrics.Get().RefreshesTotal.Inc()
		log.Info().Str("pair_id", o.id).Msg("A/B distribution pair completed")
		if onComplete != nil {
			onComplete()
		}
	}
	return true
}

func sideTerminal(c *bulkjob.Controller) bool {
	job := c.Current()
	return job != nil && job.Status.Terminal()
}

// Snapshot returns the current state of the run.
func (o *Orchestrator) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		ID:        o.id,
		CouponAID: o.couponA.ID,
		CouponBID: o.couponB.ID,
		Seed:      o.seed,
		JobA:      o.a.Current(),
		JobB:      o.b.Current(),
		Done:      o.done,
	}
}

// Analytics fetches both sides' per-coupon analytics over a shared lookback
// window. Read-only; independent of the job state machine.
func (o *Orchestrator) Analytics(ctx context.Context, days int) (*Comparison, error) {
	o.mu.Lock()
	aID, bID := o.couponA.ID, o.couponB.ID
	o.mu.Unlock()

	var (
		wg         sync.WaitGroup
		a, b       *model.CouponAnalytics
		errA, errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		a, errA = o.analytics.CouponAnalytics(ctx, aID, days)
	}()
	go func() {
		defer wg.Done()
		b, errB = o.analytics.CouponAnalytics(ctx, bID, days)
	}()
	wg.Wait()

	if errA != nil {
		return nil, errA
	}
	if errB != nil {
		return nil, errB
	}
	return &Comparison{WindowDays: days, A: a, B: b}, nil
}

// Stop tears down the watch loop and both side controllers.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopWatch != nil {
		o.stopWatch()
		o.stopWatch = nil
	}
	o.mu.Unlock()
	o.wg.Wait()
	o.a.Stop()
	o.b.Stop()
}
