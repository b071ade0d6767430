package abtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/model"
)

// API is the backend surface the manager needs: job control for both sides,
// coupon lookups for precondition checks, and analytics.
type API interface {
	bulkjob.JobAPI
	GetCoupon(ctx context.Context, id string) (*model.Coupon, error)
	CouponAnalytics(ctx context.Context, couponID string, days int) (*model.CouponAnalytics, error)
}

// Manager tracks active A/B runs by pair id and owns their teardown.
type Manager struct {
	api        API
	interval   time.Duration
	onComplete func(pairID string)

	mu   sync.Mutex
	runs map[string]*Orchestrator
}

// NewManager creates an empty manager. onComplete fires once per run when
// both sides reach a terminal state.
func NewManager(api API, interval time.Duration, onComplete func(pairID string)) *Manager {
	return &Manager{
		api:        api,
		interval:   interval,
		onComplete: onComplete,
		runs:       make(map[string]*Orchestrator),
	}
}

// Start resolves both coupons, builds a fresh orchestrator under a new pair
// id and starts it. On a partial start the run is still returned (and kept
// tracked) alongside the *PartialStartError so the operator can follow up.
func (m *Manager) Start(ctx context.Context, couponAID, couponBID string, filters model.SegmentFilters, seed string) (*Orchestrator, error) {
	couponA, err := m.api.GetCoupon(ctx, couponAID)
	if err != nil {
		return nil, err
	}
	couponB, err := m.api.GetCoupon(ctx, couponBID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	// Dedicated controllers with no per-job refresh hook: the pair triggers
	// one refresh when both sides finish, not one per side.
	a := bulkjob.NewController(m.api, couponAID, m.interval, nil)
	b := bulkjob.NewController(m.api, couponBID, m.interval, nil)
	o := New(id, a, b, m.api, m.interval, func() {
		if m.onComplete != nil {
			m.onComplete(id)
		}
	})

	if err := o.Start(ctx, couponA, couponB, filters, seed); err != nil {
		var partial *PartialStartError
		if errors.As(err, &partial) {
			m.track(o)
			return o, err
		}
		return nil, err
	}
	m.track(o)
	return o, nil
}

func (m *Manager) track(o *Orchestrator) {
	m.mu.Lock()
	m.runs[o.ID()] = o
	m.mu.Unlock()
}

// Get returns the run for a pair id.
func (m *Manager) Get(id string) (*Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// Release stops and forgets a run.
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	o, ok := m.runs[id]
	delete(m.runs, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	o.Stop()
	return nil
}

// StopAll tears down every tracked run. Called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runs := make([]*Orchestrator, 0, len(m.runs))
	for _, o := range m.runs {
		runs = append(runs, o)
	}
	m.runs = make(map[string]*Orchestrator)
	m.mu.Unlock()

	for _, o := range runs {
		o.Stop()
	}
}
