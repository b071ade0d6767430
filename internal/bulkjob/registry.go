package bulkjob

import (
	"sync"
	"time"
)

// Registry hands out one Controller per coupon and owns their teardown.
// Releasing a coupon (the operator switched selection) or stopping the
// registry (shutdown, navigation away) stops the affected poll loops; no
// timer is ever left to be collected implicitly.
type Registry struct {
	api         JobAPI
	interval    time.Duration
	onSucceeded func(couponID string)

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry. onSucceeded is passed to every
// controller it creates.
func NewRegistry(api JobAPI, interval time.Duration, onSucceeded func(couponID string)) *Registry {
	return &Registry{
		api:         api,
		interval:    interval,
		onSucceeded: onSucceeded,
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the controller for a coupon, creating it on first use.
func (r *Registry) Controller(couponID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[couponID]
	if !ok {
		c = NewController(r.api, couponID, r.interval, r.onSucceeded)
		r.controllers[couponID] = c
	}
	return c
}

// Release stops and forgets the controller for a coupon. No-op when the
// coupon has no controller.
func (r *Registry) Release(couponID string) {
	r.mu.Lock()
	c, ok := r.controllers[couponID]
	delete(r.controllers, couponID)
	r.mu.Unlock()
	if ok {
		c.Stop()
	}
}

// StopAll tears down every controller. Called on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.Stop()
	}
}
