// Package backend is the typed client for the storefront backend API. The
// gateway is a pure consumer of that API: it neither persists nor executes
// anything itself, it only reads resources and requests transitions.
package backend

import (
	"context"
	"time"

	"github.com/couponops/promo-admin/pkg/apiclient"
)

// Client exposes the backend capabilities the admin gateway relies on.
type Client struct {
	api *apiclient.Client
}

// New wraps an established apiclient connection.
func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Dial connects to the backend, waiting for it to become reachable.
func Dial(ctx context.Context, baseURL string, timeout time.Duration, maxRetries int) (*Client, error) {
	api, err := apiclient.Dial(ctx, baseURL, timeout, maxRetries)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Ping checks backend reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.api.Ping(ctx)
}
