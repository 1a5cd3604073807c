// Package search turns free-text input into catalog requests once typing settles.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a typed query is sent.
const DefaultDelay = 500 * time.Millisecond

// Store is the part of the movie store the controller drives.
type Store interface {
	LoadPopular(ctx context.Context, page int) error
	Search(ctx context.Context, query string, page int) error
	SetSearchText(text string)
	SearchText() string
}

// Controller debounces search input against a Store.
type Controller struct {
	store Store
	delay time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	query string
	timer *time.Timer
	gen   uint64
}

// NewController creates a Controller. A non-positive delay uses DefaultDelay.
func NewController(store Store, delay time.Duration) *Controller {
	if delay <= 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:  store,
		delay:  delay,
		ctx:    ctx,
		cancel: cancel,
		query:  store.SearchText(),
	}
}

// Mount loads the popular listing unless a search is already set.
func (c *Controller) Mount(ctx context.Context) error {
	if c.store.SearchText() != "" {
		return nil
	}
	return c.store.LoadPopular(ctx, 1)
}

// Input records text immediately and schedules a query for when input settles.
// Each call replaces any query still waiting.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = text
	c.store.SetSearchText(text)

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.settle(gen, text) })
}

// Clear drops any waiting query, empties the search text and loads the popular
// listing right away.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	c.query = ""
	c.store.SetSearchText("")
	c.mu.Unlock()

	return c.store.LoadPopular(ctx, 1)
}

// Query returns the text last entered.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Pending reports whether a query is waiting for its quiet period to end.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Close stops any waiting query and cancels requests it started.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) settle(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer input or a clear got here first.
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	q := strings.TrimSpace(text)
	var err error
	if q == "" {
		err = c.store.LoadPopular(c.ctx, 1)
	} else {
		err = c.store.Search(c.ctx, q, 1)
	}
	if err != nil {
		slog.Warn("debounced query failed", "query", q, "error", err)
	}
}
