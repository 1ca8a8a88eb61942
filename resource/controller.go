// Package resource tracks the memory and query budgets shared by a table's
// retention cache and its query clients.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for retained and cached row data.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent spill-encode
	// jobs. If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// QueriesPerSec bounds how fast fetch-window changes may reach the
	// coordinator. If 0, unlimited.
	QueriesPerSec float64
}

// Controller manages global resources (memory, concurrency, query rate).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	bgSem *semaphore.Weighted

	// Query rate
	queryLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.QueriesPerSec > 0 {
		c.queryLimiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSec), 1)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AllowQuery reports whether a fetch-window change may be issued now.
// A denied request is not queued; the scheduler retries on its next tick.
func (c *Controller) AllowQuery() bool {
	if c == nil || c.queryLimiter == nil {
		return true
	}
	return c.queryLimiter.Allow()
}

// WaitQuery blocks until the rate limit admits one query or ctx is canceled.
func (c *Controller) WaitQuery(ctx context.Context) error {
	if c == nil || c.queryLimiter == nil {
		return nil
	}
	return c.queryLimiter.Wait(ctx)
}

// AcquireBackground attempts to reserve a spill-worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a spill-worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a spill-worker slot.
func (c *Controller) ReleaseBackground() {
	c.bgSem.Release(1)
}
