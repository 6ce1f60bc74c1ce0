package engine

import (
	"time"

	"github.com/notomaps/tilengine/metrics"
)

// commitScheduler coalesces bursts of landed tiles into at most one
// merge-and-commit per frame interval. request may be called any number
// of times; while a frame is armed, further requests are free.
//
// All methods run on the engine's owner goroutine; the timer callback
// posts itself back there.
type commitScheduler struct {
	e        *Engine
	interval time.Duration
	armed    bool
}

func newCommitScheduler(e *Engine, interval time.Duration) *commitScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &commitScheduler{e: e, interval: interval}
}

func (c *commitScheduler) request() {
	if c.armed {
		return
	}
	c.armed = true
	time.AfterFunc(c.interval, func() {
		c.e.post(c.fire)
	})
}

func (c *commitScheduler) fire() {
	c.armed = false
	// The engine may have been disabled or degraded between the request
	// and the frame boundary. Drop the commit; whoever transitioned
	// already cleared the output.
	if !c.e.enabled || c.e.mode == ModeDegraded {
		return
	}
	fc := c.e.merge()
	if c.e.renderer != nil {
		c.e.renderer.Commit(fc)
	}
	metrics.Commits.Inc(1)
	c.e.committedHash = c.e.pendingHash
	c.e.logger.Debug("Committed overlay", "features", len(fc.Features), "tiles", c.e.cache.Len())
}

// commitEmpty clears the rendered output immediately, outside frame
// pacing. Used on disable and on entering degraded mode.
func (c *commitScheduler) commitEmpty() {
	if c.e.renderer != nil {
		c.e.renderer.Clear()
	}
	c.e.committedHash = 0
	c.e.pendingHash = 0
}
