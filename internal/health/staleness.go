package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Heartbeat tracks the last time a loop made progress. Loops call [Beat] on
// every iteration; readiness probes use [Checker] to flag a loop that has
// stalled for longer than the allowed age.
//
// The zero value is not usable; create instances with [NewHeartbeat].
type Heartbeat struct {
	name   string
	maxAge time.Duration
	last   atomic.Int64 // unix nanos of the last beat

	// now is swappable for tests.
	now func() time.Time
}

// NewHeartbeat creates a Heartbeat for the named loop. The heartbeat starts
// fresh: a loop that never beats only goes stale after maxAge has elapsed
// from construction.
func NewHeartbeat(name string, maxAge time.Duration) *Heartbeat {
	h := &Heartbeat{
		name:   name,
		maxAge: maxAge,
		now:    time.Now,
	}
	h.last.Store(h.now().UnixNano())
	return h
}

// Beat records that the loop made progress.
func (h *Heartbeat) Beat() {
	h.last.Store(h.now().UnixNano())
}

// Age returns the time elapsed since the last beat.
func (h *Heartbeat) Age() time.Duration {
	return h.now().Sub(time.Unix(0, h.last.Load()))
}

// Checker returns a readiness [Checker] that fails once the heartbeat is
// older than the configured maximum age.
func (h *Heartbeat) Checker() Checker {
	return Checker{
		Name: h.name,
		Check: func(context.Context) error {
			if age := h.Age(); age > h.maxAge {
				return fmt.Errorf("no progress for %s (max %s)", age.Round(time.Millisecond), h.maxAge)
			}
			return nil
		},
	}
}
