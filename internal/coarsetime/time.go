// Package coarsetime provides a clock that is refreshed every 50ms, for
// timestamps that are taken often and read rarely.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

const tick = 50 * time.Millisecond

var (
	now   atomic.Pointer[time.Time]
	start sync.Once
)

func run() {
	t := time.Now()
	now.Store(&t)

	ticker := time.NewTicker(tick)
	go func() {
		for range ticker.C {
			t := time.Now()
			now.Store(&t)
		}
	}()
}

// Now returns the current time, at most one tick old.
func Now() time.Time {
	start.Do(run)
	return *now.Load()
}
