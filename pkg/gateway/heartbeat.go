package gateway

import (
	"sync"
	"time"
)

// heartbeat drives the periodic heartbeat for a connection. Each call
// to Start replaces any running ticker, so a second Hello on the same
// socket restarts the schedule cleanly instead of doubling it.
//
// The tick callback receives the generation's stop channel. A callback
// that was already in flight when Start or Stop replaced its generation
// checks the channel and discards itself, so a stale tick can never act
// on the new connection's schedule.
type heartbeat struct {
	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	running bool

	onTick func(stop <-chan struct{})
}

func newHeartbeat(onTick func(stop <-chan struct{})) *heartbeat {
	return &heartbeat{onTick: onTick}
}

// Start begins ticking at the given interval. The first tick fires
// after one full interval, never immediately. Any previous schedule is
// stopped first.
func (h *heartbeat) Start(interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()

	h.ticker = time.NewTicker(interval)
	h.done = make(chan struct{})
	h.running = true
	go h.run(h.ticker, h.done)
}

// Stop halts the schedule. Safe to call when not running and safe to
// call more than once.
func (h *heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *heartbeat) stopLocked() {
	if !h.running {
		return
	}
	h.running = false
	h.ticker.Stop()
	close(h.done)
	h.ticker = nil
}

// Running reports whether a schedule is active.
func (h *heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *heartbeat) run(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			select {
			case <-done:
				return
			default:
			}
			h.onTick(done)
		case <-done:
			return
		}
	}
}
