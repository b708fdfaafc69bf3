package gateway

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler receives session events. Handlers run on the session's
// delivery goroutine, never on the socket read loop or a timer
// callback, so they may block briefly and may call back into the
// session (send, query the cache) without deadlocking.
type Handler func(Event)

// emitter decouples event production from consumption. Produced events
// are queued on a buffered channel and delivered in order by a single
// goroutine. When the queue is full the event is dropped and counted
// rather than blocking the socket read loop.
type emitter struct {
	mu       sync.RWMutex
	named    map[string][]Handler // handlers keyed by event name
	wildcard []Handler            // handlers for every event

	ch      chan Event
	done    chan struct{}
	started atomic.Bool
	closed  atomic.Bool

	dropped atomic.Uint64

	shard  int
	logger *slog.Logger
}

func newEmitter(shard, buffer int, logger *slog.Logger) *emitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &emitter{
		named:  make(map[string][]Handler),
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
		shard:  shard,
		logger: logger,
	}
}

// start spawns the delivery goroutine. Events emitted before start sit
// in the queue until it runs.
func (e *emitter) start() {
	if e.closed.Load() || !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run()
}

// On registers a handler for a specific event name.
func (e *emitter) On(name string, h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.named[name] = append(e.named[name], h)
	e.mu.Unlock()
}

// OnAny registers a handler for every event.
func (e *emitter) OnAny(h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.wildcard = append(e.wildcard, h)
	e.mu.Unlock()
}

// HandlerCount returns the total number of registered handlers.
func (e *emitter) HandlerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.wildcard)
	for _, hs := range e.named {
		n += len(hs)
	}
	return n
}

// Emit queues an event for delivery. It never blocks: if the queue is
// full the event is dropped and the drop counter incremented.
func (e *emitter) Emit(ev Event) {
	if e.closed.Load() {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
		recordEventDropped()
		e.logger.Warn("event queue full, dropping event",
			"event", ev.Name,
			"dropped_total", e.dropped.Load())
	}
}

// Dropped returns the number of events discarded because the queue was
// full.
func (e *emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Stop tells the delivery goroutine to drain and exit. It does not
// wait for delivery to finish: a handler is allowed to trigger Stop
// (by closing the session) from inside its own invocation. Safe to
// call more than once.
func (e *emitter) Stop() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	close(e.done)
}

// run is the delivery loop. It drains remaining events on shutdown so
// handlers see everything produced before Stop.
func (e *emitter) run() {
	for {
		select {
		case ev := <-e.ch:
			e.deliver(ev)
		case <-e.done:
			for {
				select {
				case ev := <-e.ch:
					e.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes all handlers registered for the event. A panic in
// one handler is recovered and logged; remaining handlers still run.
func (e *emitter) deliver(ev Event) {
	e.mu.RLock()
	named := e.named[ev.Name]
	wildcard := e.wildcard
	e.mu.RUnlock()

	for _, h := range named {
		e.invoke(h, ev)
	}
	for _, h := range wildcard {
		e.invoke(h, ev)
	}
}

func (e *emitter) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			herr := &HandlerError{
				Shard:     e.shard,
				EventType: ev.Name,
				Panic:     r,
				Stack:     debug.Stack(),
			}
			recordHandlerPanic()
			e.logger.Error("event handler panicked",
				"event", ev.Name,
				"panic", r,
				"stack", string(herr.Stack))
		}
	}()
	h(ev)
}
