// Package transport provides a wall-clock sonify.Transport.
package transport

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sonigraph/sonify"
)

type (
	// Realtime fires callbacks at their scheduled offset from Start. A single
	// dispatcher goroutine pops them from a queue ordered by (at, handle) and
	// runs them one at a time, so callbacks never overlap and never run out of
	// order. Callbacks scheduled in the past fire as soon as the dispatcher
	// gets to them, never from within Schedule. A callback that the
	// dispatcher has already taken when CancelAll is called still runs;
	// owners must guard against that.
	Realtime struct {
		mu      sync.Mutex
		start   time.Time
		running bool
		next    sonify.Handle
		queue   eventQueue
		events  map[sonify.Handle]*event
		wake    chan struct{} // of the running dispatcher
		done    chan struct{} // closed when the running dispatcher must quit
	}

	event struct {
		at       time.Duration
		handle   sonify.Handle
		callback func(at time.Duration)
		index    int // in the queue
	}

	eventQueue []*event
)

// idleWait is how long the dispatcher sleeps when there is nothing queued;
// Schedule wakes it up earlier.
const idleWait = time.Hour

func NewRealtime() *Realtime {
	return &Realtime{events: map[sonify.Handle]*event{}}
}

// Start restarts the clock and launches the dispatcher if it is not running.
func (r *Realtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
	r.launch()
	r.poke()
	return nil
}

// Stop cancels all pending callbacks and stops the clock. It does not wait
// for a callback in progress, so it is safe to call from a callback.
func (r *Realtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAll()
	if r.running {
		close(r.done)
		r.running = false
	}
}

// Now returns the time elapsed since Start, or zero if not running.
func (r *Realtime) Now() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return 0
	}
	return time.Since(r.start)
}

// Schedule queues callback to fire at the given offset from Start. The clock
// is started if it is not running.
func (r *Realtime) Schedule(at time.Duration, callback func(at time.Duration)) sonify.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		r.start = time.Now()
		r.launch()
	}
	r.next++
	e := &event{at: at, handle: r.next, callback: callback}
	heap.Push(&r.queue, e)
	r.events[e.handle] = e
	if r.queue[0] == e {
		r.poke()
	}
	return e.handle
}

// Cancel drops a single pending callback.
func (r *Realtime) Cancel(h sonify.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[h]; ok {
		heap.Remove(&r.queue, e.index)
		delete(r.events, h)
	}
}

func (r *Realtime) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAll()
}

// Pending returns the number of callbacks that have not fired yet.
func (r *Realtime) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Realtime) cancelAll() {
	r.queue = nil
	clear(r.events)
}

// launch must be called with mu held.
func (r *Realtime) launch() {
	if r.running {
		return
	}
	r.running = true
	r.wake = make(chan struct{}, 1)
	r.done = make(chan struct{})
	go r.dispatch(r.wake, r.done)
}

// poke must be called with mu held. It makes the dispatcher look at the head
// of the queue again.
func (r *Realtime) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Realtime) dispatch(wake, done chan struct{}) {
	timer := time.NewTimer(idleWait)
	defer timer.Stop()
	for {
		r.mu.Lock()
		select {
		case <-done: // a later dispatcher may own the queue by now
			r.mu.Unlock()
			return
		default:
		}
		wait := idleWait
		if len(r.queue) > 0 {
			e := r.queue[0]
			if wait = time.Until(r.start.Add(e.at)); wait <= 0 {
				heap.Pop(&r.queue)
				delete(r.events, e.handle)
				r.mu.Unlock()
				e.callback(e.at)
				continue
			}
		}
		r.mu.Unlock()
		timer.Reset(wait)
		select {
		case <-done:
			return
		case <-wake:
		case <-timer.C:
		}
	}
}

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].handle < q[j].handle
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
