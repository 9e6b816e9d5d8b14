package engine_test

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sonigraph/sonify"
)

type (
	// spyTransport never fires anything on its own; tests advance its clock.
	spyTransport struct {
		mu      sync.Mutex
		started int
		stopped int
		next    sonify.Handle
		pending map[sonify.Handle]scheduled
		all     []scheduled // everything ever scheduled, cancelled or not
	}

	scheduled struct {
		handle sonify.Handle
		at     time.Duration
		fn     func(time.Duration)
	}

	spySynther struct {
		voices []*spyVoice
		err    error
	}

	spyVoice struct {
		triggers []trigger
		volume   float64
		disposed int
	}

	trigger struct {
		freq   float64
		length time.Duration
		at     time.Duration
	}
)

func newSpyTransport() *spyTransport {
	return &spyTransport{pending: map[sonify.Handle]scheduled{}}
}

func (t *spyTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started++
	return nil
}

func (t *spyTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped++
}

func (t *spyTransport) Schedule(at time.Duration, fn func(time.Duration)) sonify.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	s := scheduled{handle: t.next, at: at, fn: fn}
	t.pending[t.next] = s
	t.all = append(t.all, s)
	return t.next
}

func (t *spyTransport) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = map[sonify.Handle]scheduled{}
}

func (t *spyTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Advance fires, in time order, every pending callback scheduled at or before
// d. Callbacks may schedule or cancel others.
func (t *spyTransport) Advance(d time.Duration) {
	for {
		t.mu.Lock()
		var due []scheduled
		for _, s := range t.pending {
			if s.at <= d {
				due = append(due, s)
			}
		}
		if len(due) == 0 {
			t.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].handle < due[j].handle
		})
		first := due[0]
		delete(t.pending, first.handle)
		t.mu.Unlock()
		first.fn(first.at)
	}
}

// FireOrder fires pending callbacks out of time order: order lists positions
// in the time ordered pending list. The fired callbacks are no longer pending.
func (t *spyTransport) FireOrder(order ...int) {
	t.mu.Lock()
	sorted := make([]scheduled, 0, len(t.pending))
	for _, s := range t.pending {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].at != sorted[j].at {
			return sorted[i].at < sorted[j].at
		}
		return sorted[i].handle < sorted[j].handle
	})
	for _, k := range order {
		delete(t.pending, sorted[k].handle)
	}
	t.mu.Unlock()
	for _, k := range order {
		sorted[k].fn(sorted[k].at)
	}
}

// FireAll calls every callback ever scheduled, including the cancelled ones,
// as a transport racing with CancelAll could.
func (t *spyTransport) FireAll() {
	t.mu.Lock()
	all := append([]scheduled(nil), t.all...)
	t.mu.Unlock()
	for _, s := range all {
		s.fn(s.at)
	}
}

func (s *spySynther) Name() string { return "spy" }

func (s *spySynther) Voice(volume float64) (sonify.Voice, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := &spyVoice{volume: volume}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *spySynther) last() *spyVoice {
	if len(s.voices) == 0 {
		return nil
	}
	return s.voices[len(s.voices)-1]
}

func (s *spySynther) triggers() int {
	n := 0
	for _, v := range s.voices {
		n += len(v.triggers)
	}
	return n
}

func (v *spyVoice) TriggerAttackRelease(freq float64, length, at time.Duration) {
	v.triggers = append(v.triggers, trigger{freq, length, at})
}

func (v *spyVoice) SetVolume(volume float64) { v.volume = volume }

func (v *spyVoice) Dispose() error {
	v.disposed++
	return nil
}

var errBadExpression = errors.New("bad expression")

// fakeEvaluator knows a handful of expressions.
var fakeEvaluator = sonify.EvaluatorFunc(func(expression string, x float64) (float64, error) {
	switch expression {
	case "x":
		return x, nil
	case "sin(x)":
		return math.Sin(x), nil
	case "-x":
		return -x, nil
	}
	return 0, errBadExpression
})

type recordingListener struct {
	moved    []int
	finished int
	onMove   func(index int)
}

func (l *recordingListener) PlayheadMoved(index int, _ sonify.Sample) {
	l.moved = append(l.moved, index)
	if l.onMove != nil {
		l.onMove(index)
	}
}

func (l *recordingListener) PlaybackFinished() { l.finished++ }
