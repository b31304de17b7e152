// Package sequencertest provides a deterministic scheduler for tests.
package sequencertest

import (
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/parrot/internal/sequencer"
)

// Manual is a sequencer.Scheduler driven by the test. Posted functions run
// on Drain, Do or Advance; timers fire when Advance moves the clock past
// their deadline. Post may be called from any goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	posted []func()
	timers []*timer
}

type timer struct {
	m       *Manual
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a manual scheduler at time zero.
func New() *Manual {
	return &Manual{}
}

// Post implements sequencer.Scheduler.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, fn)
}

// AfterFunc implements sequencer.Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) sequencer.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &timer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Do runs fn and then drains everything it posted.
func (m *Manual) Do(fn func()) error {
	fn()
	m.Drain()
	return nil
}

// Drain runs posted functions, including ones posted while draining, until
// the queue is empty.
func (m *Manual) Drain() {
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and draining after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Drain()

	m.mu.Lock()
	end := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(end)
		if t == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		m.now = t.at
		t.fired = true
		m.mu.Unlock()

		t.fn()
		m.Drain()
	}
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns how many timers have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// nextDue returns the earliest live timer due at or before end. Callers
// hold m.mu.
func (m *Manual) nextDue(end time.Duration) *timer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].at != live[j].at {
			return live[i].at < live[j].at
		}
		return live[i].seq < live[j].seq
	})
	if live[0].at > end {
		return nil
	}
	return live[0]
}

var _ sequencer.Scheduler = (*Manual)(nil)
