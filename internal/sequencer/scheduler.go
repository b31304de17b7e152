package sequencer

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running if it has not been posted
	// yet. It reports whether the timer was stopped.
	Stop() bool
}

// Scheduler runs callbacks one at a time on a single goroutine.
type Scheduler interface {
	// Post queues fn to run on the scheduler goroutine.
	Post(fn func())

	// AfterFunc posts fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is a Scheduler backed by one goroutine draining an unbounded FIFO.
// Post never blocks.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Post implements Scheduler. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	l.post(fn)
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine.
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopClosed
	}
	<-done
	return nil
}

// Close runs whatever is already queued, then stops the loop. It is safe
// to call more than once.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		select {
		case l.notify <- struct{}{}:
		default:
		}
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.call(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.notify
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic in event loop", "panic", r)
		}
	}()
	fn()
}

var _ Scheduler = (*Loop)(nil)
