package audio

import (
	"sync"
	"time"
)

// Call is one recorded MockDevice method call.
type Call struct {
	Op   string // "load", "play", "pause", "rate", "close"
	Src  string
	Rate float64
}

// MockDevice implements Device without producing sound. Play succeeds
// immediately unless a failure was scripted for the source; clips end when
// the test calls Finish, or after a simulated duration when AutoFinish is set.
type MockDevice struct {
	mu sync.Mutex

	clip    ClipID
	src     string
	playing bool
	rate    float64
	closed  bool
	notify  func(Event)

	failures map[string]error
	clipLen  time.Duration
	timer    *time.Timer

	calls  []Call
	loads  []string
	plays  int
	pauses int
}

// NewMockDevice creates a mock device at normal rate.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		rate:     1.0,
		failures: make(map[string]error),
	}
}

// Load implements Device.
func (m *MockDevice) Load(src string) (ClipID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	m.stopTimer()
	m.playing = false
	m.clip++
	m.src = src
	m.calls = append(m.calls, Call{Op: "load", Src: src})
	m.loads = append(m.loads, src)
	return m.clip, nil
}

// Play implements Device. done is called before Play returns.
func (m *MockDevice) Play(done func(error)) {
	err := m.play()
	if done != nil {
		done(err)
	}
}

func (m *MockDevice) play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "play", Src: m.src})
	m.plays++

	switch {
	case m.closed:
		return ErrClosed
	case m.clip == 0 || m.src == "":
		return ErrNoClip
	}
	if err, ok := m.failures[m.src]; ok {
		return err
	}

	m.playing = true
	if m.clipLen > 0 {
		id := m.clip
		d := time.Duration(float64(m.clipLen) / m.rate)
		m.stopTimer()
		m.timer = time.AfterFunc(d, func() { m.finish(id, nil) })
	}
	return nil
}

// Pause implements Device.
func (m *MockDevice) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimer()
	m.playing = false
	m.pauses++
	m.calls = append(m.calls, Call{Op: "pause", Src: m.src})
}

// SetRate implements Device.
func (m *MockDevice) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rate = rate
	m.calls = append(m.calls, Call{Op: "rate", Src: m.src, Rate: rate})
}

// SetNotifier implements Device.
func (m *MockDevice) SetNotifier(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// Close implements Device.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimer()
	m.playing = false
	m.closed = true
	m.calls = append(m.calls, Call{Op: "close"})
	return nil
}

// FailPlay makes every Play of src report err.
func (m *MockDevice) FailPlay(src string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[src] = err
}

// AutoFinish makes each clip end by itself after d, divided by the rate in
// effect when playback starts. Zero disables it.
func (m *MockDevice) AutoFinish(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clipLen = d
}

// Finish ends the current clip as if it had played out. It reports false
// when nothing is playing.
func (m *MockDevice) Finish() bool {
	m.mu.Lock()
	id := m.clip
	m.mu.Unlock()
	return m.finish(id, nil)
}

// Fault fails the current clip mid-playback.
func (m *MockDevice) Fault(err error) bool {
	m.mu.Lock()
	id := m.clip
	m.mu.Unlock()
	return m.finish(id, err)
}

// Emit sends ev to the notifier as is, bypassing all checks.
func (m *MockDevice) Emit(ev Event) {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (m *MockDevice) finish(id ClipID, err error) bool {
	m.mu.Lock()
	if !m.playing || m.clip != id {
		m.mu.Unlock()
		return false
	}
	m.playing = false
	m.stopTimer()
	fn := m.notify
	m.mu.Unlock()

	if fn != nil {
		ev := Event{Kind: EventEnded, Clip: id}
		if err != nil {
			ev = Event{Kind: EventError, Clip: id, Err: err}
		}
		fn(ev)
	}
	return true
}

func (m *MockDevice) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Playing reports whether a clip is currently playing.
func (m *MockDevice) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Current returns the current clip and its source.
func (m *MockDevice) Current() (ClipID, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clip, m.src
}

// Rate returns the rate last set.
func (m *MockDevice) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Loads returns every source loaded, in order.
func (m *MockDevice) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

// Calls returns every recorded call, in order.
func (m *MockDevice) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Counts returns how many times Play and Pause were called.
func (m *MockDevice) Counts() (plays, pauses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays, m.pauses
}

var _ Device = (*MockDevice)(nil)
