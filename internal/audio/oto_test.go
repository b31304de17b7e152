package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	playing bool
	err     error
	closed  bool
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// end stops the player as if its reader ran out, or failed with err.
func (p *fakePlayer) end(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing, p.err = false, err
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeOutput struct {
	mu      sync.Mutex
	players []*fakePlayer
}

func (o *fakeOutput) NewPlayer(io.Reader) player {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := &fakePlayer{}
	o.players = append(o.players, p)
	return p
}

func (o *fakeOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.players)
}

func (o *fakeOutput) last() *fakePlayer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.players[len(o.players)-1]
}

type fakeSource struct {
	clips map[string][]byte
	block chan struct{} // fetches wait on it when set
}

func (s *fakeSource) Fetch(ctx context.Context, src string) ([]byte, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := s.clips[src]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClipNotFound, src)
	}
	return data, nil
}

func newSource() *fakeSource {
	return &fakeSource{clips: map[string][]byte{
		"a.wav": makeWAV(2, SampleRate, 64),
		"b.wav": makeWAV(1, 22050, 64),
	}}
}

// newTestDevice returns a device over fakes and the trace its callbacks and
// events are written to.
func newTestDevice(t *testing.T, src *fakeSource) (*OtoDevice, *fakeOutput, chan string) {
	t.Helper()

	out := &fakeOutput{}
	dev := newOtoDevice(out, src)
	dev.poll = time.Millisecond
	trace := make(chan string, 16)
	dev.SetNotifier(func(ev Event) { trace <- ev.Kind.String() })
	t.Cleanup(func() { _ = dev.Close() })
	return dev, out, trace
}

func doneTo(trace chan string) func(error) {
	return func(err error) {
		if err != nil {
			trace <- "done: " + err.Error()
			return
		}
		trace <- "done"
	}
}

func nextTrace(t *testing.T, trace chan string) string {
	t.Helper()
	select {
	case s := <-trace:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the device")
		return ""
	}
}

func assertQuiet(t *testing.T, trace chan string) {
	t.Helper()
	select {
	case s := <-trace:
		t.Errorf("unexpected %q", s)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestOtoDevice_Watch(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "clip ends", want: "ended"},
		{name: "player fails", err: errors.New("underrun"), want: "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev, out, trace := newTestDevice(t, newSource())

			_, err := dev.Load("a.wav")
			require.NoError(t, err)
			dev.Play(doneTo(trace))
			require.Equal(t, "done", nextTrace(t, trace))

			p := out.last()
			assert.True(t, p.IsPlaying())
			assertQuiet(t, trace)

			p.end(tc.err)
			assert.Equal(t, tc.want, nextTrace(t, trace))
			assert.True(t, p.isClosed())
			assertQuiet(t, trace)
		})
	}
}

func TestOtoDevice_PausedClipDoesNotEnd(t *testing.T) {
	dev, out, trace := newTestDevice(t, newSource())

	_, err := dev.Load("a.wav")
	require.NoError(t, err)
	dev.Play(doneTo(trace))
	require.Equal(t, "done", nextTrace(t, trace))

	dev.Pause()
	p := out.last()
	assert.False(t, p.IsPlaying())
	assertQuiet(t, trace)

	// Resuming reuses the player.
	dev.Play(doneTo(trace))
	assert.Equal(t, "done", nextTrace(t, trace))
	assert.Equal(t, 1, out.count())
	assert.True(t, p.IsPlaying())

	p.end(nil)
	assert.Equal(t, "ended", nextTrace(t, trace))
}

func TestOtoDevice_AbandonedFetch(t *testing.T) {
	src := newSource()
	src.block = make(chan struct{})
	dev, out, trace := newTestDevice(t, src)

	_, err := dev.Load("a.wav")
	require.NoError(t, err)
	dev.Play(doneTo(trace))

	_, err = dev.Load("b.wav")
	require.NoError(t, err)
	assert.Equal(t, "done: "+ErrAbandoned.Error(), nextTrace(t, trace))
	assert.Zero(t, out.count())
}

func TestOtoDevice_AbandonedClipIsSilent(t *testing.T) {
	dev, out, trace := newTestDevice(t, newSource())

	_, err := dev.Load("a.wav")
	require.NoError(t, err)
	dev.Play(doneTo(trace))
	require.Equal(t, "done", nextTrace(t, trace))
	p := out.last()

	_, err = dev.Load("b.wav")
	require.NoError(t, err)
	assert.True(t, p.isClosed())

	p.end(nil)
	assertQuiet(t, trace)
}

func TestOtoDevice_FetchFailure(t *testing.T) {
	dev, out, trace := newTestDevice(t, newSource())

	_, err := dev.Load("missing.wav")
	require.NoError(t, err)
	dev.Play(doneTo(trace))

	assert.Equal(t, "done: clip not found: missing.wav", nextTrace(t, trace))
	assert.Zero(t, out.count())
}

func TestOtoDevice_Rate(t *testing.T) {
	dev, _, trace := newTestDevice(t, newSource())
	dev.SetRate(1.5)
	dev.SetRate(0)

	_, err := dev.Load("b.wav")
	require.NoError(t, err)
	dev.Play(doneTo(trace))
	require.Equal(t, "done", nextTrace(t, trace))

	dev.mu.Lock()
	defer dev.mu.Unlock()
	require.NotNil(t, dev.reader)
	assert.Equal(t, 1.5, dev.reader.rate)
}

func TestOtoDevice_NoClipAndClosed(t *testing.T) {
	dev, _, _ := newTestDevice(t, newSource())

	var got []error
	record := func(err error) { got = append(got, err) }

	dev.Play(record)
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	dev.Play(record)

	_, err := dev.Load("a.wav")
	assert.ErrorIs(t, err, ErrClosed)
	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], ErrNoClip)
	assert.ErrorIs(t, got[1], ErrClosed)
}
