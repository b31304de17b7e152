package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often a playing clip is checked for its end.
const pollInterval = 20 * time.Millisecond

// ClipSource fetches encoded clip bytes. *Fetcher satisfies it.
type ClipSource interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// player is the part of *oto.Player the device drives.
type player interface {
	Play()
	Pause()
	IsPlaying() bool
	Err() error
	Close() error
}

// output creates players over PCM readers.
type output interface {
	NewPlayer(r io.Reader) player
}

type otoOutput struct {
	ctx *oto.Context
}

func (o otoOutput) NewPlayer(r io.Reader) player {
	return o.ctx.NewPlayer(r)
}

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: ChannelCount,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan
		otoCtx = ctx
		log.Debug("audio context initialized", "rate", SampleRate, "channels", ChannelCount)
	})
	return otoCtx, otoErr
}

// OtoDevice plays clips through the system audio output. Fetching and
// decoding happen on a goroutine started by Play, so no method blocks on
// I/O.
type OtoDevice struct {
	out    output
	source ClipSource
	poll   time.Duration

	mu     sync.Mutex
	clip   ClipID
	src    string
	player player
	reader *rateReader
	cancel context.CancelFunc // pending fetch
	paused bool
	rate   float64
	notify func(Event)
	closed bool
}

// NewOtoDevice opens the audio output. It fails when no output device is
// available.
func NewOtoDevice(source ClipSource) (*OtoDevice, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return newOtoDevice(otoOutput{ctx: ctx}, source), nil
}

func newOtoDevice(out output, source ClipSource) *OtoDevice {
	return &OtoDevice{out: out, source: source, poll: pollInterval, rate: 1.0}
}

// Load implements Device.
func (d *OtoDevice) Load(src string) (ClipID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	d.abandon()
	d.clip++
	d.src = src
	d.paused = false
	return d.clip, nil
}

// abandon drops the current clip. Callers hold d.mu.
func (d *OtoDevice) abandon() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.player != nil {
		d.player.Pause()
		if err := d.player.Close(); err != nil {
			log.Debug("error closing player", "error", err)
		}
		d.player = nil
		d.reader = nil
	}
}

// Play implements Device. A paused clip resumes where it stopped.
func (d *OtoDevice) Play(done func(error)) {
	if done == nil {
		done = func(error) {}
	}

	d.mu.Lock()
	switch {
	case d.closed:
		d.mu.Unlock()
		done(ErrClosed)
		return
	case d.clip == 0 || d.src == "":
		d.mu.Unlock()
		done(ErrNoClip)
		return
	}

	d.paused = false
	if d.player != nil {
		d.player.Play()
		d.mu.Unlock()
		done(nil)
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	id, src := d.clip, d.src
	d.mu.Unlock()

	go d.start(ctx, id, src, done)
}

func (d *OtoDevice) start(ctx context.Context, id ClipID, src string, done func(error)) {
	var pcm *PCM
	data, err := d.source.Fetch(ctx, src)
	if err == nil {
		pcm, err = Decode(data, src)
	}

	d.mu.Lock()
	if d.clip != id || ctx.Err() != nil {
		d.mu.Unlock()
		done(ErrAbandoned)
		return
	}
	d.cancel()
	d.cancel = nil
	if err != nil {
		d.mu.Unlock()
		done(err)
		return
	}

	reader := newRateReader(pcm, d.rate)
	p := d.out.NewPlayer(reader)
	d.player = p
	d.reader = reader
	p.Play()
	d.mu.Unlock()

	log.Debug("clip playing", "clip", id, "src", src, "duration", pcm.Duration())
	done(nil)
	d.watch(id, p)
}

// watch polls the player until the clip ends, fails or is abandoned. The
// done callback of Play has always run by the time an event is sent.
func (d *OtoDevice) watch(id ClipID, p player) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for range ticker.C {
		d.mu.Lock()
		if d.clip != id || d.player != p {
			d.mu.Unlock()
			return
		}

		ev := Event{Kind: EventEnded, Clip: id}
		if err := p.Err(); err != nil {
			ev = Event{Kind: EventError, Clip: id, Err: err}
		} else if d.paused || p.IsPlaying() {
			d.mu.Unlock()
			continue
		}

		d.player = nil
		d.reader = nil
		if err := p.Close(); err != nil {
			log.Debug("error closing player", "error", err)
		}
		fn := d.notify
		d.mu.Unlock()

		log.Debug("clip finished", "event", ev)
		if fn != nil {
			fn(ev)
		}
		return
	}
}

// Pause implements Device. A fetch still in flight is abandoned.
func (d *OtoDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.paused = true
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.player != nil {
		d.player.Pause()
	}
}

// SetRate implements Device.
func (d *OtoDevice) SetRate(rate float64) {
	if rate <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.rate = rate
	if d.reader != nil {
		d.reader.setRate(rate)
	}
}

// SetNotifier implements Device.
func (d *OtoDevice) SetNotifier(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify = fn
}

// Close implements Device. The shared oto context stays alive; oto v3 has
// no way to close it.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.abandon()
	d.clip++
	d.closed = true
	return nil
}

var _ Device = (*OtoDevice)(nil)
