package sequencer

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/parrot/internal/audio"
	"github.com/dgnsrekt/parrot/internal/dataset"
)

// Playlist is the list of sentences the controller plays from. The
// navigator implements it.
type Playlist interface {
	Current() (dataset.Sentence, bool)
	At(i int) (dataset.Sentence, bool)
	Jump(i int) bool
	Len() int
}

// Options configures a Controller.
type Options struct {
	Timing  Timing
	Rate    float64 // zero means DefaultRate
	Looping bool
}

// Controller sequences the clips of one sentence at a time on a device.
// Apart from New, its methods must be called on the scheduler goroutine.
type Controller struct {
	// Collaborators
	sched Scheduler
	dev   audio.Device
	list  Playlist
	obs   Observer

	timing Timing

	// Playback state
	state    State
	active   ClipKind
	clip     audio.ClipID
	token    uint64
	sentence dataset.Sentence
	timers   []Timer
	replay   bool // loop replay scheduled

	// Settings
	rate    float64
	looping bool

	// Continuous play
	continuous bool
	cursor     int
}

// New creates a controller and registers it as the device's notifier. A
// nil observer discards all output.
func New(sched Scheduler, dev audio.Device, list Playlist, obs Observer, opts Options) (*Controller, error) {
	rate := opts.Rate
	if rate == 0 {
		rate = DefaultRate
	}
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	if obs == nil {
		obs = nopObserver{}
	}

	c := &Controller{
		sched:   sched,
		dev:     dev,
		list:    list,
		obs:     obs,
		timing:  opts.Timing.WithDefaults(),
		rate:    rate,
		looping: opts.Looping,
	}
	dev.SetRate(rate)
	dev.SetNotifier(func(ev audio.Event) {
		sched.Post(func() { c.deviceEvent(ev) })
	})
	return c, nil
}

// Play stops whatever is playing and plays s from its first clip.
func (c *Controller) Play(s dataset.Sentence) {
	c.play(s, false)
}

// PlayCurrent plays the playlist's current sentence. It reports false when
// the playlist is empty.
func (c *Controller) PlayCurrent() bool {
	s, ok := c.list.Current()
	if !ok {
		return false
	}
	c.play(s, c.continuous)
	return true
}

// Stop pauses the device, cancels every pending continuation and returns
// to Idle. Continuous play, if active, stays enabled but will not advance;
// use StopAll to end it.
func (c *Controller) Stop() {
	c.halt()
	c.token++
	c.state, c.active = Idle, ClipNone
	c.changed()
}

// Playing reports whether a sentence sequence is in progress.
func (c *Controller) Playing() bool {
	return c.state != Idle
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Active returns the clip kind on the device.
func (c *Controller) Active() ClipKind {
	return c.active
}

// Token returns the current generation token.
func (c *Controller) Token() uint64 {
	return c.token
}

// Snapshot returns a copy of the playback state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:      c.state,
		Clip:       c.active,
		Rate:       c.rate,
		Looping:    c.looping,
		Continuous: c.continuous,
		Cursor:     c.cursor,
		Token:      c.token,
		SentenceID: c.sentence.ID,
	}
}

// Looping reports whether single-sentence looping is on.
func (c *Controller) Looping() bool {
	return c.looping
}

// SetLooping turns single-sentence looping on or off. Turning it off
// cancels a pending replay at the next sequence end.
func (c *Controller) SetLooping(on bool) {
	if c.looping == on {
		return
	}
	c.looping = on
	log.Debug("looping changed", "looping", on)
	c.changed()
}

// ToggleLoop flips looping and returns the new value.
func (c *Controller) ToggleLoop() bool {
	c.SetLooping(!c.looping)
	return c.looping
}

// Rate returns the playback rate.
func (c *Controller) Rate() float64 {
	return c.rate
}

// SetRate changes the playback rate of the current and every later clip.
func (c *Controller) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	if rate == c.rate {
		return nil
	}
	c.rate = rate
	c.dev.SetRate(rate)
	log.Debug("rate changed", "rate", rate)
	c.changed()
	return nil
}

// Faster steps the rate up and returns it.
func (c *Controller) Faster() float64 {
	_ = c.SetRate(NextRate(c.rate))
	return c.rate
}

// Slower steps the rate down and returns it.
func (c *Controller) Slower() float64 {
	_ = c.SetRate(PrevRate(c.rate))
	return c.rate
}

// play starts a new sequence for s. A request tagged continuous is dropped
// once continuous play has been stopped.
func (c *Controller) play(s dataset.Sentence, continuous bool) {
	if continuous && !c.continuous {
		log.Debug("dropping continuous play request", "sentence", s.ID)
		return
	}

	c.halt()
	c.token++
	tok := c.token
	c.sentence = s
	c.state, c.active = Idle, ClipNone

	switch {
	case s.HasSource():
		c.load(tok, ClipSource, s.SourceAudio)
	case s.HasTranslation():
		c.load(tok, ClipTranslation, s.TranslationAudio)
	default:
		log.Warn("no audio for sentence", "sentence", s.ID)
		if c.continuous {
			c.after(tok, c.timing.Skip, func() { c.sequenceEnd(tok) })
		} else {
			c.notice(LevelWarn, "No audio available for this sentence.")
		}
	}
	c.changed()
}

func (c *Controller) load(tok uint64, kind ClipKind, src string) {
	c.state, c.active = loadingState(kind), ClipNone

	id, err := c.dev.Load(src)
	if err != nil {
		c.playFailed(tok, kind, src, err)
		return
	}
	c.clip = id
	log.Debug("clip loaded", "clip", kind, "src", src, "id", id, "token", tok)

	c.dev.Play(func(err error) {
		c.sched.Post(func() { c.played(tok, kind, src, err) })
	})
}

func (c *Controller) played(tok uint64, kind ClipKind, src string, err error) {
	if tok != c.token {
		return
	}
	if err != nil {
		c.playFailed(tok, kind, src, err)
		return
	}
	c.state, c.active = playingState(kind), kind
	c.changed()
}

func (c *Controller) playFailed(tok uint64, kind ClipKind, src string, err error) {
	perr := &PlaybackError{Clip: kind, Source: src, Err: err}
	log.Error("playback failed", "error", perr, "token", tok)
	c.notice(LevelError, "Audio error: "+perr.Error())

	if kind == ClipSource {
		c.active = ClipSource
		c.sourceEnded(tok)
		return
	}
	c.finish(tok)
}

func (c *Controller) deviceEvent(ev audio.Event) {
	if ev.Clip != c.clip || c.state == Idle {
		log.Debug("ignoring stale device event", "event", ev, "clip", c.clip)
		return
	}

	switch ev.Kind {
	case audio.EventEnded:
		switch c.state {
		case PlayingSource:
			c.sourceEnded(c.token)
		case PlayingTranslation:
			c.finish(c.token)
		}
	case audio.EventError:
		c.fault(ev.Err)
	}
}

// sourceEnded waits out the gap and then moves on to the translation.
func (c *Controller) sourceEnded(tok uint64) {
	c.state = GapBeforeTranslation
	c.changed()

	c.after(tok, c.timing.Gap, func() {
		if c.active == ClipSource && c.sentence.HasTranslation() {
			c.load(tok, ClipTranslation, c.sentence.TranslationAudio)
			c.changed()
			return
		}
		c.finish(tok)
	})
}

// finish ends the sentence sequence for tok.
func (c *Controller) finish(tok uint64) {
	c.state, c.active = Idle, ClipNone
	c.changed()
	c.sequenceEnd(tok)
}

func (c *Controller) fault(err error) {
	log.Error("device fault", "error", err, "sentence", c.sentence.ID)
	c.notice(LevelError, "Audio error: "+err.Error())
	c.continuous, c.cursor = false, 0
	c.Stop()
}

// after runs fn after d unless the token has moved on by then.
func (c *Controller) after(tok uint64, d time.Duration, fn func()) {
	var t Timer
	t = c.sched.AfterFunc(d, func() {
		c.forget(t)
		if tok != c.token {
			return
		}
		fn()
	})
	c.timers = append(c.timers, t)
}

func (c *Controller) forget(t Timer) {
	for i, p := range c.timers {
		if p == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// halt pauses the device and stops every pending timer.
func (c *Controller) halt() {
	c.dev.Pause()
	c.replay = false
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}

func (c *Controller) changed() {
	c.obs.Changed(c.Snapshot())
}

func (c *Controller) notice(level Level, text string) {
	c.obs.Notice(Notice{Text: text, Level: level})
}
