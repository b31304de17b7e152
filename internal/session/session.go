// Package session ties a dataset, a navigator and a sequencing controller
// together behind the controls a study screen offers. All state lives on
// one event loop; every exported method hops onto it and waits.
package session

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/parrot/internal/audio"
	"github.com/dgnsrekt/parrot/internal/dataset"
	"github.com/dgnsrekt/parrot/internal/navigator"
	"github.com/dgnsrekt/parrot/internal/sequencer"
)

const (
	// DefaultUpdateBuffer is the capacity of the Updates channel.
	DefaultUpdateBuffer = 64

	// DefaultLookahead is how many sentences past the current one are
	// handed to the prefetcher.
	DefaultLookahead = 3
)

// Runner is the event loop a session runs on.
type Runner interface {
	sequencer.Scheduler
	Do(fn func()) error
}

// Prefetcher warms clips ahead of playback. It is called on the event loop
// and must not block.
type Prefetcher interface {
	Prefetch(current dataset.Sentence, upcoming []dataset.Sentence)
}

// Config holds the initial study settings.
type Config struct {
	ChunkSize int
	Chunk     int // zero based
	Mode      Mode
	Rate      float64
	Looping   bool
	Timing    sequencer.Timing

	// UpdateBuffer is the capacity of the Updates channel.
	UpdateBuffer int

	// Prefetcher, when set, is told about the current sentence and the
	// Lookahead sentences after it whenever the position changes.
	Prefetcher Prefetcher
	Lookahead  int
}

// View is a copy of everything the screen shows.
type View struct {
	Playback sequencer.Snapshot

	Sentence    dataset.Sentence
	HasSentence bool
	Index       int
	Len         int

	Chunk     int
	NumChunks int
	ChunkSize int
	Total     int

	Mode     Mode
	Revealed bool
	Source   string
}

// Update is sent whenever the view changes. Notice is set when there is a
// message for the user.
type Update struct {
	View   View
	Notice *sequencer.Notice
}

// Session is a study session.
type Session struct {
	run  Runner
	loop *sequencer.Loop // set when the session owns its loop
	dev  audio.Device

	nav  *navigator.Navigator
	ctrl *sequencer.Controller
	ds   *dataset.Dataset

	mode     Mode
	revealed bool

	prefetch  Prefetcher
	lookahead int
	warmed    position

	updates   chan Update
	closed    bool
	closeOnce sync.Once
}

// Open starts a session on its own event loop.
func Open(dev audio.Device, ds *dataset.Dataset, cfg Config) (*Session, error) {
	loop := sequencer.NewLoop()
	s, err := New(loop, dev, ds, cfg)
	if err != nil {
		loop.Close()
		return nil, err
	}
	s.loop = loop
	return s, nil
}

// New creates a session on run. Nothing plays until a control asks for it.
func New(run Runner, dev audio.Device, ds *dataset.Dataset, cfg Config) (*Session, error) {
	if ds == nil {
		ds = &dataset.Dataset{}
	}
	size := cfg.ChunkSize
	if size == 0 {
		size = navigator.DefaultChunkSize
	}
	buf := cfg.UpdateBuffer
	if buf <= 0 {
		buf = DefaultUpdateBuffer
	}
	lookahead := cfg.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	s := &Session{
		run:      run,
		dev:      dev,
		nav:      navigator.New(ds.Sentences, size),
		ds:       ds,
		mode:     cfg.Mode,
		revealed: cfg.Mode != ModeRecall,
		updates:  make(chan Update, buf),

		prefetch:  cfg.Prefetcher,
		lookahead: lookahead,
	}
	s.nav.SelectChunk(cfg.Chunk)

	ctrl, err := sequencer.New(run, dev, s.nav, observer{s}, sequencer.Options{
		Timing:  cfg.Timing,
		Rate:    cfg.Rate,
		Looping: cfg.Looping,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create controller: %w", err)
	}
	s.ctrl = ctrl

	log.Debug("session created",
		"source", ds.Source,
		"sentences", ds.Len(),
		"chunk", s.nav.Chunk(),
		"chunk_size", s.nav.ChunkSize(),
		"mode", s.mode)
	return s, nil
}

// Updates delivers view changes and notices. Updates are dropped when the
// channel is full. The channel is closed by Close.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Close stops playback, closes the device and, for sessions created with
// Open, the event loop.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.run.Do(func() {
			s.ctrl.StopAll()
			s.closed = true
		})
		err = s.dev.Close()
		if s.loop != nil {
			s.loop.Close()
		}
		close(s.updates)
	})
	return err
}

// Snapshot returns the current view.
func (s *Session) Snapshot() (View, error) {
	var v View
	err := s.run.Do(func() { v = s.view() })
	return v, err
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() (*dataset.Dataset, error) {
	var ds *dataset.Dataset
	err := s.run.Do(func() { ds = s.ds })
	return ds, err
}

// TogglePlayPause stops whatever is playing, continuous play included, or
// plays the current sentence.
func (s *Session) TogglePlayPause() error {
	return s.run.Do(func() {
		switch {
		case s.ctrl.Continuous():
			s.ctrl.StopAll()
		case s.ctrl.Playing():
			s.ctrl.Stop()
		default:
			if !s.ctrl.PlayCurrent() {
				log.Debug("nothing to play")
			}
		}
	})
}

// Next moves to the next sentence of the chunk.
func (s *Session) Next() error {
	return s.run.Do(func() { s.move(s.nav.Index() + 1) })
}

// Previous moves to the previous sentence of the chunk.
func (s *Session) Previous() error {
	return s.run.Do(func() { s.move(s.nav.Index() - 1) })
}

// Jump moves to sentence i of the chunk.
func (s *Session) Jump(i int) error {
	return s.run.Do(func() { s.move(i) })
}

// Locate moves to sentence i of the whole dataset, switching chunks when
// needed.
func (s *Session) Locate(i int) error {
	return s.run.Do(func() {
		if i < 0 || i >= s.nav.Total() {
			return
		}
		c := i / s.nav.ChunkSize()
		if c != s.nav.Chunk() {
			s.halt()
			s.loadChunk(c)
		}
		start, _ := s.nav.Bounds(c)
		s.move(i - start)
	})
}

// ToggleLoop flips single-sentence looping.
func (s *Session) ToggleLoop() error {
	return s.run.Do(func() { s.ctrl.ToggleLoop() })
}

// SetRate sets the playback rate.
func (s *Session) SetRate(rate float64) error {
	return s.call(func() error { return s.ctrl.SetRate(rate) })
}

// Faster steps the playback rate up.
func (s *Session) Faster() error {
	return s.run.Do(func() { s.ctrl.Faster() })
}

// Slower steps the playback rate down.
func (s *Session) Slower() error {
	return s.run.Do(func() { s.ctrl.Slower() })
}

// Reveal shows the hidden translation and plays the sentence if nothing is
// playing.
func (s *Session) Reveal() error {
	return s.run.Do(func() {
		s.revealed = true
		if cur, ok := s.nav.Current(); ok && !s.ctrl.Playing() && cur.HasAudio() {
			s.ctrl.Play(cur)
		}
		s.changed()
	})
}

// StartAll plays the whole chunk.
func (s *Session) StartAll() error {
	return s.call(func() error {
		if err := s.ctrl.StartAll(); err != nil {
			s.notice(sequencer.LevelWarn, "There are no sentences in this chunk to play.")
			return err
		}
		return nil
	})
}

// StopAll ends continuous play.
func (s *Session) StopAll() error {
	return s.run.Do(func() { s.ctrl.StopAll() })
}

// SetMode switches between read and recall. Playback halts.
func (s *Session) SetMode(m Mode) error {
	return s.run.Do(func() {
		s.halt()
		s.mode = m
		s.revealed = m != ModeRecall
		log.Debug("mode changed", "mode", m)
		s.changed()
	})
}

// SelectChunk loads chunk c, clamped into range.
func (s *Session) SelectChunk(c int) error {
	return s.run.Do(func() {
		s.halt()
		s.loadChunk(c)
	})
}

// SetChunkSize changes the chunk size and reloads the selected chunk.
func (s *Session) SetChunkSize(n int) error {
	return s.run.Do(func() {
		s.halt()
		s.nav.SetChunkSize(n)
		s.loadChunk(s.nav.Chunk())
	})
}

// ReplaceDataset swaps in a reloaded dataset, keeping the chunk number
// when it still exists.
func (s *Session) ReplaceDataset(ds *dataset.Dataset) error {
	if ds == nil {
		ds = &dataset.Dataset{}
	}
	return s.run.Do(func() {
		s.halt()
		s.ds = ds
		s.nav.SetDataset(ds.Sentences)
		log.Info("dataset replaced", "source", ds.Source, "sentences", ds.Len())
		s.loadChunk(s.nav.Chunk())
	})
}

func (s *Session) call(fn func() error) error {
	var err error
	if lerr := s.run.Do(func() { err = fn() }); lerr != nil {
		return lerr
	}
	return err
}

// move seeks to i. While something plays, the new sentence plays fresh.
func (s *Session) move(i int) {
	if i < 0 || i >= s.nav.Len() {
		return
	}
	busy := s.ctrl.Playing() || s.ctrl.Continuous()
	s.ctrl.Seek(i, busy)
	if s.mode == ModeRecall && !s.ctrl.Continuous() {
		s.revealed = false
	}
	s.changed()
}

func (s *Session) halt() {
	if s.ctrl.Continuous() {
		s.ctrl.StopAll()
		return
	}
	s.ctrl.Stop()
}

func (s *Session) loadChunk(c int) {
	c = s.nav.SelectChunk(c)
	s.revealed = s.mode != ModeRecall

	if s.nav.Len() == 0 {
		s.notice(sequencer.LevelWarn, fmt.Sprintf("Chunk %d is empty or could not be loaded.", c+1))
		return
	}
	s.notice(sequencer.LevelInfo, fmt.Sprintf("Chunk %d loaded!", c+1))
}

func (s *Session) view() View {
	cur, ok := s.nav.Current()
	return View{
		Playback:    s.ctrl.Snapshot(),
		Sentence:    cur,
		HasSentence: ok,
		Index:       s.nav.Index(),
		Len:         s.nav.Len(),
		Chunk:       s.nav.Chunk(),
		NumChunks:   s.nav.NumChunks(),
		ChunkSize:   s.nav.ChunkSize(),
		Total:       s.nav.Total(),
		Mode:        s.mode,
		Revealed:    s.revealed,
		Source:      s.ds.Source,
	}
}

func (s *Session) emit(u Update) {
	if s.closed {
		return
	}
	s.warm()
	select {
	case s.updates <- u:
	default:
		log.Debug("dropping session update", "notice", u.Notice != nil)
	}
}

// position identifies the displayed sentence.
type position struct {
	ds    *dataset.Dataset
	chunk int
	index int
	size  int
}

// warm hands the displayed sentence and the ones after it to the
// prefetcher when the position has changed since the last call.
func (s *Session) warm() {
	if s.prefetch == nil {
		return
	}
	pos := position{ds: s.ds, chunk: s.nav.Chunk(), index: s.nav.Index(), size: s.nav.ChunkSize()}
	if pos == s.warmed {
		return
	}
	s.warmed = pos

	cur, ok := s.nav.Current()
	if !ok {
		return
	}
	var upcoming []dataset.Sentence
	for i := 1; i <= s.lookahead; i++ {
		next, ok := s.nav.At(pos.index + i)
		if !ok {
			break
		}
		upcoming = append(upcoming, next)
	}
	s.prefetch.Prefetch(cur, upcoming)
}

func (s *Session) changed() {
	s.emit(Update{View: s.view()})
}

func (s *Session) notice(level sequencer.Level, text string) {
	s.emit(Update{View: s.view(), Notice: &sequencer.Notice{Text: text, Level: level}})
}

// observer forwards controller output onto the Updates channel.
type observer struct{ s *Session }

func (o observer) Changed(sequencer.Snapshot) { o.s.changed() }

func (o observer) Notice(n sequencer.Notice) { o.s.notice(n.Level, n.Text) }

func (o observer) Reveal() { o.s.revealed = true }
