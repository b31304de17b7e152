// Package ui provides the study screen for the parrot application.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/parrot/internal/sequencer"
	"github.com/dgnsrekt/parrot/internal/session"
)

// NewProgram returns a new Tea program driving sess.
func NewProgram(cfg Config, sess *session.Session) *tea.Program {
	log.Debug(
		"Starting parrot",
		"glamour", cfg.GlamourEnabled,
		"style", cfg.GlamourStyle,
		"practice_minutes", cfg.PracticeMinutes,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, sess), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// fatalErrMsg ends the program after the error is shown.
type fatalErrMsg struct{ err error }

type (
	updateMsg               session.Update
	snapshotMsg             session.View
	sessionClosedMsg        struct{}
	statusMessageTimeoutMsg struct{}
)

// state is the top-level application state.
type state int

const (
	stateBrowse state = iota
	stateStatusMessage
)

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	sess    *session.Session
	updates <-chan session.Update
	view    session.View

	renderer *cardRenderer
	viewport viewport.Model
	cardKey  string

	showHelp bool
	prompt   prompt
	practice practiceTimer

	statusMessage      string
	statusLevel        sequencer.Level
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, sess *session.Session) model {
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 3 * time.Second
	}
	common := &commonModel{cfg: cfg}
	return model{
		common:   common,
		state:    stateBrowse,
		sess:     sess,
		updates:  sess.Updates(),
		renderer: newCardRenderer(cfg),
		viewport: viewport.New(0, 0),
		prompt:   newPrompt(),
		practice: newPracticeTimer(cfg.PracticeMinutes),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), snapshot(m.sess))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompt.active() {
			return m, m.updatePrompt(msg)
		}
		return m.handleKey(msg)

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.prompt.input.Width = max(0, msg.Width-16)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(0, msg.Height-statusBarHeight)
		m.renderCard()

	case updateMsg:
		m.view = msg.View
		if msg.Notice != nil {
			cmds = append(cmds, m.showStatusMessage(*msg.Notice))
		}
		m.renderCard()
		cmds = append(cmds, waitForUpdate(m.updates))

	case snapshotMsg:
		m.view = session.View(msg)
		m.renderCard()

	case sessionClosedMsg:
		log.Debug("session closed")
		return m, tea.Quit

	case statusMessageTimeoutMsg:
		m.state = stateBrowse

	case fatalErrMsg:
		log.Error("fatal error", "error", msg.err)
		m.fatalErr = msg.err

	case errMsg:
		if errors.Is(msg.err, sequencer.ErrLoopClosed) {
			return m, tea.Quit
		}
		cmds = append(cmds, m.showStatusMessage(sequencer.Notice{Text: msg.Error(), Level: sequencer.LevelError}))

	default:
		cmd, expired := m.practice.update(msg)
		cmds = append(cmds, cmd)
		if expired {
			log.Info("practice timer expired")
			cmds = append(cmds, m.showStatusMessage(sequencer.Notice{Text: switchAlert, Level: sequencer.LevelInfo}))
		}
		if m.prompt.active() {
			cmds = append(cmds, m.prompt.update(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.practice.alert = false
	v := m.view

	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "ctrl+z":
		return m, tea.Suspend

	case "esc":
		if m.showHelp {
			m.showHelp = false
		}
		m.state = stateBrowse
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case " ":
		err = m.sess.TogglePlayPause()
	case "left", "h", "p":
		err = m.sess.Previous()
	case "right", "l", "n":
		err = m.sess.Next()
	case "r", "enter":
		err = m.sess.Reveal()
	case "a":
		if v.Playback.Continuous {
			err = m.sess.StopAll()
		} else {
			err = m.sess.StartAll()
		}
	case "o":
		err = m.sess.ToggleLoop()
	case "+", "=":
		err = m.sess.Faster()
	case "-", "_":
		err = m.sess.Slower()
	case "m":
		next := session.ModeRecall
		if v.Mode == session.ModeRecall {
			next = session.ModeRead
		}
		err = m.sess.SetMode(next)
	case "[":
		if v.Chunk > 0 {
			err = m.sess.SelectChunk(v.Chunk - 1)
		}
	case "]":
		if v.Chunk+1 < v.NumChunks {
			err = m.sess.SelectChunk(v.Chunk + 1)
		}

	case "c":
		return m, m.prompt.open(promptChunk, nil)
	case "s":
		return m, m.prompt.open(promptChunkSize, nil)
	case "/":
		ds, err := m.sess.Dataset()
		if err != nil {
			return m, errCmd(err)
		}
		return m, m.prompt.open(promptFind, ds.Sentences)

	case "y":
		if !v.HasSentence {
			return m, nil
		}
		text := copyText(v)
		// Copy using OSC 52
		termenv.Copy(text)
		// Copy using native system clipboard
		_ = clipboard.WriteAll(text)
		return m, m.showStatusMessage(sequencer.Notice{Text: "Copied sentence"})

	case "t":
		return m, m.practice.toggle()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if err != nil && !errors.Is(err, sequencer.ErrEmptyChunk) {
		return m, errCmd(err)
	}
	return m, nil
}

func (m *model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.prompt.close()
		return nil
	case "enter":
		err := m.submitPrompt()
		m.prompt.close()
		if err != nil {
			return errCmd(err)
		}
		return nil
	}
	return m.prompt.update(msg)
}

func (m *model) submitPrompt() error {
	switch m.prompt.kind {
	case promptChunk:
		if n, ok := m.prompt.number(); ok {
			return m.sess.SelectChunk(n - 1)
		}
	case promptChunkSize:
		if n, ok := m.prompt.number(); ok {
			return m.sess.SetChunkSize(n)
		}
	case promptFind:
		if n, ok := m.prompt.number(); ok {
			return m.sess.Jump(n - 1)
		}
		if i, ok := m.prompt.selected(); ok {
			return m.sess.Locate(i)
		}
	}
	return nil
}

// showStatusMessage shows a notice in the status bar for a while.
func (m *model) showStatusMessage(n sequencer.Notice) tea.Cmd {
	m.state = stateStatusMessage
	m.statusMessage = n.Text
	m.statusLevel = n.Level
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(m.common.cfg.StatusTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m *model) renderCard() {
	v := m.view
	width := m.common.width
	key := fmt.Sprintf("%s|%d|%v|%v|%d|%d", v.Sentence.ID, v.Index, v.Mode, v.Revealed, v.Total, width)
	if key == m.cardKey {
		return
	}

	md := emptyMarkdown(v.Total)
	if v.HasSentence {
		md = cardMarkdown(v.Sentence, v.Mode, v.Revealed, m.common.cfg)
	}
	out, err := m.renderer.render(md, width)
	if err != nil {
		log.Error("error rendering with Glamour", "error", err)
		out = md
	}
	m.viewport.SetContent(out)
	m.viewport.GotoTop()
	m.cardKey = key
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var footer []string
	if m.practice.alert {
		footer = append(footer, lipgloss.PlaceHorizontal(m.common.width, lipgloss.Center, alertStyle(switchAlert)))
	}
	if m.prompt.active() {
		footer = append(footer, m.prompt.view(m.common.width))
	}

	var bar strings.Builder
	statusBar{
		width:   m.common.width,
		view:    m.view,
		message: m.statusMessage,
		level:   m.statusLevel,
		showMsg: m.state == stateStatusMessage,
		timer:   m.practice.view(),
	}.render(&bar)
	footer = append(footer, bar.String())
	if m.showHelp {
		footer = append(footer, helpView(m.common.width))
	}

	bottom := strings.Join(footer, "\n")

	vp := m.viewport
	vp.Height = max(0, m.common.height-lipgloss.Height(bottom))
	if vp.Height == 0 {
		return bottom
	}
	return vp.View() + "\n" + bottom
}

// copyText is the sentence as plain text.
func copyText(v session.View) string {
	parts := []string{v.Sentence.Target}
	if v.Sentence.Translation != "" {
		parts = append(parts, v.Sentence.Translation)
	}
	return strings.Join(parts, "\n")
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle("ERROR"),
		err,
		subtleStyle(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func waitForUpdate(ch <-chan session.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return sessionClosedMsg{}
		}
		return updateMsg(u)
	}
}

func snapshot(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		v, err := sess.Snapshot()
		if err != nil {
			return fatalErrMsg{err}
		}
		return snapshotMsg(v)
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg { return errMsg{err} }
}
