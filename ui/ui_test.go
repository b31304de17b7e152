package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/parrot/internal/audio"
	"github.com/dgnsrekt/parrot/internal/dataset"
	"github.com/dgnsrekt/parrot/internal/sequencer"
	"github.com/dgnsrekt/parrot/internal/sequencer/sequencertest"
	"github.com/dgnsrekt/parrot/internal/session"
)

var testSentences = []dataset.Sentence{
	{ID: "a", Target: "bonjour le monde", Translation: "hello world", SourceAudio: "fr/a.mp3", TranslationAudio: "en/a.mp3"},
	{ID: "b", Target: "merci beaucoup", Translation: "thank you very much", Native: "faleminderit shumë", Keyword: "remercier", KeywordTranslation: "to thank"},
	{ID: "c", Target: "à demain", Translation: "see you tomorrow"},
	{ID: "d", Target: "bonne nuit", Translation: "good night"},
}

func testConfig() Config {
	return Config{
		GlamourMaxWidth: 80,
		ShowNative:      true,
		ShowKeyword:     true,
		PracticeMinutes: 1,
		StatusTimeout:   time.Millisecond,
	}
}

func newTestModel(t *testing.T, cfg session.Config) (model, *sequencertest.Manual) {
	t.Helper()

	sched := sequencertest.New()
	ds := &dataset.Dataset{Source: "test.json", Sentences: testSentences}
	sess, err := session.New(sched, audio.NewMockDevice(), ds, cfg)
	require.NoError(t, err)

	m := newModel(testConfig(), sess)
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	v, err := sess.Snapshot()
	require.NoError(t, err)
	m = send(t, m, snapshotMsg(v))
	return m, sched
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	out, _ := m.Update(msg)
	return out.(model)
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func snapshotOf(t *testing.T, m model) session.View {
	t.Helper()
	v, err := m.sess.Snapshot()
	require.NoError(t, err)
	return v
}

func TestCardMarkdownRead(t *testing.T) {
	md := cardMarkdown(testSentences[1], session.ModeRead, false, testConfig())

	assert.Contains(t, md, "## merci beaucoup")
	assert.Contains(t, md, "thank you very much")
	assert.Contains(t, md, "*faleminderit shumë*")
	assert.Contains(t, md, "**Verb:** `remercier`")
	assert.Contains(t, md, "- English: to thank")
	assert.NotContains(t, md, recallHint)
}

func TestCardMarkdownRecallHidesTarget(t *testing.T) {
	s := testSentences[1]

	hidden := cardMarkdown(s, session.ModeRecall, false, testConfig())
	assert.NotContains(t, hidden, s.Target)
	assert.NotContains(t, hidden, s.Native)
	assert.NotContains(t, hidden, s.Keyword)
	assert.Contains(t, hidden, s.Translation)
	assert.Contains(t, hidden, recallHint)

	shown := cardMarkdown(s, session.ModeRecall, true, testConfig())
	assert.Contains(t, shown, s.Target)
	assert.NotContains(t, shown, recallHint)
}

func TestCardMarkdownHonoursConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ShowNative = false
	cfg.ShowKeyword = false

	md := cardMarkdown(testSentences[1], session.ModeRead, false, cfg)
	assert.NotContains(t, md, "faleminderit")
	assert.NotContains(t, md, "Verb")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\*bold\* \_x\_ \# \[a\]`, escapeMarkdown("*bold* _x_ # [a]"))
}

func TestNotes(t *testing.T) {
	v := session.View{
		Playback: sequencer.Snapshot{
			State:      sequencer.PlayingSource,
			Clip:       sequencer.ClipSource,
			Rate:       1.25,
			Looping:    true,
			Continuous: true,
			Cursor:     1,
		},
		HasSentence: true,
		Index:       2,
		Len:         10,
		Chunk:       0,
		NumChunks:   3,
		Total:       1234,
		Mode:        session.ModeRecall,
	}

	assert.Equal(t, "▶ source · 1.25x · loop · all 2/10 · recall", playbackNote(v))
	assert.Equal(t, "3/10 · chunk 1/3 · 1,234 total", counterNote(v))
	assert.Equal(t, "no sentences", counterNote(session.View{}))

	v.Playback = sequencer.Snapshot{State: sequencer.Idle, Rate: 1}
	v.Mode = session.ModeRead
	assert.Equal(t, "■ · 1x · read", playbackNote(v))
}

func TestStatusBarFitsWidth(t *testing.T) {
	var b strings.Builder
	statusBar{
		width:   60,
		view:    session.View{Len: 1, Total: 1, NumChunks: 1, HasSentence: true, Playback: sequencer.Snapshot{Rate: 1}},
		message: strings.Repeat("long message ", 20),
		showMsg: true,
	}.render(&b)

	assert.Contains(t, b.String(), "Parrot")
	assert.NotContains(t, b.String(), "\n")
}

func TestPromptSearch(t *testing.T) {
	p := newPrompt()
	p.open(promptFind, testSentences)

	p.input.SetValue("merci")
	p.search()
	require.NotEmpty(t, p.result)
	i, ok := p.selected()
	require.True(t, ok)
	assert.Equal(t, 1, i)

	p.input.SetValue("3")
	p.search()
	assert.Empty(t, p.result)
	n, ok := p.number()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	p.close()
	assert.False(t, p.active())
}

func TestPracticeTimer(t *testing.T) {
	p := newPracticeTimer(2)
	assert.Equal(t, "", p.view())

	p.toggle()
	assert.True(t, p.started)
	assert.Contains(t, p.view(), "02:00")
}

func TestModelNavigation(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	m = send(t, m, keys("l"))
	assert.Equal(t, "b", snapshotOf(t, m).Sentence.ID)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "c", snapshotOf(t, m).Sentence.ID)

	m = send(t, m, keys("h"))
	assert.Equal(t, "b", snapshotOf(t, m).Sentence.ID)
}

func TestModelPlaybackKeys(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, snapshotOf(t, m).Playback.Playing())

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, snapshotOf(t, m).Playback.Playing())

	m = send(t, m, keys("+"))
	assert.Equal(t, 1.25, snapshotOf(t, m).Playback.Rate)

	m = send(t, m, keys("o"))
	assert.True(t, snapshotOf(t, m).Playback.Looping)

	m = send(t, m, keys("a"))
	assert.True(t, snapshotOf(t, m).Playback.Continuous)
	m = send(t, m, snapshotMsg(snapshotOf(t, m)))

	m = send(t, m, keys("a"))
	assert.False(t, snapshotOf(t, m).Playback.Continuous)
}

func TestModelModeToggle(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	m = send(t, m, keys("m"))
	v := snapshotOf(t, m)
	assert.Equal(t, session.ModeRecall, v.Mode)
	assert.False(t, v.Revealed)

	m = send(t, m, keys("r"))
	assert.True(t, snapshotOf(t, m).Revealed)
}

func TestModelChunkPrompt(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 2})

	m = send(t, m, keys("c"))
	require.True(t, m.prompt.active())
	m = send(t, m, keys("2"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.prompt.active())
	v := snapshotOf(t, m)
	assert.Equal(t, 1, v.Chunk)
	assert.Equal(t, "c", v.Sentence.ID)
}

func TestModelFindPrompt(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 2})

	m = send(t, m, keys("/"))
	for _, r := range "nuit" {
		m = send(t, m, keys(string(r)))
	}
	require.NotEmpty(t, m.prompt.result)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	v := snapshotOf(t, m)
	assert.Equal(t, "d", v.Sentence.ID)
	assert.Equal(t, 1, v.Chunk)
}

func TestModelPromptEscape(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 2})

	m = send(t, m, keys("s"))
	m = send(t, m, keys("9"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.prompt.active())
	assert.Equal(t, 2, snapshotOf(t, m).ChunkSize)
}

func TestModelNoticeShowsInStatusBar(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	n := sequencer.Notice{Text: "Chunk 1 loaded!"}
	m = send(t, m, updateMsg(session.Update{View: m.view, Notice: &n}))
	assert.Equal(t, stateStatusMessage, m.state)
	assert.Contains(t, m.View(), "Chunk 1 loaded!")

	m = send(t, m, statusMessageTimeoutMsg{})
	assert.Equal(t, stateBrowse, m.state)
	assert.NotContains(t, m.View(), "Chunk 1 loaded!")
}

func TestModelViewShowsCard(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	out := m.View()
	assert.Contains(t, out, "bonjour le monde")
	assert.Contains(t, out, "1/4")
	assert.Equal(t, 24, strings.Count(out, "\n")+1)

	m = send(t, m, keys("?"))
	assert.Contains(t, m.View(), "reveal")
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	_, cmd := m.Update(keys("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelFatalError(t *testing.T) {
	m, _ := newTestModel(t, session.Config{ChunkSize: 10})

	m = send(t, m, fatalErrMsg{errors.New("loop closed")})
	assert.Contains(t, m.View(), "ERROR")
	assert.Contains(t, m.View(), "loop closed")

	_, cmd := m.Update(keys("x"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
