package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/parrot/internal/dataset"
)

const maxMatches = 5

type promptKind int

const (
	promptNone promptKind = iota
	promptFind
	promptChunk
	promptChunkSize
)

// prompt is the one-line input used to find a sentence, pick a chunk or
// change the chunk size.
type prompt struct {
	kind   promptKind
	input  textinput.Model
	pool   []dataset.Sentence
	result []dataset.Match
	cursor int
}

func newPrompt() prompt {
	ti := textinput.New()
	ti.PromptStyle = promptStyle
	ti.Cursor.Style = promptStyle
	ti.CharLimit = 120
	return prompt{input: ti}
}

func (p *prompt) active() bool {
	return p.kind != promptNone
}

func (p *prompt) open(kind promptKind, pool []dataset.Sentence) tea.Cmd {
	p.kind = kind
	p.pool = pool
	p.result = nil
	p.cursor = 0
	p.input.Reset()

	switch kind {
	case promptFind:
		p.input.Prompt = "Find: "
		p.input.Placeholder = "words or a sentence number"
	case promptChunk:
		p.input.Prompt = "Chunk: "
		p.input.Placeholder = "number"
	case promptChunkSize:
		p.input.Prompt = "Chunk size: "
		p.input.Placeholder = "1-100"
	}
	return p.input.Focus()
}

func (p *prompt) close() {
	p.kind = promptNone
	p.pool = nil
	p.result = nil
	p.input.Blur()
}

func (p *prompt) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && p.kind == promptFind {
		switch key.String() {
		case "up", "ctrl+p":
			p.cursor = max(0, p.cursor-1)
			return nil
		case "down", "ctrl+n":
			p.cursor = min(max(0, len(p.result)-1), p.cursor+1)
			return nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.kind == promptFind {
		p.search()
	}
	return cmd
}

func (p *prompt) search() {
	q := strings.TrimSpace(p.input.Value())
	if q == "" || isNumber(q) {
		p.result = nil
		p.cursor = 0
		return
	}
	p.result = dataset.Search(p.pool, q)
	if len(p.result) > maxMatches {
		p.result = p.result[:maxMatches]
	}
	p.cursor = min(p.cursor, max(0, len(p.result)-1))
}

// number returns the entered value as an integer.
func (p *prompt) number() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(p.input.Value()))
	return n, err == nil
}

// selected returns the dataset index of the highlighted match.
func (p *prompt) selected() (int, bool) {
	if len(p.result) == 0 {
		return 0, false
	}
	return p.result[p.cursor].Index, true
}

func (p prompt) view(width int) string {
	var b strings.Builder
	b.WriteString(p.input.View())
	for i, m := range p.result {
		line := truncate.StringWithTail("  "+p.pool[m.Index].Target, uint(max(0, width-2)), ellipsis) //nolint:gosec
		if i == p.cursor {
			line = selectedMatchStyle("› " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
