package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/parrot/internal/sequencer"
	"github.com/dgnsrekt/parrot/internal/session"
)

const (
	statusBarHeight = 1
	ellipsis        = "…"
)

func stateIcon(s sequencer.State) string {
	switch s {
	case sequencer.LoadingSource, sequencer.LoadingTranslation:
		return "◌"
	case sequencer.PlayingSource, sequencer.PlayingTranslation:
		return "▶"
	case sequencer.GapBeforeTranslation:
		return "‖"
	default:
		return "■"
	}
}

// playbackNote summarises the playback state, e.g. "▶ source · 1.25x · loop".
func playbackNote(v session.View) string {
	p := v.Playback
	parts := []string{stateIcon(p.State)}
	if p.Clip != sequencer.ClipNone {
		parts[0] += " " + p.Clip.String()
	}
	parts = append(parts, sequencer.FormatRate(p.Rate))
	if p.Looping {
		parts = append(parts, "loop")
	}
	if p.Continuous {
		parts = append(parts, fmt.Sprintf("all %d/%d", p.Cursor+1, v.Len))
	}
	parts = append(parts, v.Mode.String())
	return strings.Join(parts, " · ")
}

// counterNote reads "3/10 · chunk 1/3 · 25 total".
func counterNote(v session.View) string {
	if v.Total == 0 {
		return "no sentences"
	}
	pos := 0
	if v.HasSentence {
		pos = v.Index + 1
	}
	return fmt.Sprintf("%d/%d · chunk %d/%d · %s total",
		pos, v.Len, v.Chunk+1, v.NumChunks, humanize.Comma(int64(v.Total)))
}

type statusBar struct {
	width   int
	view    session.View
	message string
	level   sequencer.Level
	showMsg bool
	timer   string // practice timer, empty when off
}

func (s statusBar) render(b *strings.Builder) {
	logo := logoStyle(" Parrot ")

	counter := " " + counterNote(s.view) + " "
	if s.timer != "" {
		counter = " " + s.timer + " ·" + counter
	}

	var helpNote string
	if s.showMsg {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	note := playbackNote(s.view)
	if s.showMsg {
		note = s.message
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		s.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(counter)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case s.showMsg && s.level == sequencer.LevelError:
		style = statusBarErrorStyle
	case s.showMsg:
		style = statusBarMessageStyle
	}
	note = style(note)

	padding := max(0,
		s.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(counter)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		statusBarCounterStyle(counter),
		helpNote,
	)
}
