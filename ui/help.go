package ui

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

func helpView(width int) (s string) {
	col1 := []string{
		"space    play/stop",
		"←/h      previous sentence",
		"→/l      next sentence",
		"r/enter  reveal and play",
		"a        play the whole chunk",
		"o        loop this sentence",
		"+/-      faster/slower",
	}
	col2 := []string{
		"m        read/recall mode",
		"[/]      previous/next chunk",
		"c        go to chunk",
		"s        set chunk size",
		"/        find a sentence",
		"y        copy sentence",
		"t        practice timer",
	}

	s += "\n"
	for i := range col1 {
		s += padRight(col1[i], 30) + col2[i] + "\n"
	}
	s += "\n?        close help" + strings.Repeat(" ", 12) + "q        quit"

	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

func padRight(s string, n int) string {
	return s + strings.Repeat(" ", max(0, n-runewidth.StringWidth(s)))
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		b.WriteString(i + v + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
