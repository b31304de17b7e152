package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/parrot/internal/dataset"
	"github.com/dgnsrekt/parrot/internal/session"
)

const recallHint = "Listen and recall the sentence. Press **r** to reveal it."

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// cardMarkdown lays out a sentence as markdown. The target sentence, its
// native rendering and the gloss are hidden until the sentence is revealed.
func cardMarkdown(s dataset.Sentence, mode session.Mode, revealed bool, cfg Config) string {
	show := mode == session.ModeRead || revealed

	var b strings.Builder
	if show {
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(s.Target))
	}
	if s.Translation != "" {
		fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(s.Translation))
	}
	if !show {
		fmt.Fprintf(&b, "> %s\n", recallHint)
		return b.String()
	}

	if cfg.ShowNative && s.Native != "" {
		fmt.Fprintf(&b, "*%s*\n\n", escapeMarkdown(s.Native))
	}
	if cfg.ShowKeyword && s.HasGloss() {
		fmt.Fprintf(&b, "**Verb:** `%s`\n\n", strings.ReplaceAll(s.Keyword, "`", "'"))
		if s.KeywordTranslation != "" {
			fmt.Fprintf(&b, "- English: %s\n", escapeMarkdown(s.KeywordTranslation))
		}
		if s.KeywordNative != "" {
			fmt.Fprintf(&b, "- Native: %s\n", escapeMarkdown(s.KeywordNative))
		}
	}
	return b.String()
}

// emptyMarkdown is shown when there is no sentence to display.
func emptyMarkdown(total int) string {
	if total == 0 {
		return "## No sentences loaded.\n\nCheck the data source or try reloading the dataset.\n"
	}
	return "## No sentence to display.\n\nPick a chunk with **c** to begin your study session.\n"
}

// resolveStyle turns "auto" into the dark or light style for this terminal.
func resolveStyle(style string) string {
	if style == "" || style == styles.AutoStyle {
		if termenv.HasDarkBackground() {
			return styles.DarkStyle
		}
		return styles.LightStyle
	}
	return style
}

// cardRenderer renders cards with glamour, rebuilding its renderer when the
// width changes.
type cardRenderer struct {
	cfg      Config
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newCardRenderer(cfg Config) *cardRenderer {
	return &cardRenderer{cfg: cfg, style: resolveStyle(cfg.GlamourStyle)}
}

func (r *cardRenderer) render(md string, width int) (string, error) {
	if !r.cfg.GlamourEnabled {
		return md, nil
	}

	width = max(0, min(int(r.cfg.GlamourMaxWidth), width)) //nolint:gosec
	if r.renderer == nil || width != r.width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStylePath(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", fmt.Errorf("error creating glamour renderer: %w", err)
		}
		r.renderer, r.width = tr, width
	}

	out, err := r.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}
