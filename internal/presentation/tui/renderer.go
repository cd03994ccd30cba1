package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
// When styled is false, or glamour cannot start, the markdown is returned as is.
func NewRenderer(styled bool) func(string) (string, error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// TransitionsMarkdown renders ts as a markdown table headed by zoneID.
func TransitionsMarkdown(zoneID string, ts []domain.Transition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", zoneID)
	if len(ts) == 0 {
		b.WriteString("_No transitions in range._\n")
		return b.String()
	}
	b.WriteString("| Instant (UTC) | Kind | Local before | Local after | Offset |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, t := range ts {
		kind := domain.Overlap
		if t.IsGap() {
			kind = domain.Gap
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s → %s |\n",
			t.Instant().UTC().Format(time.RFC3339),
			kind,
			t.LocalBefore(),
			t.LocalAfter(),
			t.OffsetBefore().ID(),
			t.OffsetAfter().ID(),
		)
	}
	return b.String()
}

// KindLabel returns the resolution kind, coloured when colored is set:
// green for normal, red for gap and yellow for overlap.
func KindLabel(kind domain.ResolutionKind, colored bool) string {
	if !colored {
		return kind.String()
	}
	p := termenv.ColorProfile()
	var color string
	switch kind {
	case domain.Gap:
		color = "#f87171"
	case domain.Overlap:
		color = "#facc15"
	default:
		color = "#4ade80"
	}
	return termenv.String(kind.String()).Foreground(p.Color(color)).Bold().String()
}
