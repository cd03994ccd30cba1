package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
)

// Overlay marks the period in force at an instant.
type Overlay struct {
	At time.Time
}

// GenerateMermaid produces a Mermaid flowchart of the offset periods
// separated by ts, which must be sorted. Each period is a node labelled with
// its offset; each transition is an edge labelled with its instant:
// - Gap: solid arrow, the clock jumps forward
// - Overlap: dotted arrow, the clock falls back
// The overlay, if provided, highlights the period containing At.
func GenerateMermaid(zoneID string, ts []domain.Transition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	fmt.Fprintf(&sb, "    %%%% %s\n", zoneID)

	if len(ts) == 0 {
		sb.WriteString("    p0([\"no transitions\"])\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "    p0([\"%s\"])\n", ts[0].OffsetBefore().ID())
	for i, t := range ts {
		fmt.Fprintf(&sb, "    p%d([\"%s\"])\n", i+1, t.OffsetAfter().ID())

		label := fmt.Sprintf("%s %s", kindOf(t), t.Instant().UTC().Format(time.RFC3339))
		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if t.IsOverlap() {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		fmt.Fprintf(&sb, "    p%d %s p%d\n", i, arrow, i+1)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class p%d current;\n", periodAt(ts, overlay.At))
	}

	return sb.String()
}

func kindOf(t domain.Transition) string {
	if t.IsGap() {
		return "gap"
	}
	return "overlap"
}

// periodAt returns the index of the period containing at.
func periodAt(ts []domain.Transition, at time.Time) int {
	i := 0
	for i < len(ts) && !at.Before(ts[i].Instant()) {
		i++
	}
	return i
}
