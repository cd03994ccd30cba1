package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/zonerules/internal/presentation/tui"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionsMarkdown(t *testing.T) {
	f := ports.ContractFixtures()[0]
	md := tui.TransitionsMarkdown("Europe/Testland#2018a", f.Rules.Transitions())

	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "# Europe/Testland#2018a", lines[0])
	assert.Equal(t, "| 2018-03-25T01:00:00Z | gap | 2018-03-25T02:00 | 2018-03-25T03:00 | +01:00 → +02:00 |", lines[4])
	assert.Contains(t, lines[5], "| overlap |")

	assert.Contains(t, tui.TransitionsMarkdown("UTC", nil), "No transitions in range")
}

func TestRendererPlain(t *testing.T) {
	out, err := tui.NewRenderer(false)("# Title")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "gap", tui.KindLabel(domain.Gap, false))
	assert.Contains(t, tui.KindLabel(domain.Overlap, true), "overlap")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
}
