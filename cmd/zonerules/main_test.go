package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlineConfig = `
log_level: error
groups:
  - id: TZDB
    source: inline
    zones:
      - region: America/Testville
        version: 2031a
        standard_offset: "-05:00"
        posix: EST5EDT,M3.2.0,M11.1.0
aliases:
  TST: America/Testville
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "zonerules.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(inlineConfig), 0644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "zonerules version "))
}

func TestIDCmd(t *testing.T) {
	out, err := run(t, "id", "Europe/Paris#2019a")
	require.NoError(t, err)
	assert.Contains(t, out, "id:      Europe/Paris#2019a")
	assert.Contains(t, out, "group:   TZDB")
	assert.Contains(t, out, "version: 2019a")

	out, err = run(t, "id", "Europe/Paris")
	require.NoError(t, err)
	assert.Contains(t, out, "version: (latest)")

	out, err = run(t, "id", "UTC+05:30")
	require.NoError(t, err)
	assert.Contains(t, out, "offset:  +05:30")

	_, err = run(t, "id", "Europe/Paris#a#b")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOffsetCmd(t *testing.T) {
	out, err := run(t, "offset", "TST", "--at", "2031-07-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "-04:00\n", out)

	out, err = run(t, "offset", "America/Testville#2031a", "--at", "2031-12-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "-05:00\n", out)

	_, err = run(t, "offset", "America/Atlantis")
	assert.ErrorIs(t, err, domain.ErrUnknownZone)

	_, err = run(t, "offset", "TST", "--at", "noon")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResolveCmd(t *testing.T) {
	out, err := run(t, "resolve", "TST", "2031-03-09T02:30")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2031-03-09T02:30 gap\n"), out)
	assert.Contains(t, out, "Transition[")

	out, err = run(t, "resolve", "TST", "2031-11-02T01:30")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2031-11-02T01:30 overlap -04:00 -05:00\n"), out)

	out, err = run(t, "resolve", "TST", "2031-06-15T12:00")
	require.NoError(t, err)
	assert.Equal(t, "2031-06-15T12:00 normal -04:00\n", out)
}

func TestTransitionsCmd(t *testing.T) {
	out, err := run(t, "transitions", "TST", "--from", "2031")
	require.NoError(t, err)
	assert.Contains(t, out, "# TST")
	assert.Contains(t, out, "| 2031-03-09T07:00:00Z | gap |")
	assert.Contains(t, out, "| 2031-11-02T06:00:00Z | overlap |")

	out, err = run(t, "transitions", "TST", "--from", "2031", "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, `p0 -- "gap 2031-03-09T07:00:00Z" --> p1`)

	_, err = run(t, "transitions", "TST", "--format", "svg")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	out, err = run(t, "transitions", "UTC", "--from", "2031")
	require.NoError(t, err)
	assert.Contains(t, out, "No transitions in range")
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()

	f := ports.ContractFixtures()[1]
	good := filepath.Join(dir, "good.yaml")
	data, err := schema.Marshal(good, schema.FromRules(f.Region, f.Version, f.Rules))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(good, data, 0644))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": "1", "standard_offset": "+25:00"}`), 0644))

	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, good+": ok")

	out, err = run(t, "validate", good, bad)
	assert.ErrorContains(t, err, "1 of 2 documents invalid")
	assert.Contains(t, out, bad+": invalid")
	assert.Contains(t, out, "  region: ")
	assert.Contains(t, out, "  standard_offset: ")
}
