package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/internal/config"
	"github.com/aretw0/zonerules/pkg/adapters/file"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.False(t, cfg.HasDefaultGroup())
}

func TestLoad_InlineGroup(t *testing.T) {
	path := writeConfig(t, "zonerules.yaml", `
log_level: debug
groups:
  - id: TZDB
    source: inline
    zones:
      - region: America/Testville
        version: 2024a
        standard_offset: "-05:00"
        posix: EST5EDT,M3.2.0,M11.1.0
aliases:
  TST: America/Testville
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.True(t, cfg.HasDefaultGroup())

	opts, closeFn, err := cfg.Build(nil)
	require.NoError(t, err)
	defer closeFn()

	svc, err := zonerules.New("", opts...)
	require.NoError(t, err)

	off, err := svc.Offset(context.Background(), "TST", time.Date(2031, time.July, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.MustOffset(-4, 0, 0), off)
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	provider := file.New(dir)
	for _, f := range ports.ContractFixtures() {
		require.NoError(t, provider.Save(context.Background(), schema.FromRules(f.Region, f.Version, f.Rules), ".yaml"))
	}

	path := writeConfig(t, "zonerules.json", `{
  "http_address": "127.0.0.1:9000",
  "groups": [{"id": "TZDB", "source": "dir", "path": "`+filepath.ToSlash(dir)+`"}]
}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddress)

	opts, closeFn, err := cfg.Build(nil)
	require.NoError(t, err)
	defer closeFn()

	svc, err := zonerules.New("", opts...)
	require.NoError(t, err)
	zones, err := svc.Zones(context.Background(), "TZDB")
	require.NoError(t, err)
	assert.Equal(t, []string{ports.ContractRegion}, zones)
}

func TestBuild_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{Groups: []config.Group{{ID: "TZDB", Source: config.SourceRedis, Address: mr.Addr()}}}
	require.NoError(t, cfg.Validate())

	opts, closeFn, err := cfg.Build(nil)
	require.NoError(t, err)

	svc, err := zonerules.New("", opts...)
	require.NoError(t, err)
	zones, err := svc.Zones(context.Background(), "TZDB")
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.NoError(t, closeFn())
}

func TestValidate(t *testing.T) {
	cfg := config.Config{Groups: []config.Group{
		{ID: "", Source: config.SourceInline},
		{ID: "A", Source: config.SourceDir},
		{ID: "A", Source: config.SourceRedis},
		{ID: "B", Source: "ftp"},
	}}
	err := cfg.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.ErrorContains(t, err, "groups[0]: id is required")
	assert.ErrorContains(t, err, "groups[1]: dir source needs a path")
	assert.ErrorContains(t, err, `groups[2]: duplicate group "A"`)
	assert.ErrorContains(t, err, "groups[2]: redis source needs an address")
	assert.ErrorContains(t, err, `groups[3]: unknown source "ftp"`)
}

func TestBuild_InlineErrors(t *testing.T) {
	cfg := config.Config{Groups: []config.Group{{
		ID:     "TZDB",
		Source: config.SourceInline,
		Zones:  []map[string]any{{"region": "Nowhere/Bad", "version": "1", "standard_offset": "+25:00"}},
	}}}
	_, _, err := cfg.Build(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.ErrorContains(t, err, "zones[0]")

	cfg.Groups[0].Zones = []map[string]any{{"region": "Nowhere/Bad", "colour": "blue"}}
	_, _, err = cfg.Build(nil)
	assert.ErrorContains(t, err, "colour")
}

func TestLoad_Broken(t *testing.T) {
	_, err := config.Load(writeConfig(t, "zonerules.yaml", "groups: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse zonerules.yaml")

	_, err = config.Load(writeConfig(t, "zonerules.yaml", "groups:\n  - id: X\n    source: ftp\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
