package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/pkg/adapters/file"
	loamAdapter "github.com/aretw0/zonerules/pkg/adapters/loam"
	"github.com/aretw0/zonerules/pkg/adapters/memory"
	"github.com/aretw0/zonerules/pkg/adapters/redis"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/schema"
	"github.com/aretw0/zonerules/pkg/zone"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "zonerules.yaml"

// Group sources.
const (
	SourceDir    = "dir"
	SourceLoam   = "loam"
	SourceRedis  = "redis"
	SourceInline = "inline"
)

// Group binds a group ID to the provider serving it.
type Group struct {
	ID       string           `yaml:"id" json:"id"`
	Source   string           `yaml:"source" json:"source"`
	Path     string           `yaml:"path,omitempty" json:"path,omitempty"`
	Address  string           `yaml:"address,omitempty" json:"address,omitempty"`
	Password string           `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int              `yaml:"db,omitempty" json:"db,omitempty"`
	Prefix   string           `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Zones    []map[string]any `yaml:"zones,omitempty" json:"zones,omitempty"`
}

// Config represents the structure of zonerules.yaml.
type Config struct {
	LogLevel    string            `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	HTTPAddress string            `yaml:"http_address,omitempty" json:"http_address,omitempty"`
	Groups      []Group           `yaml:"groups,omitempty" json:"groups,omitempty"`
	Aliases     map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{LogLevel: "info", HTTPAddress: ":8080"}
}

// Load reads a configuration file (YAML or JSON by extension).
// A missing file yields Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every group, reporting all problems at once.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, g := range c.Groups {
		switch {
		case g.ID == "":
			errs = append(errs, fmt.Errorf("groups[%d]: id is required", i))
		case seen[g.ID]:
			errs = append(errs, fmt.Errorf("groups[%d]: duplicate group %q", i, g.ID))
		}
		seen[g.ID] = true

		switch g.Source {
		case SourceDir, SourceLoam:
			if g.Path == "" {
				errs = append(errs, fmt.Errorf("groups[%d]: %s source needs a path", i, g.Source))
			}
		case SourceRedis:
			if g.Address == "" {
				errs = append(errs, fmt.Errorf("groups[%d]: redis source needs an address", i))
			}
		case SourceInline:
		default:
			errs = append(errs, fmt.Errorf("groups[%d]: unknown source %q", i, g.Source))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, errors.Join(errs...))
	}
	return nil
}

// Build turns the configuration into service options. The returned close
// function releases connections opened for redis groups.
func (c Config) Build(logger *slog.Logger) ([]zonerules.Option, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		opts    []zonerules.Option
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	for _, g := range c.Groups {
		switch g.Source {
		case SourceDir:
			opts = append(opts, zonerules.WithProvider(g.ID, file.New(g.Path)))
		case SourceLoam:
			p, err := loamAdapter.Open(g.Path, logger)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("group %s: %w", g.ID, err)
			}
			opts = append(opts, zonerules.WithProvider(g.ID, p))
		case SourceRedis:
			prefix := g.Prefix
			if prefix == "" {
				prefix = redis.DefaultPrefix + strings.ToLower(g.ID) + ":"
			}
			p := redis.New(g.Address, g.Password, g.DB, redis.WithPrefix(prefix), redis.WithLogger(logger))
			closers = append(closers, p.Close)
			opts = append(opts, zonerules.WithProvider(g.ID, p))
		case SourceInline:
			p, err := inlineProvider(g)
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			opts = append(opts, zonerules.WithProvider(g.ID, p))
		}
	}

	if len(c.Aliases) > 0 {
		opts = append(opts, zonerules.WithAliases(c.Aliases))
	}
	return opts, closeAll, nil
}

// HasGroup reports whether id is configured, e.g. to skip the default repository.
func (c Config) HasGroup(id string) bool {
	for _, g := range c.Groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

// HasDefaultGroup reports whether the default group is configured.
func (c Config) HasDefaultGroup() bool {
	return c.HasGroup(zone.DefaultGroup)
}

func inlineProvider(g Group) (*memory.Provider, error) {
	p := memory.NewProvider()
	for i, raw := range g.Zones {
		doc, err := schema.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("group %s zones[%d]: %w", g.ID, i, err)
		}
		r, err := doc.Build()
		if err != nil {
			return nil, fmt.Errorf("group %s zones[%d]: %w", g.ID, i, err)
		}
		if err := p.Add(doc.Region, doc.Version, r); err != nil {
			return nil, fmt.Errorf("group %s zones[%d]: %w", g.ID, i, err)
		}
	}
	return p, nil
}
