package zonerules

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	loamAdapter "github.com/aretw0/zonerules/pkg/adapters/loam"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/registry"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/aretw0/zonerules/pkg/zone"
)

// Service is the high-level entry point for the zonerules library.
// It binds a registry of rules providers to zone identifiers and answers
// offset queries by identifier.
type Service struct {
	registry  *registry.Registry
	providers map[string]ports.RulesProvider
	aliases   map[string]string
	parsed    map[string]zone.TimeZone
	hooks     domain.Hooks
	logger    *slog.Logger
	Name      string
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithProvider registers p for group, bypassing the default Loam repository.
func WithProvider(group string, p ports.RulesProvider) Option {
	return func(s *Service) {
		s.providers[group] = p
	}
}

// WithAliases maps short names such as "PST" to zone identifiers.
func WithAliases(aliases map[string]string) Option {
	return func(s *Service) {
		for k, v := range aliases {
			s.aliases[k] = v
		}
	}
}

// WithLogger sets a custom structured logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New initializes a new Service.
// By default, it serves the TZDB group from a Loam repository at repoPath.
// If a provider is registered for TZDB with WithProvider, repoPath can be empty
// and Loam is skipped.
func New(repoPath string, opts ...Option) (*Service, error) {
	s := &Service{
		providers: make(map[string]ports.RulesProvider),
		aliases:   make(map[string]string),
		parsed:    make(map[string]zone.TimeZone),
		Name:      repoPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if _, ok := s.providers[zone.DefaultGroup]; !ok && repoPath != "" {
		p, err := loamAdapter.Open(repoPath, s.logger)
		if err != nil {
			return nil, err
		}
		s.providers[zone.DefaultGroup] = p
	}
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("repoPath is required when no provider is registered")
	}

	for alias, id := range s.aliases {
		tz, err := zone.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", alias, err)
		}
		s.parsed[alias] = tz
	}

	s.registry = registry.NewRegistry(
		registry.WithHooks(s.hooks),
		registry.WithLogger(s.logger),
	)
	for group, p := range s.providers {
		s.registry.Register(group, p)
	}
	return s, nil
}

// Registry returns the registry the service resolves through.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Parse reads a zone identifier, consulting the aliases first.
func (s *Service) Parse(id string) (zone.TimeZone, error) {
	return zone.ParseWithAliases(id, s.parsed)
}

// Rules resolves a zone identifier to its engine.
func (s *Service) Rules(ctx context.Context, id string) (*rules.Rules, error) {
	tz, err := s.Parse(id)
	if err != nil {
		return nil, err
	}
	return tz.Rules(ctx, s.registry)
}

// Offset returns the offset in force in zone id at instant.
func (s *Service) Offset(ctx context.Context, id string, instant time.Time) (domain.Offset, error) {
	r, err := s.Rules(ctx, id)
	if err != nil {
		return domain.Offset{}, err
	}
	return r.OffsetAt(instant)
}

// Resolve classifies local against zone id.
func (s *Service) Resolve(ctx context.Context, id string, local domain.LocalDateTime) (domain.OffsetInfo, error) {
	tz, err := s.Parse(id)
	if err != nil {
		return domain.OffsetInfo{}, err
	}
	r, err := tz.Rules(ctx, s.registry)
	if err != nil {
		return domain.OffsetInfo{}, err
	}
	info, err := r.ResolveLocal(local)
	if err != nil {
		return domain.OffsetInfo{}, err
	}

	s.hooks.LocalResolved(ctx, &domain.LocalEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventLocalResolved, ZoneID: tz.ID()},
		Local:     local,
		Kind:      info.Kind(),
	})
	return info, nil
}

// Check verifies that the rules zone id resolves to accept odt. A floating
// zone is checked against its newest version. The error wraps
// domain.ErrOffsetMismatch when the rules reject odt.
func (s *Service) Check(ctx context.Context, id string, odt domain.OffsetDateTime) (*rules.Rules, error) {
	tz, err := s.Parse(id)
	if err != nil {
		return nil, err
	}
	return tz.CheckAt(ctx, s.registry, odt)
}

// RulesFor returns the rules of zone id that accept odt. A floating zone
// walks its versions newest first.
func (s *Service) RulesFor(ctx context.Context, id string, odt domain.OffsetDateTime) (*rules.Rules, error) {
	tz, err := s.Parse(id)
	if err != nil {
		return nil, err
	}
	return tz.RulesFor(ctx, s.registry, odt)
}

// IsValid reports whether zone id can be resolved.
func (s *Service) IsValid(ctx context.Context, id string) bool {
	tz, err := s.Parse(id)
	if err != nil {
		return false
	}
	return tz.IsValid(ctx, s.registry)
}

// Transitions lists the transitions of zone id in [from, to).
func (s *Service) Transitions(ctx context.Context, id string, from, to time.Time) ([]domain.Transition, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends at %s before it starts at %s", domain.ErrInvalidArgument, to, from)
	}
	r, err := s.Rules(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.TransitionsBetween(from, to), nil
}

// Zones lists the regions of group.
func (s *Service) Zones(ctx context.Context, group string) ([]string, error) {
	return s.registry.Regions(ctx, group)
}

// Watch drops cached rules whenever a watchable provider reports a change,
// until ctx is cancelled.
func (s *Service) Watch(ctx context.Context) error {
	return s.registry.Watch(ctx)
}
