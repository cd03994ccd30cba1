package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/rules"
	"golang.org/x/sync/singleflight"
)

// Registry maps group identifiers to rules providers.
// Resolved engines are cached per group, region and version; concurrent
// misses for the same key share a single provider call.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.RulesProvider

	cache  sync.Map // cacheKey -> *rules.Rules
	flight singleflight.Group

	// genMu orders cache stores against Invalidate.
	genMu       sync.Mutex
	generations map[string]uint64

	hooks  domain.Hooks
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		providers:   make(map[string]ports.RulesProvider),
		generations: make(map[string]uint64),
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider for groupID.
// If a provider for the group exists, it is overwritten and its cached rules dropped.
func (r *Registry) Register(groupID string, p ports.RulesProvider) {
	r.mu.Lock()
	r.providers[groupID] = p
	r.mu.Unlock()
	r.Invalidate(groupID)
}

// Provider returns the provider registered for groupID.
func (r *Registry) Provider(groupID string) (ports.RulesProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[groupID]
	return p, ok
}

// IsKnownGroup reports whether a provider is registered for groupID.
func (r *Registry) IsKnownGroup(groupID string) bool {
	_, ok := r.Provider(groupID)
	return ok
}

// Groups lists the registered group identifiers.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make([]string, 0, len(r.providers))
	for g := range r.providers {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func (r *Registry) provider(groupID string) (ports.RulesProvider, error) {
	p, ok := r.Provider(groupID)
	if !ok {
		return nil, fmt.Errorf("%w: group %q is not registered", domain.ErrUnknownZone, groupID)
	}
	return p, nil
}

func cacheKey(groupID, region, version string) string {
	return groupID + ":" + region + "#" + version
}

func (r *Registry) generation(groupID string) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.generations[groupID]
}

// store caches resolved unless groupID was invalidated since gen was read.
func (r *Registry) store(groupID string, gen uint64, key string, resolved *rules.Rules) bool {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.generations[groupID] != gen {
		return false
	}
	r.cache.Store(key, resolved)
	return true
}

// Rules returns the engine for region at version within groupID.
func (r *Registry) Rules(ctx context.Context, groupID, region, version string) (*rules.Rules, error) {
	start := time.Now()
	key := cacheKey(groupID, region, version)
	event := &domain.ResolveEvent{
		EventBase: domain.EventBase{Type: domain.EventRulesResolved, ZoneID: key},
		Group:     groupID,
		Region:    region,
		Version:   version,
	}
	defer func() {
		event.Timestamp = time.Now()
		event.Duration = time.Since(start)
		r.hooks.RulesResolved(ctx, event)
	}()

	if cached, ok := r.cache.Load(key); ok {
		event.Cached = true
		return cached.(*rules.Rules), nil
	}

	p, err := r.provider(groupID)
	if err != nil {
		event.Err = err
		return nil, err
	}

	// The shared lookup outlives any one caller's cancellation.
	gen := r.generation(groupID)
	shareCtx := context.WithoutCancel(ctx)
	v, err, shared := r.flight.Do(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		return p.Rules(shareCtx, region, version)
	})
	if err != nil {
		event.Err = err
		r.logger.Debug("rules lookup failed", "zone", key, "err", err)
		return nil, err
	}
	resolved := v.(*rules.Rules)
	cached := r.store(groupID, gen, key, resolved)
	r.logger.Debug("rules resolved", "zone", key, "shared", shared, "cached", cached)
	return resolved, nil
}

// LatestVersion returns the newest version of region within groupID.
func (r *Registry) LatestVersion(ctx context.Context, groupID, region string) (string, error) {
	p, err := r.provider(groupID)
	if err != nil {
		return "", err
	}
	shareCtx := context.WithoutCancel(ctx)
	v, err, _ := r.flight.Do("latest:"+groupID+":"+region, func() (any, error) {
		return p.LatestVersion(shareCtx, region)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Versions lists the versions of region within groupID, newest first.
func (r *Registry) Versions(ctx context.Context, groupID, region string) ([]string, error) {
	p, err := r.provider(groupID)
	if err != nil {
		return nil, err
	}
	return p.Versions(ctx, region)
}

// Regions lists the regions held by the provider of groupID.
func (r *Registry) Regions(ctx context.Context, groupID string) ([]string, error) {
	p, err := r.provider(groupID)
	if err != nil {
		return nil, err
	}
	return p.Regions(ctx)
}

// Invalidate drops the cached rules of groupID. Lookups already in flight
// still return their result but no longer cache it.
func (r *Registry) Invalidate(groupID string) {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	r.generations[groupID]++
	prefix := groupID + ":"
	r.cache.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			r.cache.Delete(k)
		}
		return true
	})
}

// Watch subscribes to every registered provider that implements ports.Watchable
// and invalidates the group's cache whenever its provider signals a change.
// The subscriptions end when ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	watchable := make(map[string]ports.Watchable)
	for g, p := range r.providers {
		if w, ok := p.(ports.Watchable); ok {
			watchable[g] = w
		}
	}
	r.mu.RUnlock()

	for groupID, w := range watchable {
		ch, err := w.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch group %s: %w", groupID, err)
		}
		go func(groupID string, ch <-chan struct{}) {
			for range ch {
				r.logger.Info("rules changed, dropping cache", "group", groupID)
				r.Invalidate(groupID)
			}
		}(groupID, ch)
	}
	return nil
}

var _ ports.Registry = (*Registry)(nil)
