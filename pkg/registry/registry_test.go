package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/zonerules/pkg/adapters/memory"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/registry"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider counts Rules calls and can signal changes.
type countingProvider struct {
	*memory.Provider
	calls   atomic.Int32
	changes chan struct{}
}

func (c *countingProvider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	c.calls.Add(1)
	return c.Provider.Rules(ctx, region, version)
}

func (c *countingProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	return c.changes, nil
}

// gatedProvider holds Rules calls until release is closed.
type gatedProvider struct {
	*countingProvider
	entered chan struct{}
	release chan struct{}
	ctxErrs chan error
}

func (g *gatedProvider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	g.entered <- struct{}{}
	<-g.release
	g.ctxErrs <- ctx.Err()
	return g.countingProvider.Rules(ctx, region, version)
}

func gated(t *testing.T) *gatedProvider {
	t.Helper()
	return &gatedProvider{
		countingProvider: seeded(t),
		entered:          make(chan struct{}, 1),
		release:          make(chan struct{}),
		ctxErrs:          make(chan error, 4),
	}
}

func seeded(t *testing.T) *countingProvider {
	t.Helper()
	p := &countingProvider{Provider: memory.NewProvider(), changes: make(chan struct{})}
	for _, f := range ports.ContractFixtures() {
		require.NoError(t, p.Add(f.Region, f.Version, f.Rules))
	}
	return p
}

func TestRegistry_Rules(t *testing.T) {
	ctx := context.Background()
	provider := seeded(t)

	var mu sync.Mutex
	var events []domain.ResolveEvent
	reg := registry.NewRegistry(registry.WithHooks(domain.Hooks{
		OnRulesResolved: func(_ context.Context, e *domain.ResolveEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, *e)
		},
	}))
	reg.Register("TZDB", provider)

	assert.True(t, reg.IsKnownGroup("TZDB"))
	assert.False(t, reg.IsKnownGroup("IANA"))
	assert.Equal(t, []string{"TZDB"}, reg.Groups())

	first, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
	require.NoError(t, err)
	second, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())

	require.Len(t, events, 2)
	assert.False(t, events[0].Cached)
	assert.True(t, events[1].Cached)
	assert.Equal(t, domain.EventRulesResolved, events[1].Type)
	assert.Equal(t, "TZDB:Europe/Testland#2019a", events[1].ZoneID)

	latest, err := reg.LatestVersion(ctx, "TZDB", ports.ContractRegion)
	require.NoError(t, err)
	assert.Equal(t, "2019a", latest)

	versions, err := reg.Versions(ctx, "TZDB", ports.ContractRegion)
	require.NoError(t, err)
	assert.Equal(t, []string{"2019a", "2018a"}, versions)

	regions, err := reg.Regions(ctx, "TZDB")
	require.NoError(t, err)
	assert.Equal(t, []string{ports.ContractRegion}, regions)
}

func TestRegistry_UnknownZone(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()
	reg.Register("TZDB", seeded(t))

	_, err := reg.Rules(ctx, "IANA", ports.ContractRegion, "2019a")
	assert.ErrorIs(t, err, domain.ErrUnknownZone)

	_, err = reg.LatestVersion(ctx, "IANA", ports.ContractRegion)
	assert.ErrorIs(t, err, domain.ErrUnknownZone)

	_, err = reg.Rules(ctx, "TZDB", "Nowhere/Atlantis", "2019a")
	assert.ErrorIs(t, err, domain.ErrUnknownZone)
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	provider := seeded(t)
	reg := registry.NewRegistry()
	reg.Register("TZDB", provider)

	var wg sync.WaitGroup
	results := make([]*rules.Rules, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2018a")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Equal(results[0]))
	}
	assert.LessOrEqual(t, provider.calls.Load(), int32(16))
}

func TestRegistry_WatchInvalidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := seeded(t)
	reg := registry.NewRegistry()
	reg.Register("TZDB", provider)
	require.NoError(t, reg.Watch(ctx))

	_, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
	require.NoError(t, err)
	require.Equal(t, int32(1), provider.calls.Load())

	provider.changes <- struct{}{}

	assert.Eventually(t, func() bool {
		_, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
		return err == nil && provider.calls.Load() == 2
	}, time.Second, 10*time.Millisecond)
	close(provider.changes)
}

func TestRegistry_InvalidateDuringLookup(t *testing.T) {
	ctx := context.Background()
	provider := gated(t)
	reg := registry.NewRegistry()
	reg.Register("TZDB", provider)

	done := make(chan error, 1)
	go func() {
		_, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
		done <- err
	}()

	<-provider.entered
	reg.Invalidate("TZDB")
	close(provider.release)
	require.NoError(t, <-done)

	// The stale lookup was not cached, so the provider is asked again.
	_, err := reg.Rules(ctx, "TZDB", ports.ContractRegion, "2019a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestRegistry_CancelledCallerDoesNotFailLookup(t *testing.T) {
	provider := gated(t)
	reg := registry.NewRegistry()
	reg.Register("TZDB", provider)

	callerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := reg.Rules(callerCtx, "TZDB", ports.ContractRegion, "2019a")
		done <- err
	}()

	<-provider.entered
	cancel()
	close(provider.release)

	require.NoError(t, <-done)
	assert.NoError(t, <-provider.ctxErrs)
}
