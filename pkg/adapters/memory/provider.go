package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/rules"
)

// Provider implements ports.RulesProvider in memory.
// Safe for concurrent use.
type Provider struct {
	data map[string]map[string]*rules.Rules
	mu   sync.RWMutex
}

// NewProvider creates a new empty in-memory provider.
func NewProvider() *Provider {
	return &Provider{
		data: make(map[string]map[string]*rules.Rules),
	}
}

// Add stores r as region at version, replacing any previous entry.
func (p *Provider) Add(region, version string, r *rules.Rules) error {
	if region == "" || version == "" {
		return fmt.Errorf("%w: region and version are required", domain.ErrInvalidArgument)
	}
	if r == nil {
		return fmt.Errorf("%w: nil rules for %s#%s", domain.ErrInvalidArgument, region, version)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	versions, ok := p.data[region]
	if !ok {
		versions = make(map[string]*rules.Rules)
		p.data[region] = versions
	}
	versions[version] = r
	return nil
}

// Remove drops region at version. Removing an absent entry is not an error.
func (p *Provider) Remove(region, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data[region], version)
	if len(p.data[region]) == 0 {
		delete(p.data, region)
	}
}

// Rules returns the engine stored for region at version.
func (p *Provider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.data[region][version]
	if !ok {
		return nil, fmt.Errorf("%w: %s#%s", domain.ErrUnknownZone, region, version)
	}
	return r, nil
}

// LatestVersion returns the newest version stored for region.
func (p *Provider) LatestVersion(ctx context.Context, region string) (string, error) {
	versions, err := p.Versions(ctx, region)
	if err != nil {
		return "", err
	}
	return versions[0], nil
}

// Versions lists the versions stored for region, newest first.
func (p *Provider) Versions(ctx context.Context, region string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stored, ok := p.data[region]
	if !ok || len(stored) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownZone, region)
	}
	versions := make([]string, 0, len(stored))
	for v := range stored {
		versions = append(versions, v)
	}
	return domain.SortVersions(versions), nil
}

// Regions lists the stored regions.
func (p *Provider) Regions(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	regions := make([]string, 0, len(p.data))
	for r := range p.data {
		regions = append(regions, r)
	}
	sort.Strings(regions) // Deterministic order
	return regions, nil
}
