package ports

import (
	"context"

	"github.com/aretw0/zonerules/pkg/rules"
)

// RulesProvider serves the versioned rules of one group of regions.
// Lookups for a region or version it does not hold return domain.ErrUnknownZone.
type RulesProvider interface {
	// Rules returns the engine for a region at a specific version.
	Rules(ctx context.Context, region, version string) (*rules.Rules, error)

	// LatestVersion returns the newest version available for region.
	LatestVersion(ctx context.Context, region string) (string, error)

	// Versions lists the versions available for region, newest first.
	Versions(ctx context.Context, region string) ([]string, error)

	// Regions lists the regions the provider holds, in ascending order.
	Regions(ctx context.Context) ([]string, error)
}

// Registry resolves group identifiers to rules. It is what a zone identity
// consults when it needs its engine.
type Registry interface {
	// IsKnownGroup reports whether a provider is registered for groupID.
	IsKnownGroup(groupID string) bool

	// Rules returns the engine for region at version within groupID.
	Rules(ctx context.Context, groupID, region, version string) (*rules.Rules, error)

	// LatestVersion returns the newest version of region within groupID.
	LatestVersion(ctx context.Context, groupID, region string) (string, error)

	// Versions lists the versions of region within groupID, newest first.
	Versions(ctx context.Context, groupID, region string) ([]string, error)
}

// Watchable defines an interface for providers that can notify about backend changes.
// This is typically used to drop cached rules when the source is edited.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying rules change.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
