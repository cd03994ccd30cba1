package zone

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/rules"
)

// DefaultGroup is the group assumed when an identifier names none.
const DefaultGroup = "TZDB"

// TimeZone identifies a zone: either a fixed offset, or a region of a group
// at a pinned or floating version.
//
// Constructing a TimeZone never consults a registry, so an identity may name
// a zone that does not exist; that surfaces as domain.ErrUnknownZone when its
// rules are resolved. The zero value is the fixed UTC zone.
//
// Copies share the rules cache. The cache assumes every resolution of one
// identity goes through the same registry.
type TimeZone struct {
	dynamic bool
	offset  domain.Offset
	group   string
	region  string
	version string

	resolved *atomic.Pointer[rules.Rules]
}

// UTC is the fixed zone with a zero offset.
var UTC = Fixed(domain.UTC)

// Fixed returns a zone that always applies offset. Its ID is "UTC" followed
// by the offset, or just "UTC" for a zero offset.
func Fixed(offset domain.Offset) TimeZone {
	tz := TimeZone{offset: offset, resolved: new(atomic.Pointer[rules.Rules])}
	tz.resolved.Store(rules.Fixed(offset))
	return tz
}

// Of returns a zone for region within group. An empty version floats to the
// newest rules available at each resolution.
func Of(group, region, version string) (TimeZone, error) {
	switch {
	case group == "" || strings.ContainsAny(group, ":#"):
		return TimeZone{}, fmt.Errorf("%w: group %q", domain.ErrInvalidArgument, group)
	case region == "" || strings.ContainsAny(region, ":#"):
		return TimeZone{}, fmt.Errorf("%w: region %q", domain.ErrInvalidArgument, region)
	case strings.ContainsAny(version, ":#"):
		return TimeZone{}, fmt.Errorf("%w: version %q", domain.ErrInvalidArgument, version)
	}
	return TimeZone{
		dynamic:  true,
		group:    group,
		region:   region,
		version:  version,
		resolved: new(atomic.Pointer[rules.Rules]),
	}, nil
}

// Parse reads a zone identifier:
//
//	UTC                          fixed, zero offset
//	UTC<offset>, GMT<offset>     fixed, e.g. "UTC+01:00" or "GMT-5"
//	[group:]region[#version]     group defaults to TZDB; no version floats
func Parse(id string) (TimeZone, error) {
	if id == "UTC" {
		return UTC, nil
	}
	if strings.HasPrefix(id, "UTC") || strings.HasPrefix(id, "GMT") {
		offset, err := domain.ParseOffset(id[3:])
		if err != nil {
			return TimeZone{}, fmt.Errorf("zone %q: %w", id, err)
		}
		return Fixed(offset), nil
	}

	group, rest := DefaultGroup, id
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		group, rest = rest[:i], rest[i+1:]
	}
	region, version := rest, ""
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		region, version = rest[:i], rest[i+1:]
	}
	tz, err := Of(group, region, version)
	if err != nil {
		return TimeZone{}, fmt.Errorf("zone %q: %w", id, err)
	}
	return tz, nil
}

// MustParse is like Parse but panics on error.
func MustParse(id string) TimeZone {
	tz, err := Parse(id)
	if err != nil {
		panic(err)
	}
	return tz
}

// ParseWithAliases looks id up in aliases before parsing it.
// Aliases are typically abbreviations such as "PST", which are not unique
// enough to be identifiers on their own.
func ParseWithAliases(id string, aliases map[string]TimeZone) (TimeZone, error) {
	if tz, ok := aliases[id]; ok {
		return tz, nil
	}
	return Parse(id)
}

// IsFixed reports whether the zone is a fixed offset.
func (tz TimeZone) IsFixed() bool { return !tz.dynamic }

// IsFloating reports whether the zone tracks the newest available rules.
func (tz TimeZone) IsFloating() bool { return tz.dynamic && tz.version == "" }

// Offset returns the offset of a fixed zone.
func (tz TimeZone) Offset() (domain.Offset, bool) { return tz.offset, !tz.dynamic }

// Group returns the group identifier; empty for fixed zones.
func (tz TimeZone) Group() string { return tz.group }

// Region returns the region identifier. Fixed zones report their ID.
func (tz TimeZone) Region() string {
	if !tz.dynamic {
		return tz.ID()
	}
	return tz.region
}

// Version returns the pinned version; empty when floating or fixed.
func (tz TimeZone) Version() string { return tz.version }

// WithVersion returns the same region pinned to version, or floating when
// version is empty. Fixed zones are returned unchanged.
func (tz TimeZone) WithVersion(version string) (TimeZone, error) {
	if !tz.dynamic {
		return tz, nil
	}
	return Of(tz.group, tz.region, version)
}

// ID renders the canonical identifier, the inverse of Parse. The default
// group and a floating version are omitted.
func (tz TimeZone) ID() string {
	if !tz.dynamic {
		if tz.offset == domain.UTC {
			return "UTC"
		}
		return "UTC" + tz.offset.ID()
	}
	var b strings.Builder
	if tz.group != DefaultGroup {
		b.WriteString(tz.group)
		b.WriteByte(':')
	}
	b.WriteString(tz.region)
	if tz.version != "" {
		b.WriteByte('#')
		b.WriteString(tz.version)
	}
	return b.String()
}

// String returns the ID.
func (tz TimeZone) String() string { return tz.ID() }

// Equal compares identities; resolved rules play no part.
func (tz TimeZone) Equal(other TimeZone) bool {
	return tz.dynamic == other.dynamic &&
		tz.offset == other.offset &&
		tz.group == other.group &&
		tz.region == other.region &&
		tz.version == other.version
}

// MarshalText implements encoding.TextMarshaler.
func (tz TimeZone) MarshalText() ([]byte, error) {
	return []byte(tz.ID()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (tz *TimeZone) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*tz = parsed
	return nil
}

// Rules resolves the zone to its engine.
//
// Fixed zones never consult reg. Pinned zones resolve once and reuse the
// result; concurrent first calls may each resolve, and any of their results
// may be kept. Floating zones resolve the newest version on every call.
func (tz TimeZone) Rules(ctx context.Context, reg ports.Registry) (*rules.Rules, error) {
	if tz.resolved != nil {
		if r := tz.resolved.Load(); r != nil {
			return r, nil
		}
	}
	if !tz.dynamic {
		return rules.Fixed(tz.offset), nil
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: no registry to resolve %s", domain.ErrInvalidArgument, tz.ID())
	}

	version := tz.version
	if version == "" {
		latest, err := reg.LatestVersion(ctx, tz.group, tz.region)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", tz.ID(), err)
		}
		version = latest
	}
	r, err := reg.Rules(ctx, tz.group, tz.region, version)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", tz.ID(), err)
	}
	if tz.version != "" && tz.resolved != nil {
		tz.resolved.CompareAndSwap(nil, r)
	}
	return r, nil
}

// RulesFor resolves the rules that accept odt.
//
// A fixed zone requires odt to carry its offset. A pinned zone requires its
// rules to accept odt. A floating zone returns the newest version whose rules
// accept odt. Otherwise the error wraps domain.ErrOffsetMismatch.
func (tz TimeZone) RulesFor(ctx context.Context, reg ports.Registry, odt domain.OffsetDateTime) (*rules.Rules, error) {
	if !tz.dynamic {
		if odt.Offset != tz.offset {
			return nil, fmt.Errorf("%w: zone %s rejects offset %s at %s", domain.ErrOffsetMismatch, tz.ID(), odt.Offset, odt.Local)
		}
		return tz.Rules(ctx, reg)
	}
	if !tz.IsFloating() {
		return tz.CheckAt(ctx, reg, odt)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: no registry to resolve %s", domain.ErrInvalidArgument, tz.ID())
	}

	versions, err := reg.Versions(ctx, tz.group, tz.region)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", tz.ID(), err)
	}
	for _, v := range versions {
		r, err := reg.Rules(ctx, tz.group, tz.region, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %s#%s: %w", tz.ID(), v, err)
		}
		if r.IsValidOffsetDateTime(odt) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: no version of %s accepts offset %s at %s", domain.ErrOffsetMismatch, tz.ID(), odt.Offset, odt.Local)
}

// IsValid reports whether the zone can be resolved. Fixed zones always can.
func (tz TimeZone) IsValid(ctx context.Context, reg ports.Registry) bool {
	if !tz.dynamic {
		return true
	}
	if reg == nil || !reg.IsKnownGroup(tz.group) {
		return false
	}
	_, err := tz.Rules(ctx, reg)
	return err == nil
}

// CheckAt resolves the zone as Rules does and requires the result to accept
// odt. The error wraps domain.ErrOffsetMismatch when it does not. Unlike
// RulesFor, a floating zone is checked against its newest version only.
func (tz TimeZone) CheckAt(ctx context.Context, reg ports.Registry, odt domain.OffsetDateTime) (*rules.Rules, error) {
	r, err := tz.Rules(ctx, reg)
	if err != nil {
		return nil, err
	}
	if !r.IsValidOffsetDateTime(odt) {
		return nil, fmt.Errorf("%w: zone %s rejects offset %s at %s", domain.ErrOffsetMismatch, tz.ID(), odt.Offset, odt.Local)
	}
	return r, nil
}

// IsValidAt reports whether the rules the zone resolves to accept odt.
func (tz TimeZone) IsValidAt(ctx context.Context, reg ports.Registry, odt domain.OffsetDateTime) bool {
	if tz.dynamic && (reg == nil || !reg.IsKnownGroup(tz.group)) {
		return false
	}
	_, err := tz.CheckAt(ctx, reg, odt)
	return err == nil
}
