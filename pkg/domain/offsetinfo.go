package domain

import "fmt"

// ResolutionKind classifies a local date-time against the rules of a zone.
type ResolutionKind int

const (
	// Normal means exactly one offset is valid.
	Normal ResolutionKind = iota
	// Gap means the local date-time was skipped; no offset is valid.
	Gap
	// Overlap means the local date-time occurred twice; two offsets are valid.
	Overlap
)

// String returns "normal", "gap" or "overlap".
func (k ResolutionKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Gap:
		return "gap"
	case Overlap:
		return "overlap"
	}
	return fmt.Sprintf("ResolutionKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ResolutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OffsetInfo is the result of resolving a local date-time.
// Exactly one of Normal, Gap or Overlap holds; Kind reports which.
type OffsetInfo struct {
	local      LocalDateTime
	kind       ResolutionKind
	offset     Offset
	transition Transition
}

// NewOffsetInfo returns a Normal resolution with a single valid offset.
func NewOffsetInfo(local LocalDateTime, offset Offset) OffsetInfo {
	return OffsetInfo{local: local, kind: Normal, offset: offset}
}

// NewDiscontinuity returns a Gap or Overlap resolution, depending on the transition.
func NewDiscontinuity(local LocalDateTime, transition Transition) OffsetInfo {
	kind := Overlap
	if transition.IsGap() {
		kind = Gap
	}
	return OffsetInfo{local: local, kind: kind, transition: transition}
}

// Local returns the local date-time this resolution applies to.
func (i OffsetInfo) Local() LocalDateTime { return i.local }

// Kind returns the variant that holds.
func (i OffsetInfo) Kind() ResolutionKind { return i.kind }

// IsDiscontinuity reports a gap or an overlap.
func (i OffsetInfo) IsDiscontinuity() bool { return i.kind != Normal }

// Offset returns the single valid offset of a Normal resolution.
func (i OffsetInfo) Offset() (Offset, bool) {
	return i.offset, i.kind == Normal
}

// Transition returns the discontinuity of a Gap or Overlap resolution.
func (i OffsetInfo) Transition() (Transition, bool) {
	return i.transition, i.kind != Normal
}

// EstimatedOffset returns the offset for Normal, and the offset after the
// transition otherwise. The latter is a convention, not a physically valid offset.
func (i OffsetInfo) EstimatedOffset() Offset {
	if i.kind == Normal {
		return i.offset
	}
	return i.transition.OffsetAfter()
}

// IsValidOffset reports whether offset is valid for the local date-time.
func (i OffsetInfo) IsValidOffset(offset Offset) bool {
	switch i.kind {
	case Normal:
		return i.offset == offset
	case Overlap:
		return i.transition.IsValidOffset(offset)
	}
	return false
}

// ValidOffsets lists the valid offsets: one for Normal, none for Gap, and for
// Overlap the earlier-instant offset first.
func (i OffsetInfo) ValidOffsets() []Offset {
	switch i.kind {
	case Normal:
		return []Offset{i.offset}
	case Overlap:
		return []Offset{i.transition.OffsetBefore(), i.transition.OffsetAfter()}
	}
	return nil
}

// String renders e.g. "OffsetInfo[+01:00]" or "OffsetInfo[Transition[...]]".
func (i OffsetInfo) String() string {
	if i.kind == Normal {
		return fmt.Sprintf("OffsetInfo[%s]", i.offset.ID())
	}
	return fmt.Sprintf("OffsetInfo[%s]", i.transition)
}
