package domain

import (
	"fmt"
	"time"
)

// Transition is a single change of offset on the time-line.
//
// The local date-time is the point at which offsetBefore stops applying,
// expressed in the offsetBefore frame. A forward jump opens a gap in the
// local time-line; a backward jump produces an overlap.
type Transition struct {
	local        LocalDateTime
	offsetBefore Offset
	offsetAfter  Offset
}

// NewTransition builds a transition. The two offsets must differ.
func NewTransition(local LocalDateTime, offsetBefore, offsetAfter Offset) (Transition, error) {
	if offsetBefore == offsetAfter {
		return Transition{}, fmt.Errorf("%w: transition at %s keeps offset %s", ErrInvalidArgument, local, offsetBefore)
	}
	return Transition{local: local, offsetBefore: offsetBefore, offsetAfter: offsetAfter}, nil
}

// MustTransition is like NewTransition but panics on error.
func MustTransition(local LocalDateTime, offsetBefore, offsetAfter Offset) Transition {
	t, err := NewTransition(local, offsetBefore, offsetAfter)
	if err != nil {
		panic(err)
	}
	return t
}

// TransitionAt builds a transition from its epoch second.
func TransitionAt(epochSecond int64, offsetBefore, offsetAfter Offset) (Transition, error) {
	return NewTransition(FromEpochSecond(epochSecond, offsetBefore), offsetBefore, offsetAfter)
}

// EpochSecond returns the transition instant in seconds since 1970-01-01T00:00Z.
func (t Transition) EpochSecond() int64 {
	return t.local.EpochSecond(t.offsetBefore)
}

// Instant returns the transition instant.
func (t Transition) Instant() time.Time {
	return time.Unix(t.EpochSecond(), 0).UTC()
}

// LocalBefore is the local date-time of the transition in the offsetBefore frame.
func (t Transition) LocalBefore() LocalDateTime {
	return t.local
}

// LocalAfter is the local date-time of the transition in the offsetAfter frame.
func (t Transition) LocalAfter() LocalDateTime {
	return t.local.Add(t.Duration())
}

// OffsetBefore returns the offset in force up to the transition.
func (t Transition) OffsetBefore() Offset { return t.offsetBefore }

// OffsetAfter returns the offset in force from the transition on.
func (t Transition) OffsetAfter() Offset { return t.offsetAfter }

// Duration is offsetAfter - offsetBefore; positive for gaps, negative for overlaps.
func (t Transition) Duration() time.Duration {
	return t.offsetAfter.Sub(t.offsetBefore)
}

// IsGap reports whether local times are skipped.
func (t Transition) IsGap() bool {
	return t.offsetAfter.Compare(t.offsetBefore) > 0
}

// IsOverlap reports whether local times are repeated.
func (t Transition) IsOverlap() bool {
	return t.offsetAfter.Compare(t.offsetBefore) < 0
}

// IsValidOffset reports whether offset is valid for a local date-time inside this
// discontinuity: never for a gap, either side for an overlap.
func (t Transition) IsValidOffset(offset Offset) bool {
	if t.IsGap() {
		return false
	}
	return offset == t.offsetBefore || offset == t.offsetAfter
}

// Compare orders transitions by instant.
func (t Transition) Compare(other Transition) int {
	a, b := t.EpochSecond(), other.EpochSecond()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether both transitions describe the same change at the same instant.
func (t Transition) Equal(other Transition) bool {
	return t.local.Equal(other.local) &&
		t.offsetBefore == other.offsetBefore &&
		t.offsetAfter == other.offsetAfter
}

// String renders e.g. "Transition[Gap at 2019-03-31T02:00+01:00 to +02:00]".
func (t Transition) String() string {
	kind := "Overlap"
	if t.IsGap() {
		kind = "Gap"
	}
	return fmt.Sprintf("Transition[%s at %s%s to %s]", kind, t.local, t.offsetBefore.ID(), t.offsetAfter.ID())
}
