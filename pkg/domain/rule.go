package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeDefinition states which frame a rule's cutover time is expressed in.
type TimeDefinition int

const (
	// Wall times are read on the clock in force just before the cutover.
	Wall TimeDefinition = iota
	// Standard times are read on the standard-offset clock.
	Standard
	// UTCTime times are read in UTC.
	UTCTime
)

// String returns the lower-case name used in rules documents.
func (d TimeDefinition) String() string {
	switch d {
	case Wall:
		return "wall"
	case Standard:
		return "standard"
	case UTCTime:
		return "utc"
	}
	return fmt.Sprintf("TimeDefinition(%d)", int(d))
}

// ParseTimeDefinition accepts "wall", "standard" or "utc" (case-insensitive), and
// the tzdata suffixes "w", "s", "u", "g", "z". An empty string means wall.
func ParseTimeDefinition(text string) (TimeDefinition, error) {
	switch strings.ToLower(text) {
	case "", "wall", "w":
		return Wall, nil
	case "standard", "s":
		return Standard, nil
	case "utc", "u", "g", "z":
		return UTCTime, nil
	}
	return Wall, fmt.Errorf("%w: time definition %q", ErrInvalidArgument, text)
}

// Apply converts a cutover date-time read in this definition's frame into the
// wall frame of offsetBefore.
func (d TimeDefinition) Apply(local LocalDateTime, standardOffset, offsetBefore Offset) LocalDateTime {
	switch d {
	case UTCTime:
		return local.Add(offsetBefore.Duration())
	case Standard:
		return local.Add(offsetBefore.Sub(standardOffset))
	}
	return local
}

// EndOfDay is the cutover time meaning midnight at the end of the resolved day.
const EndOfDay = 24 * time.Hour

// TransitionRule describes a cutover that recurs every year, such as
// "last Sunday in October at 01:00 UTC".
//
// A positive day indicator selects that day of the month or, when a weekday is
// set, the first such weekday on or after it. A negative indicator counts back
// from the end of the month (-1 is the last day) and, with a weekday, selects
// the last such weekday on or before it.
type TransitionRule struct {
	month          time.Month
	dayIndicator   int
	dayOfWeek      time.Weekday
	hasDayOfWeek   bool
	timeOfDay      time.Duration
	definition     TimeDefinition
	standardOffset Offset
	offsetBefore   Offset
	offsetAfter    Offset
}

// RuleSpec carries the fields of a TransitionRule before validation.
type RuleSpec struct {
	Month          time.Month
	DayIndicator   int
	DayOfWeek      *time.Weekday
	TimeOfDay      time.Duration
	Definition     TimeDefinition
	StandardOffset Offset
	OffsetBefore   Offset
	OffsetAfter    Offset
}

// NewTransitionRule validates spec and returns the rule.
func NewTransitionRule(spec RuleSpec) (TransitionRule, error) {
	if spec.Month < time.January || spec.Month > time.December {
		return TransitionRule{}, fmt.Errorf("%w: rule month %d", ErrInvalidArgument, spec.Month)
	}
	if spec.DayIndicator == 0 || spec.DayIndicator < -28 || spec.DayIndicator > 31 {
		return TransitionRule{}, fmt.Errorf("%w: day indicator %d outside [-28,31] or zero", ErrInvalidArgument, spec.DayIndicator)
	}
	if spec.DayIndicator > MinDaysIn(spec.Month) {
		return TransitionRule{}, fmt.Errorf("%w: day %d does not occur every year in %s", ErrInvalidArgument, spec.DayIndicator, spec.Month)
	}
	if spec.DayOfWeek != nil && (*spec.DayOfWeek < time.Sunday || *spec.DayOfWeek > time.Saturday) {
		return TransitionRule{}, fmt.Errorf("%w: weekday %d", ErrInvalidArgument, *spec.DayOfWeek)
	}
	if spec.TimeOfDay < 0 || spec.TimeOfDay > EndOfDay || spec.TimeOfDay%time.Second != 0 {
		return TransitionRule{}, fmt.Errorf("%w: cutover time %s outside [0,24h] or not whole seconds", ErrInvalidArgument, spec.TimeOfDay)
	}
	if spec.Definition < Wall || spec.Definition > UTCTime {
		return TransitionRule{}, fmt.Errorf("%w: %s", ErrInvalidArgument, spec.Definition)
	}
	if spec.OffsetBefore == spec.OffsetAfter {
		return TransitionRule{}, fmt.Errorf("%w: rule keeps offset %s", ErrInvalidArgument, spec.OffsetBefore)
	}
	r := TransitionRule{
		month:          spec.Month,
		dayIndicator:   spec.DayIndicator,
		timeOfDay:      spec.TimeOfDay,
		definition:     spec.Definition,
		standardOffset: spec.StandardOffset,
		offsetBefore:   spec.OffsetBefore,
		offsetAfter:    spec.OffsetAfter,
	}
	if spec.DayOfWeek != nil {
		r.dayOfWeek = *spec.DayOfWeek
		r.hasDayOfWeek = true
	}
	return r, nil
}

// MustTransitionRule is like NewTransitionRule but panics on error.
func MustTransitionRule(spec RuleSpec) TransitionRule {
	r, err := NewTransitionRule(spec)
	if err != nil {
		panic(err)
	}
	return r
}

// Spec returns the fields of the rule.
func (r TransitionRule) Spec() RuleSpec {
	s := RuleSpec{
		Month:          r.month,
		DayIndicator:   r.dayIndicator,
		TimeOfDay:      r.timeOfDay,
		Definition:     r.definition,
		StandardOffset: r.standardOffset,
		OffsetBefore:   r.offsetBefore,
		OffsetAfter:    r.offsetAfter,
	}
	if r.hasDayOfWeek {
		dow := r.dayOfWeek
		s.DayOfWeek = &dow
	}
	return s
}

// Month returns the month of the cutover.
func (r TransitionRule) Month() time.Month { return r.month }

// DayIndicator returns the day-of-month indicator.
func (r TransitionRule) DayIndicator() int { return r.dayIndicator }

// DayOfWeek returns the weekday adjustment, if any.
func (r TransitionRule) DayOfWeek() (time.Weekday, bool) { return r.dayOfWeek, r.hasDayOfWeek }

// TimeOfDay returns the cutover time; EndOfDay means midnight after the resolved day.
func (r TransitionRule) TimeOfDay() time.Duration { return r.timeOfDay }

// Definition returns the frame of the cutover time.
func (r TransitionRule) Definition() TimeDefinition { return r.definition }

// StandardOffset returns the standard offset in force at the cutover.
func (r TransitionRule) StandardOffset() Offset { return r.standardOffset }

// OffsetBefore returns the offset before the cutover.
func (r TransitionRule) OffsetBefore() Offset { return r.offsetBefore }

// OffsetAfter returns the offset after the cutover.
func (r TransitionRule) OffsetAfter() Offset { return r.offsetAfter }

// Date resolves the calendar day of the cutover in year, before any end-of-day shift.
func (r TransitionRule) Date(year int) (time.Month, int) {
	var day time.Time
	if r.dayIndicator < 0 {
		day = time.Date(year, r.month, DaysIn(r.month, year)+1+r.dayIndicator, 0, 0, 0, 0, time.UTC)
		if r.hasDayOfWeek {
			back := (int(day.Weekday()) - int(r.dayOfWeek) + 7) % 7
			day = day.AddDate(0, 0, -back)
		}
	} else {
		day = time.Date(year, r.month, r.dayIndicator, 0, 0, 0, 0, time.UTC)
		if r.hasDayOfWeek {
			forward := (int(r.dayOfWeek) - int(day.Weekday()) + 7) % 7
			day = day.AddDate(0, 0, forward)
		}
	}
	return day.Month(), day.Day()
}

// ForYear projects the rule onto year. The result depends only on the rule and year.
func (r TransitionRule) ForYear(year int) Transition {
	month, day := r.Date(year)
	cutover := LocalDateTime{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(r.timeOfDay)}
	local := r.definition.Apply(cutover, r.standardOffset, r.offsetBefore)
	return Transition{local: local, offsetBefore: r.offsetBefore, offsetAfter: r.offsetAfter}
}

// Equal reports whether both rules have identical fields.
func (r TransitionRule) Equal(other TransitionRule) bool {
	return r == other
}

// String renders e.g. "TransitionRule[Gap +01:00 to +02:00, Sunday on or before last day of March at 01:00 UTC, standard offset +01:00]".
func (r TransitionRule) String() string {
	var b strings.Builder
	b.WriteString("TransitionRule[")
	if r.offsetAfter.Compare(r.offsetBefore) > 0 {
		b.WriteString("Gap ")
	} else {
		b.WriteString("Overlap ")
	}
	fmt.Fprintf(&b, "%s to %s, ", r.offsetBefore.ID(), r.offsetAfter.ID())
	switch {
	case r.hasDayOfWeek && r.dayIndicator == -1:
		fmt.Fprintf(&b, "%s on or before last day of %s", r.dayOfWeek, r.month)
	case r.hasDayOfWeek && r.dayIndicator < 0:
		fmt.Fprintf(&b, "%s on or before last day minus %d of %s", r.dayOfWeek, -r.dayIndicator-1, r.month)
	case r.hasDayOfWeek:
		fmt.Fprintf(&b, "%s on or after %s %d", r.dayOfWeek, r.month, r.dayIndicator)
	case r.dayIndicator < 0:
		fmt.Fprintf(&b, "last day minus %d of %s", -r.dayIndicator-1, r.month)
	default:
		fmt.Fprintf(&b, "%s %d", r.month, r.dayIndicator)
	}
	if r.timeOfDay == EndOfDay {
		b.WriteString(" at 24:00 ")
	} else {
		fmt.Fprintf(&b, " at %s ", formatClock(r.timeOfDay))
	}
	fmt.Fprintf(&b, "%s, standard offset %s]", strings.ToUpper(r.definition.String()), r.standardOffset.ID())
	return b.String()
}

func formatClock(d time.Duration) string {
	secs := int(d / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
