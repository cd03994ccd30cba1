package posix

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
)

// defaultRuleTime is the cutover time when a rule names none.
const defaultRuleTime = 2 * time.Hour

var tzPattern = regexp.MustCompile(`^(?P<StdName>[[:alpha:]]{3,}|<[[:alnum:]+-]+>)` +
	`(?P<StdOffset>[-+]?[0-9]+(?::[0-9]+){0,2})` +
	`(?P<DstName>[[:alpha:]]{3,}|<[[:alnum:]+-]+>)?` +
	`(?P<DstOffset>[-+]?[0-9]+(?::[0-9]+){0,2})?` +
	`(?:,(?P<Start>[^,]+),(?P<End>[^,]+))?$`)

var rulePattern = regexp.MustCompile(`^M([0-9]{1,2})\.([0-9])\.([0-9])(?:/([-+]?[0-9]+(?::[0-9]+){0,2}))?$`)

// Rule is one "Mm.w.d[/time]" cutover of a POSIX TZ string.
type Rule struct {
	Month   time.Month
	Week    int // 1-4, or 5 for the last week
	Weekday time.Weekday
	Time    time.Duration
}

// Spec is a decoded POSIX TZ string such as "CET-1CEST,M3.5.0,M10.5.0/3".
type Spec struct {
	StdName string
	Std     domain.Offset
	DstName string
	Dst     domain.Offset
	Start   Rule
	End     Rule
}

// HasDST reports whether the string names a daylight time.
func (s Spec) HasDST() bool { return s.DstName != "" }

// Parse decodes a POSIX TZ string. Only the "Mm.w.d" rule form is accepted,
// with times between 00:00 and 24:00. A daylight name requires both rules.
func Parse(tz string) (Spec, error) {
	m := tzPattern.FindStringSubmatch(tz)
	if m == nil {
		return Spec{}, fmt.Errorf("%w: POSIX TZ %q", domain.ErrInvalidArgument, tz)
	}
	group := func(name string) string { return m[tzPattern.SubexpIndex(name)] }

	var s Spec
	var err error
	s.StdName = group("StdName")
	if s.Std, err = parseOffset(group("StdOffset")); err != nil {
		return Spec{}, fmt.Errorf("POSIX TZ %q: standard offset: %w", tz, err)
	}

	s.DstName = group("DstName")
	if s.DstName == "" {
		if group("DstOffset") != "" || group("Start") != "" {
			return Spec{}, fmt.Errorf("%w: POSIX TZ %q: daylight data without a daylight name", domain.ErrInvalidArgument, tz)
		}
		return s, nil
	}

	s.Dst, err = domain.OffsetOfDuration(s.Std.Duration() + time.Hour)
	if raw := group("DstOffset"); raw != "" {
		s.Dst, err = parseOffset(raw)
	}
	if err != nil {
		return Spec{}, fmt.Errorf("POSIX TZ %q: daylight offset: %w", tz, err)
	}
	if s.Dst == s.Std {
		return Spec{}, fmt.Errorf("%w: POSIX TZ %q: daylight offset equals standard offset", domain.ErrInvalidArgument, tz)
	}

	if group("Start") == "" {
		return Spec{}, fmt.Errorf("%w: POSIX TZ %q: daylight time without rules", domain.ErrInvalidArgument, tz)
	}
	if s.Start, err = parseRule(group("Start")); err != nil {
		return Spec{}, fmt.Errorf("POSIX TZ %q: start rule: %w", tz, err)
	}
	if s.End, err = parseRule(group("End")); err != nil {
		return Spec{}, fmt.Errorf("POSIX TZ %q: end rule: %w", tz, err)
	}
	return s, nil
}

// parseOffset reads a POSIX offset, which counts hours west of Greenwich.
func parseOffset(text string) (domain.Offset, error) {
	secs, err := parseClock(text)
	if err != nil {
		return domain.UTC, err
	}
	return domain.OffsetOfSeconds(-secs)
}

// parseClock reads "[+-]hh[:mm[:ss]]" as signed seconds.
func parseClock(text string) (int, error) {
	sign := 1
	switch {
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	case strings.HasPrefix(text, "-"):
		text, sign = text[1:], -1
	}
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: clock %q", domain.ErrInvalidArgument, text)
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || (i > 0 && n > 59) {
			return 0, fmt.Errorf("%w: clock %q", domain.ErrInvalidArgument, text)
		}
		total = total*60 + n
	}
	for i := len(parts); i < 3; i++ {
		total *= 60
	}
	return sign * total, nil
}

func parseRule(text string) (Rule, error) {
	m := rulePattern.FindStringSubmatch(text)
	if m == nil {
		return Rule{}, fmt.Errorf("%w: rule %q (only Mm.w.d is supported)", domain.ErrInvalidArgument, text)
	}
	month, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || week < 1 || week > 5 || day > 6 {
		return Rule{}, fmt.Errorf("%w: rule %q", domain.ErrInvalidArgument, text)
	}

	r := Rule{Month: time.Month(month), Week: week, Weekday: time.Weekday(day), Time: defaultRuleTime}
	if m[4] != "" {
		secs, err := parseClock(m[4])
		if err != nil {
			return Rule{}, err
		}
		r.Time = time.Duration(secs) * time.Second
	}
	if r.Time < 0 || r.Time > domain.EndOfDay {
		return Rule{}, fmt.Errorf("%w: rule %q: time outside 00:00-24:00", domain.ErrInvalidArgument, text)
	}
	return r, nil
}

// ruleSpec maps a POSIX rule onto a wall-time transition rule.
func (r Rule) ruleSpec(standard, before, after domain.Offset) domain.RuleSpec {
	indicator := (r.Week-1)*7 + 1
	if r.Week == 5 {
		indicator = -1
	}
	weekday := r.Weekday
	return domain.RuleSpec{
		Month:          r.Month,
		DayIndicator:   indicator,
		DayOfWeek:      &weekday,
		TimeOfDay:      r.Time,
		Definition:     domain.Wall,
		StandardOffset: standard,
		OffsetBefore:   before,
		OffsetAfter:    after,
	}
}

// Rules returns the annual transition rules, ordered as they occur within a
// year. A spec without daylight time has none.
func (s Spec) Rules() ([]domain.TransitionRule, error) {
	if !s.HasDST() {
		return nil, nil
	}
	start, err := domain.NewTransitionRule(s.Start.ruleSpec(s.Std, s.Std, s.Dst))
	if err != nil {
		return nil, err
	}
	end, err := domain.NewTransitionRule(s.End.ruleSpec(s.Std, s.Dst, s.Std))
	if err != nil {
		return nil, err
	}
	out := []domain.TransitionRule{start, end}
	slices.SortFunc(out, func(a, b domain.TransitionRule) int {
		return a.ForYear(2001).Compare(b.ForYear(2001))
	})
	return out, nil
}

// String renders s back into POSIX TZ notation.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(s.StdName)
	b.WriteString(formatOffset(s.Std))
	if !s.HasDST() {
		return b.String()
	}
	b.WriteString(s.DstName)
	if s.Dst.Sub(s.Std) != time.Hour {
		b.WriteString(formatOffset(s.Dst))
	}
	b.WriteByte(',')
	b.WriteString(s.Start.String())
	b.WriteByte(',')
	b.WriteString(s.End.String())
	return b.String()
}

// String renders the rule as "Mm.w.d", adding "/time" when it is not 02:00.
func (r Rule) String() string {
	out := fmt.Sprintf("M%d.%d.%d", int(r.Month), r.Week, int(r.Weekday))
	if r.Time != defaultRuleTime {
		out += "/" + formatClock(int(r.Time/time.Second))
	}
	return out
}

func formatOffset(o domain.Offset) string {
	return formatClock(-o.Seconds())
}

// formatClock renders signed seconds in the shortest POSIX form: "5", "-1", "5:30".
func formatClock(secs int) string {
	sign := ""
	if secs < 0 {
		sign, secs = "-", -secs
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case s != 0:
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	case m != 0:
		return fmt.Sprintf("%s%d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%s%d", sign, h)
}
