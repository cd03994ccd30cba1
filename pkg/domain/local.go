package domain

import (
	"fmt"
	"time"
)

// Layouts accepted by ParseLocalDateTime, most specific last.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// LocalDateTime is a date-time without an offset, as seen on a wall clock.
// It is stored as a UTC time.Time purely as a calendar carrier.
type LocalDateTime struct {
	t time.Time
}

// NewLocalDateTime builds a local date-time. Out-of-range fields are rejected rather than normalized.
func NewLocalDateTime(year int, month time.Month, day, hour, minute, second, nsec int) (LocalDateTime, error) {
	if month < time.January || month > time.December {
		return LocalDateTime{}, fmt.Errorf("%w: month %d", ErrInvalidArgument, month)
	}
	if day < 1 || day > DaysIn(month, year) {
		return LocalDateTime{}, fmt.Errorf("%w: day %d of %s %d", ErrInvalidArgument, day, month, year)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 || nsec < 0 || nsec >= int(time.Second) {
		return LocalDateTime{}, fmt.Errorf("%w: time %02d:%02d:%02d.%09d", ErrInvalidArgument, hour, minute, second, nsec)
	}
	return LocalDateTime{t: time.Date(year, month, day, hour, minute, second, nsec, time.UTC)}, nil
}

// MustLocalDateTime is like NewLocalDateTime without seconds, and panics on error.
func MustLocalDateTime(year int, month time.Month, day, hour, minute int) LocalDateTime {
	ldt, err := NewLocalDateTime(year, month, day, hour, minute, 0, 0)
	if err != nil {
		panic(err)
	}
	return ldt
}

// ParseLocalDateTime parses "2006-01-02T15:04[:05[.999999999]]".
func ParseLocalDateTime(text string) (LocalDateTime, error) {
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return LocalDateTime{t: t}, nil
		}
	}
	return LocalDateTime{}, fmt.Errorf("%w: malformed local date-time %q", ErrInvalidArgument, text)
}

// LocalOf returns the local date-time observed at instant under offset.
func LocalOf(instant time.Time, offset Offset) LocalDateTime {
	return LocalDateTime{t: instant.UTC().Add(offset.Duration())}
}

// FromEpochSecond returns the local date-time of an epoch second under offset.
func FromEpochSecond(epochSecond int64, offset Offset) LocalDateTime {
	return LocalDateTime{t: time.Unix(epochSecond+int64(offset.Seconds()), 0).UTC()}
}

// Year returns the calendar year.
func (l LocalDateTime) Year() int { return l.t.Year() }

// Month returns the month of the year.
func (l LocalDateTime) Month() time.Month { return l.t.Month() }

// Day returns the day of the month.
func (l LocalDateTime) Day() int { return l.t.Day() }

// Weekday returns the day of the week.
func (l LocalDateTime) Weekday() time.Weekday { return l.t.Weekday() }

// Clock returns the hour, minute and second.
func (l LocalDateTime) Clock() (hour, minute, second int) { return l.t.Clock() }

// Nanosecond returns the nanosecond within the second.
func (l LocalDateTime) Nanosecond() int { return l.t.Nanosecond() }

// Add returns the local date-time shifted by d on the local time-line.
func (l LocalDateTime) Add(d time.Duration) LocalDateTime {
	return LocalDateTime{t: l.t.Add(d)}
}

// AddDays shifts by whole calendar days.
func (l LocalDateTime) AddDays(days int) LocalDateTime {
	return LocalDateTime{t: l.t.AddDate(0, 0, days)}
}

// Sub returns l - other.
func (l LocalDateTime) Sub(other LocalDateTime) time.Duration {
	return l.t.Sub(other.t)
}

// Compare returns -1, 0 or +1.
func (l LocalDateTime) Compare(other LocalDateTime) int {
	return l.t.Compare(other.t)
}

// Before reports whether l is strictly earlier than other.
func (l LocalDateTime) Before(other LocalDateTime) bool { return l.t.Before(other.t) }

// After reports whether l is strictly later than other.
func (l LocalDateTime) After(other LocalDateTime) bool { return l.t.After(other.t) }

// Equal reports whether both denote the same wall-clock reading.
func (l LocalDateTime) Equal(other LocalDateTime) bool { return l.t.Equal(other.t) }

// EpochSecond returns the epoch second of l interpreted at offset.
func (l LocalDateTime) EpochSecond(offset Offset) int64 {
	return l.t.Unix() - int64(offset.Seconds())
}

// AtOffset returns the instant of l interpreted at offset.
func (l LocalDateTime) AtOffset(offset Offset) time.Time {
	return l.t.Add(-offset.Duration()).In(offset.Location())
}

// String renders "2006-01-02T15:04", adding seconds and fractions only when present.
func (l LocalDateTime) String() string {
	switch {
	case l.t.Nanosecond() != 0:
		return l.t.Format("2006-01-02T15:04:05.999999999")
	case l.t.Second() != 0:
		return l.t.Format("2006-01-02T15:04:05")
	}
	return l.t.Format("2006-01-02T15:04")
}

// MarshalText implements encoding.TextMarshaler.
func (l LocalDateTime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LocalDateTime) UnmarshalText(text []byte) error {
	parsed, err := ParseLocalDateTime(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// OffsetDateTime is a local date-time paired with the offset a caller asserts for it.
type OffsetDateTime struct {
	Local  LocalDateTime
	Offset Offset
}

// ParseOffsetDateTime parses a local date-time followed by an offset, e.g. "2019-10-27T02:30+01:00".
func ParseOffsetDateTime(text string) (OffsetDateTime, error) {
	for i := len(text) - 1; i > 0; i-- {
		c := text[i]
		if c != '+' && c != '-' && c != 'Z' && c != 'z' {
			continue
		}
		local, err := ParseLocalDateTime(text[:i])
		if err != nil {
			continue
		}
		offset, err := ParseOffset(text[i:])
		if err != nil {
			return OffsetDateTime{}, err
		}
		return OffsetDateTime{Local: local, Offset: offset}, nil
	}
	return OffsetDateTime{}, fmt.Errorf("%w: malformed offset date-time %q", ErrInvalidArgument, text)
}

// Instant returns the instant denoted by the pair.
func (o OffsetDateTime) Instant() time.Time {
	return o.Local.AtOffset(o.Offset)
}

// String renders the local date-time followed by the offset ID.
func (o OffsetDateTime) String() string {
	return o.Local.String() + o.Offset.ID()
}

// IsLeap reports whether year is a leap year in the proleptic Gregorian calendar.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// daysBefore[m] counts the days of a non-leap year before month m begins.
var daysBefore = [...]int{
	0,
	31,
	31 + 28,
	31 + 28 + 31,
	31 + 28 + 31 + 30,
	31 + 28 + 31 + 30 + 31,
	31 + 28 + 31 + 30 + 31 + 30,
	31 + 28 + 31 + 30 + 31 + 30 + 31,
	31 + 28 + 31 + 30 + 31 + 30 + 31 + 31,
	31 + 28 + 31 + 30 + 31 + 30 + 31 + 31 + 30,
	31 + 28 + 31 + 30 + 31 + 30 + 31 + 31 + 30 + 31,
	31 + 28 + 31 + 30 + 31 + 30 + 31 + 31 + 30 + 31 + 30,
	31 + 28 + 31 + 30 + 31 + 30 + 31 + 31 + 30 + 31 + 30 + 31,
}

// DaysIn returns the length of month in year.
func DaysIn(m time.Month, year int) int {
	if m == time.February && IsLeap(year) {
		return 29
	}
	return daysBefore[m] - daysBefore[m-1]
}

// MinDaysIn returns the shortest length month can have in any year.
func MinDaysIn(m time.Month) int {
	return daysBefore[m] - daysBefore[m-1]
}
