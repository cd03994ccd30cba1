package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxOffsetSeconds bounds every offset to ±18 hours.
const MaxOffsetSeconds = 18 * 60 * 60

// Offset is a fixed amount of time east of UTC.
// The zero value is UTC. Offsets are immutable and compared by their signed value.
type Offset struct {
	seconds int32
}

// UTC is the zero offset.
var UTC = Offset{}

// OffsetOfSeconds returns the offset for a total number of seconds east of UTC.
func OffsetOfSeconds(seconds int) (Offset, error) {
	if seconds < -MaxOffsetSeconds || seconds > MaxOffsetSeconds {
		return Offset{}, fmt.Errorf("%w: offset %ds outside ±18h", ErrInvalidArgument, seconds)
	}
	return Offset{seconds: int32(seconds)}, nil
}

// NewOffset builds an offset from hours, minutes and seconds.
// All non-zero components must share the same sign.
func NewOffset(hours, minutes, seconds int) (Offset, error) {
	if hours < -18 || hours > 18 {
		return Offset{}, fmt.Errorf("%w: offset hours %d outside ±18", ErrInvalidArgument, hours)
	}
	if minutes <= -60 || minutes >= 60 || seconds <= -60 || seconds >= 60 {
		return Offset{}, fmt.Errorf("%w: offset minutes/seconds out of range", ErrInvalidArgument)
	}
	if !sameSign(hours, minutes) || !sameSign(hours, seconds) || !sameSign(minutes, seconds) {
		return Offset{}, fmt.Errorf("%w: offset components must share a sign", ErrInvalidArgument)
	}
	return OffsetOfSeconds(hours*3600 + minutes*60 + seconds)
}

// MustOffset is like NewOffset but panics on error. Intended for tests and constants.
func MustOffset(hours, minutes, seconds int) Offset {
	o, err := NewOffset(hours, minutes, seconds)
	if err != nil {
		panic(err)
	}
	return o
}

// OffsetOfDuration converts a duration, truncated to whole seconds, into an offset.
func OffsetOfDuration(d time.Duration) (Offset, error) {
	return OffsetOfSeconds(int(d / time.Second))
}

func sameSign(a, b int) bool {
	return a == 0 || b == 0 || (a < 0) == (b < 0)
}

// ParseOffset parses "Z", "±h", "±hh", "±hh:mm", "±hhmm", "±hh:mm:ss" or "±hhmmss".
func ParseOffset(text string) (Offset, error) {
	if text == "Z" || text == "z" {
		return UTC, nil
	}
	if len(text) < 2 || (text[0] != '+' && text[0] != '-') {
		return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
	}
	sign := 1
	if text[0] == '-' {
		sign = -1
	}
	body := text[1:]

	var parts []string
	if strings.Contains(body, ":") {
		parts = strings.Split(body, ":")
		if len(parts) > 3 || len(parts[0]) != 2 {
			return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
		}
	} else {
		switch len(body) {
		case 1, 2:
			parts = []string{body}
		case 4:
			parts = []string{body[:2], body[2:]}
		case 6:
			parts = []string{body[:2], body[2:4], body[4:]}
		default:
			return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
		}
	}

	var fields [3]int
	for i, p := range parts {
		if i > 0 && len(p) != 2 {
			return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
		}
		if !isDigits(p) {
			return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Offset{}, fmt.Errorf("%w: malformed offset %q", ErrInvalidArgument, text)
		}
		fields[i] = n
	}
	return NewOffset(sign*fields[0], sign*fields[1], sign*fields[2])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Seconds returns the total seconds east of UTC.
func (o Offset) Seconds() int {
	return int(o.seconds)
}

// Duration returns the offset as a signed duration.
func (o Offset) Duration() time.Duration {
	return time.Duration(o.seconds) * time.Second
}

// Sub returns o - other as a duration.
func (o Offset) Sub(other Offset) time.Duration {
	return time.Duration(o.seconds-other.seconds) * time.Second
}

// Compare returns -1, 0 or +1. Offsets further east compare greater.
func (o Offset) Compare(other Offset) int {
	switch {
	case o.seconds < other.seconds:
		return -1
	case o.seconds > other.seconds:
		return 1
	}
	return 0
}

// ID renders the offset as "Z" or "±hh:mm", with ":ss" appended when non-zero.
func (o Offset) ID() string {
	if o.seconds == 0 {
		return "Z"
	}
	total := int(o.seconds)
	sign := '+'
	if total < 0 {
		sign = '-'
		total = -total
	}
	h, m, s := total/3600, (total/60)%60, total%60
	if s != 0 {
		return fmt.Sprintf("%c%02d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d:%02d", sign, h, m)
}

// String implements fmt.Stringer.
func (o Offset) String() string {
	return o.ID()
}

// Location returns a fixed time.Location carrying this offset, handy for formatting.
func (o Offset) Location() *time.Location {
	if o.seconds == 0 {
		return time.UTC
	}
	return time.FixedZone(o.ID(), int(o.seconds))
}

// MarshalText implements encoding.TextMarshaler.
func (o Offset) MarshalText() ([]byte, error) {
	return []byte(o.ID()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Offset) UnmarshalText(text []byte) error {
	parsed, err := ParseOffset(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
