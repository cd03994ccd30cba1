// Package posix imports POSIX TZ strings ("EST5EDT,M3.2.0,M11.1.0") as annual
// transition rules.
//
// Offsets in POSIX notation count west of Greenwich, so "EST5" is -05:00.
// Julian-day rule forms ("Jn", "n") are not supported.
package posix
