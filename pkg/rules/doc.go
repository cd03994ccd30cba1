// Package rules implements the zone rules engine.
//
// A Rules value owns the historical transitions of one zone plus the annual
// transition rules that take over after the last of them. It answers two
// kinds of question:
//
//   - which offset applies at an instant (OffsetAt, StandardOffsetAt);
//   - which offsets are valid for a local date-time (ResolveLocal), where the
//     answer may be a Gap or an Overlap instead of a single offset.
//
// Rules are projected onto a year only when a query falls past the history,
// and the projections for years before 2100 are memoized.
package rules
