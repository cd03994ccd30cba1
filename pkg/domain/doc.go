/*
Package domain contains the value types of the zone rules model.

Every type here is immutable after construction and safe for concurrent reads.
The package is kept pure: no I/O, no registry lookups.

# Key Entities

  - Offset: a signed amount of seconds east of UTC, bounded to ±18h.
  - LocalDateTime: a wall-clock reading without an offset.
  - Transition: one concrete change of offset, producing a gap or an overlap.
  - TransitionRule: a yearly recurring cutover that projects to a Transition for any year.
  - OffsetInfo: the Normal/Gap/Overlap classification of a local date-time.
*/
package domain
