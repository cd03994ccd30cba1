// Package schema defines rules documents: the YAML/JSON form in which zone
// rules are stored by the file, Loam and Redis providers.
//
// A document names a region and version, the base offsets, the historical
// transitions and either explicit annual rules or a POSIX TZ string:
//
//	region: Europe/Paris
//	version: 2019a
//	standard_offset: "+01:00"
//	transitions:
//	  - {at: "2018-03-25T02:00", before: "+01:00", after: "+02:00"}
//	  - {at: "2018-10-28T03:00", before: "+02:00", after: "+01:00"}
//	posix: CET-1CEST,M3.5.0,M10.5.0/3
//
// Build validates a document and returns the engine; FromRules goes the
// other way. Validation failures are reported together as an AggregateError
// whose entries match domain.ErrInvalidArgument.
package schema
