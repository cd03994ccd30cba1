/*
Package ports defines the driven ports (interfaces) for the zone rules library.

These interfaces decouple zone identities from the places rule data lives,
allowing the same lookup code to work with memory, a directory of documents,
a Loam repository or Redis.

# Key Interfaces

  - RulesProvider: Serves versioned rules for the regions of one group (e.g. "TZDB").
  - Registry: Maps group identifiers to providers; consumed by zone identities.
  - Watchable: Implemented by providers able to signal that their data changed.
  - Locker: Serializes writers of one region across processes.
*/
package ports
