// Package store is the SQLite-backed session journal of the qube driver.
//
// A session is one driver run against a fresh kernel. The journal records
// every call the driver made on that kernel, in order:
//   - Sessions: id (UUIDv7), seed, kernel and hash versions
//   - Records: one execute or dock call with its outcome and the anchor the
//     kernel held afterwards
//
// The kernel itself keeps no persistent state. The journal exists so that a
// session can be replayed later and checked for determinism.
//
// # Ordering
//
// Records are keyed by (session_id, seq) where seq is the driver's logical
// clock. Every query orders by seq ASC; wall time is never used.
//
// # Database Configuration
//
// Open keeps a single connection and upgrades older journals in place.
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks, 5 seconds unless WithBusyTimeout says otherwise
//   - foreign_keys=ON: Enforce referential integrity
package store
