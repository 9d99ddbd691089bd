// Package ir provides the canonical value types, record types and hashing
// primitives shared by the qube kernel, its journal and its boundaries.
//
// ir imports nothing internal. Every other package may import it.
//
// Key design constraints:
//   - Anchors are derived only through the domain-separated SHA-256 helpers in
//     hash.go, never through a process-local hash
//   - Hash inputs are serialized with MarshalCanonical (RFC 8785) so that two
//     independent implementations agree byte for byte
//   - Canonical JSON carries no floats and no nulls
//   - All JSON tags use snake_case
package ir
