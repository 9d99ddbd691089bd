// Package kernel implements the qube hash-chained execution kernel.
//
// A Kernel owns one rolling anchor that stands for its committed history.
// Transition units advance the anchor only when they name the live anchor as
// their predecessor; pattern blobs advance it unconditionally. Every anchor
// produced is appended to an in-memory audit list.
//
// STATE MACHINE:
//
//	Uninitialized --Initialize--> Initialized --Shutdown--> ShutDown
//	                               ^        |
//	                               +--------+ Execute / DockPattern
//
// ShutDown is terminal. Execute and DockPattern outside Initialized are usage
// errors, reported distinctly from chain-integrity mismatches.
//
// DETERMINISM:
//
// Anchors are derived with the domain-separated SHA-256 helpers in package ir.
// Two kernels seeded alike and fed the same calls in the same order hold
// byte-identical anchors and audit lists, on any platform.
//
// CONCURRENCY:
//
// A Kernel is not safe for concurrent use. It is designed for a single writer;
// callers that share one must serialize access (see package handle).
package kernel
