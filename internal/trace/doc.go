// Package trace defines the dispatch trace model and its canonical
// serialization for stampede runs.
//
// This package contains value and event types plus hashing only. Other
// internal packages import trace; trace imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key constraints:
//   - NO float types anywhere - payload snapshots use Int (int64)
//   - Canonical JSON follows the RFC 8785 profile: keys sorted by UTF-16
//     code units, NFC-normalized strings, no HTML escaping
//   - Digests are SHA-256 with versioned domain separation, so the same
//     bytes hashed in different roles can never collide
//   - Frame stamps and sequence numbers only, never wall-clock timestamps
package trace
