// Package ir provides the canonical value representation for entities.
//
// Every entity held by a store is an IRObject carrying a string "id" plus
// arbitrary fields built from the sealed IRValue types. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers, so digests and
//     structural equality stay deterministic
//   - IRObject values are treated as immutable once stored; use With/Without
//     to derive modified copies
//   - Canonical JSON (RFC 8785) is the only serialization used for digests
//     and golden snapshots
package ir
