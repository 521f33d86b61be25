// Package store provides SQLite-backed durable storage for exploration runs.
//
// The store keeps three tables:
//   - runs: one row per exploration with its bounds, seed and outcome
//   - coverage: the state signatures of a run in first-seen order
//   - findings: the canonical JSON of each finding with indexed lookup
//     columns (fingerprint, invariant, severity)
//
// # Deterministic Reads
//
// Every query carries an ORDER BY with a COLLATE BINARY tiebreaker, so
// identical databases read back identically. Runs are ordered by their
// insertion seq; coverage and findings by (run_id, seq).
//
// Values are always bound as parameters, never interpolated.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Seeds are stored as decimal TEXT because SQLite integers are signed.
package store
