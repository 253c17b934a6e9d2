// Package store provides SQLite-backed durable storage for recorded runs.
//
// The store implements an append-only log with:
//   - Runs: One row per recorded run (token, kind, population, frame count)
//   - Frames: One row per swept frame with its content digest
//   - Dispatches: One row per dispatch call, in sweep order
//   - Record States: Final per-record snapshots for a run
//
// # Critical Patterns
//
// Logical Time Only
//   - All ordering uses stamp and seq INTEGER columns, NEVER timestamps
//   - Run tokens are UUIDv7, so token order is creation order
//
// Deterministic Query Results
//   - Frame queries: ORDER BY stamp ASC
//   - Dispatch queries: ORDER BY seq ASC, id ASC
//   - Ensures identical results across replays
//
// Frame-Level Write Atomicity
//   - WriteFrame inserts the frame row and all its dispatch rows in one
//     transaction; a crash never leaves a frame half-recorded
//   - All inserts use ON CONFLICT DO NOTHING, so re-recording after a crash
//     is idempotent
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payload snapshots are stored as RFC 8785 canonical JSON TEXT produced by
// internal/trace, and compared as raw text on the way back out. Nothing in
// this package parses JSON.
package store
