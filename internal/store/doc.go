// Package store keeps a SQLite ledger of pipeline runs.
//
// Every run gets a time-sortable UUIDv7 ID and a monotonically increasing seq.
// Each processed frame is recorded with its model list, and each exported
// channel volume with its path, dimensions, size and SHA-256, so a later run
// can be compared byte for byte against an earlier one.
//
//   - runs: one row per invocation, with settings and final summary
//   - frames: one row per frame directory, in processing order
//   - outputs: one row per written .raw file
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All list queries order by seq, never by timestamp.
package store
