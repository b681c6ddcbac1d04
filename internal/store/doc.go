// Package store provides SQLite-backed run history for pagecheck.
//
// Each check run is recorded as:
//   - Runs: one row per run with contract, base URL, timestamps and counts
//   - Results: one row per report entry, ordered by seq within the run
//   - Timings: latency details for entries that came from a timing check
//
// Outcomes and error lists are stored as JSON text. A run is written in a
// single transaction, so history never holds a partial run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
