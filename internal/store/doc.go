// Package store persists generation runs in SQLite.
//
// A run is stored as three tables:
//   - runs: one record per run with its settings and profile hash
//   - row_specs: the RowSpecs the walk produced, in walk order
//   - rows: the generated rows, each pointing at its RowSpec
//
// # Ordering
//
// Rows are read back ORDER BY seq ASC; seq comes from the engine's logical
// clock, never from wall time. started_at is stored for display only.
// Runs are listed by started_at, then id COLLATE BINARY.
//
// # Encoding
//
// RowSpec descriptions and rows are stored as canonical JSON (see
// ir.MarshalCanonical) next to their content hash, so two runs that
// produce the same row store the same hash.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
