// Package store provides SQLite-backed durable storage for rack telemetry.
//
// Two tables:
//   - telemetry: canonical records, append-only apart from result write-back
//   - selection_log: one row per record chosen by a selection run
//
// # Invariants
//
// Every mutation runs inside a transaction committed only after all of its
// statements succeed, so a failure leaves previously committed state as it
// was.
//
// A telemetry row is selected at most once. Candidates are computed with an
// anti-join against selection_log inside the same write transaction that
// records the choice; a UNIQUE index on selection_log.selected_row_id backs
// this up.
//
// Write transactions start with BEGIN IMMEDIATE (_txlock=immediate), so two
// processes selecting from the same database serialize on the write lock
// instead of both reading the same candidate set.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: selection rows must reference a telemetry row
package store
