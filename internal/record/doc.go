// Package record defines the canonical telemetry model shared by racksim.
//
// A Record is the normalized form of one rack telemetry observation. Every
// declared field is always present on the struct; a nil pointer is the
// explicit "unset" marker for a value the source document did not carry.
//
// Records are created by the normalizer, inserted once by an ingestion run,
// and later have their result fields rewritten in place by a selection run.
// They are never deleted.
//
// A Selection is the durable proof that one stored Record was chosen by a
// selection run. At most one Selection exists per stored Record.
//
// The package also provides MarshalCanonical, a deterministic JSON encoding
// (sorted keys, NFC strings, no HTML escaping) used wherever bytes must be
// stable across runs: persisted result fragments and golden test output.
package record
