// Package normalize turns heterogeneous telemetry documents into canonical
// records.
//
// Producers disagree on section and field names. Every canonical field is
// described by a row in the fields table: the ordered section keys that may
// hold it, the ordered field aliases inside that section, how to read the
// value, and the fallback when nothing usable is found. Supporting a new
// producer spelling is a table edit.
//
// Normalization is pure. A missing or unreadable field never fails the
// document; it leaves the canonical field unset (or at its fallback). Only a
// document that is not a JSON object is rejected.
package normalize
