// Package pipeline drives racksim's two batch runs.
//
// An ingestion run splits an input into documents, normalizes each and
// inserts it. A document that fails is logged with a truncated view and
// counted; the run continues. Only a store that can no longer be used stops
// the run early.
//
// A selection run samples groups and hands each to the selector, which
// computes and writes back one unselected record per group.
//
// Both runs return a summary even when they stop early.
package pipeline
