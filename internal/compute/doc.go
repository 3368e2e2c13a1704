// Package compute implements the deterministic rack physics pass.
//
// An Engine turns a Payload of rack inputs into Metrics. Physics is the only
// production Engine; its constants live in an explicit Config so tests can
// override them. Compute never reads the clock or a random source.
package compute
