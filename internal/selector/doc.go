// Package selector chooses previously unselected telemetry records per group,
// runs the compute engine on them and writes the results back.
//
// One call to SelectAndCompute is one atomic unit: the candidate read, the
// result update and the selection row all happen in a single store
// transaction. A record is therefore never selected twice, and a selection
// row never exists without the results it produced.
//
// Seeded runs are reproducible. The per-group generator is derived from the
// run seed and the group id (SubSeed), and the group sample of a batch from
// the run seed alone, so rerunning with the same seed against the same store
// state makes the same choices.
package selector
