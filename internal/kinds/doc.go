// Package kinds bundles record populations with their machines behind a
// registry, so the CLI and the scenario harness can run any kind by name
// without knowing its payload type.
//
// ARCHITECTURE:
//
// Type Erasure at the Package Boundary:
// The core dispatch types are generic over the payload. A Runner wraps one
// kind's machine, driver, and record slice behind a payload-free interface:
// state names in, trace events out. Generics stay inside; callers never see
// a type parameter.
//
// Runner as Its Own Recorder:
// Each RunFrame buffers the frame's dispatch events and returns them in
// trace form, with state names resolved and a per-run seq counter assigned
// in sweep order. Recording a run is draining RunFrame results into the
// store; no second observer layer exists.
//
// CRITICAL PATTERNS:
//
// Deterministic Frames Only:
// Runner always uses the unsharded sweep. Sharded sweeps reorder observer
// events between shards, which would make the recorded trace depend on
// scheduling. Sharding is a throughput tool for direct driver users, not
// for recorded runs.
//
// Registration at Init:
// Built-in kinds register themselves in init, keyed by kind name. Register
// panics on duplicates: a name collision is a wiring bug, caught at
// process start.
package kinds
