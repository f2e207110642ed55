// Package stream provides the small synchronous observable toolkit the
// resolver is built from.
//
// Every emission is delivered on the caller's goroutine before the emitting
// call returns. A Scheduler batches emissions of combining nodes and flushes
// them in rank order, so a node fed by two paths from one source (a diamond)
// emits exactly once per batch and never observes a half-updated input set.
//
// Ranks:
//   - Subjects have rank 0.
//   - Map, Distinct and Share keep the rank of their source.
//   - CombineLatest has rank 1 + the highest rank among its sources.
//
// Emissions sharing a Scheduler must be serialized by the caller; the
// dispatcher does this by applying one action at a time.
package stream
