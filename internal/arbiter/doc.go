// Package arbiter owns stream arbitration.
//
// Ownership boundary:
// - per-client stream registry (priority, liveness, activation)
// - staleness eviction and active stream election
// - dispatch of approved effects to the render sink
//
// Election order is priority descending, then currently active first, with a
// stable sort so remaining ties keep arrival order. Only image frames from the
// active stream reach the sink; brightness commands from any stream do.
package arbiter
