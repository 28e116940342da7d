// Package timeline reconciles generated audio clip durations against a fixed
// scene timeline: per-clip placement, duration correction, volume balancing,
// and crossfade placement. Synchronization is a pure computation over the
// input lists; track i always corresponds to scene i.
package timeline
