// Package pipeline executes a run's steps as concurrent tasks ordered by
// declared data dependencies. It reports step lifecycle through the progress
// registry, honors cancellation at step-start checkpoints, aborts unstarted
// work on the first failure while letting in-flight steps settle, and emits
// exactly one terminal event per run.
package pipeline
