// Package progress implements the per-run progress registry: a process-wide
// rendezvous point between pipeline execution and any number of observers.
//
// Each run keeps an ordered snapshot of last-known step statuses plus a
// terminal marker. Observers attach at any time and receive a replay of the
// snapshot followed by live events; fan-out is best-effort over bounded
// buffers so a slow or dead observer never blocks the publisher. Cancellation
// requests are recorded here and consulted by the orchestrator at step-start
// checkpoints.
package progress
