// Package workflow drives one image through the configured processing steps
// and packages the results.
//
// The Manager owns the per-run lifecycle: it records the run, hands the step
// graph to the pipeline orchestrator, and on success assembles the ZIP bundle
// and persists it to the archive store. Step wiring lives here: resize always
// runs, mockups build on the resized image, the preview video renders from
// the mockups when present, and text generation works from the original
// upload so it can start immediately.
//
// Cancellation is observed between steps. A cancel request marks the run in
// the progress registry; steps that have not started are skipped and the run
// record lands in the cancelled state.
package workflow
