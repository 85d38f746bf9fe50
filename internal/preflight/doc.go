// Package preflight provides readiness checks for the external services and
// filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon calls ForRun before starting a run, gated on the features the
//     request asked for, so a doomed run fails fast with a configuration error
//     instead of partway through.
//   - The CLI "easel status" command uses RunAll to display service health.
package preflight
