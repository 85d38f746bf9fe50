package api

import (
	"easel/internal/preflight"
	"easel/internal/runstore"
)

// FromRun converts a stored run record into its transport form.
func FromRun(run *runstore.Run) Run {
	out := Run{
		ID:     run.ID,
		Status: string(run.Status),
		Options: RunOptions{
			DPI:     run.Options.DPI,
			Enhance: run.Options.Enhance,
			Upscale: run.Options.Upscale,
			Mockups: run.Options.Mockups,
			Video:   run.Options.Video,
			Texts:   run.Options.Texts,
			Context: run.Options.Context,
		},
		ErrorStep:    run.ErrorStep,
		ErrorMessage: run.ErrorMessage,
		ArchiveKey:   run.ArchiveKey,
		ArchiveBytes: run.ArchiveBytes,
		CreatedAt:    run.CreatedAt.Format(dateTimeFormat),
	}
	if run.FinishedAt != nil {
		out.FinishedAt = run.FinishedAt.Format(dateTimeFormat)
	}
	return out
}

// FromRuns converts a run slice, preserving order.
func FromRuns(runs []*runstore.Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromChecks converts preflight results into their transport form.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, result := range results {
		out = append(out, CheckResult{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	return out
}
