package preflight

import (
	"context"
	"fmt"
	"strings"

	"easel/internal/config"
	"easel/internal/runstore"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config. Feature checks
// run only when the feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckFFmpeg(cfg))
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, cfg))
	}
	if strings.TrimSpace(cfg.Mockups.TemplatesPath) != "" {
		results = append(results, CheckMockupTemplates(cfg))
	}
	return results
}

// ForRun validates that the features a request asks for are actually usable.
// It returns nil when the run can proceed.
func ForRun(cfg *config.Config, opts runstore.Options) error {
	if opts.Texts && strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return fmt.Errorf("text generation requested but no LLM API key is configured")
	}
	if opts.Video {
		status := CheckFFmpeg(cfg)
		if !status.Passed {
			return fmt.Errorf("video requested but %s", status.Detail)
		}
	}
	if opts.Mockups && strings.TrimSpace(cfg.Mockups.TemplatesPath) == "" {
		return fmt.Errorf("mockups requested but no templates are configured")
	}
	return nil
}
