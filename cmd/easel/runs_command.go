package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"easel/internal/api"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			runs, err := apiClient.Runs(cmd.Context(), statusFilter...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Status,
					renderFeatures(run.Options),
					renderOutcome(run),
					run.CreatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Status", "Features", "Outcome", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (running, completed, failed, cancelled)")
	return cmd
}

func renderFeatures(opts api.RunOptions) string {
	features := make([]string, 0, 4)
	if opts.Enhance {
		features = append(features, fmt.Sprintf("enhance x%d", opts.Upscale))
	}
	if opts.Mockups {
		features = append(features, "mockups")
	}
	if opts.Video {
		features = append(features, "video")
	}
	if opts.Texts {
		features = append(features, "texts")
	}
	if len(features) == 0 {
		return fmt.Sprintf("dpi %d", opts.DPI)
	}
	return strings.Join(features, ", ")
}

func renderOutcome(run api.Run) string {
	switch run.Status {
	case "completed":
		return fmt.Sprintf("%s (%d bytes)", run.ArchiveKey, run.ArchiveBytes)
	case "failed":
		if run.ErrorStep != "" {
			return fmt.Sprintf("%s: %s", run.ErrorStep, run.ErrorMessage)
		}
		return run.ErrorMessage
	default:
		return ""
	}
}
