package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"easel/internal/progress"
)

type runEvent = progress.Event

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Follow the progress feed of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return api.Watch(cmd.Context(), args[0], func(event runEvent) {
				fmt.Fprintln(out, renderEvent(event))
			})
		},
	}
}

func renderEvent(event progress.Event) string {
	switch event.Type {
	case progress.EventConnected:
		return "connected"
	case progress.EventStep:
		switch event.Status {
		case progress.StepStarted:
			return fmt.Sprintf("→ %s started", event.Step)
		case progress.StepDone:
			return fmt.Sprintf("✓ %s done%s", event.Step, renderMeta(event.Meta))
		case progress.StepFailed:
			return fmt.Sprintf("✗ %s failed", event.Step)
		}
	case progress.EventDone:
		return "run completed"
	case progress.EventError:
		if event.Detail == progress.CancelledDetail {
			return "run cancelled"
		}
		if event.Step != "" {
			return fmt.Sprintf("run failed at %s: %s", event.Step, event.Detail)
		}
		return fmt.Sprintf("run failed: %s", event.Detail)
	}
	return string(event.Type)
}

func renderMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+meta[key])
	}
	return " (" + strings.Join(parts, " ") + ")"
}
