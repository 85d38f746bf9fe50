package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and readiness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Daemon:      running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Active runs: %d\n", status.ActiveRuns)
			fmt.Fprintf(out, "Run DB:      %s\n", status.RunDBPath)
			fmt.Fprintf(out, "Lock file:   %s\n", status.LockFilePath)

			if len(status.Checks) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(status.Checks))
			for _, check := range status.Checks {
				state := "ok"
				if !check.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{check.Name, state, check.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
