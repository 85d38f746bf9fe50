package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Request cancellation of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := api.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.Cancelled {
				fmt.Fprintf(out, "Cancellation requested for %s\n", resp.ID)
				return nil
			}
			detail := resp.Detail
			if detail == "" {
				detail = "not cancelled"
			}
			fmt.Fprintf(out, "Run %s: %s\n", resp.ID, detail)
			return nil
		},
	}
}
