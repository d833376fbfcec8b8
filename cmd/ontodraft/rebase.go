package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ontodraft/internal/rebase"
	"ontodraft/internal/store"
)

func rebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase <draft-id>",
		Short: "Re-test a draft's changes against the current snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				snap, err := w.db.CurrentSnapshot(ctx)
				if err != nil {
					return err
				}
				if snap == nil {
					return fmt.Errorf("no canonical snapshot recorded; run mirror first")
				}

				outcome, err := rebase.NewEngine(w.db).Rebase(ctx, id, snap.ID)
				if err != nil {
					return err
				}

				fmt.Fprintf(os.Stdout, "Rebase against snapshot %d: %s\n", snap.ID, outcome.Status)
				for _, reason := range outcome.Reasons {
					line := fmt.Sprintf("  %-6s  %s/%s: %s", reason.ChangeType, reason.Kind, reason.Key, reason.Status)
					if reason.Reason != "" {
						line += " (" + reason.Reason + ")"
					}
					fmt.Fprintln(os.Stdout, line)
				}

				if outcome.Status == store.RebaseConflict {
					return fmt.Errorf("rebase found conflicts")
				}
				return nil
			})
		},
	}
}
