package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
)

func effectiveCmd() *cobra.Command {
	var draftID string
	cmd := &cobra.Command{
		Use:   "effective <kind> <key>",
		Short: "Show an entity with a draft's changes applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}
			key := args[1]

			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				cs, err := loadChangeSetArg(ctx, w, draftID)
				if err != nil {
					return err
				}

				eff, err := overlay.NewEngine(w.db).Effective(ctx, cs, kind, key)
				if err != nil {
					return err
				}
				if eff == nil {
					return fmt.Errorf("entity not found")
				}

				encoded, err := json.MarshalIndent(eff.Render(), "", "  ")
				if err != nil {
					return fmt.Errorf("encoding document: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(encoded))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draftID, "draft", "", "Draft id; omit for the canonical view")
	return cmd
}

// loadChangeSetArg resolves the --draft flag into a change set; empty means
// the canonical view.
func loadChangeSetArg(ctx context.Context, w workflowEnv, draftID string) (*overlay.ChangeSet, error) {
	if draftID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(draftID)
	if err != nil {
		return nil, fmt.Errorf("parsing draft id: %w", err)
	}
	existing, err := w.db.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("draft not found")
	}
	return overlay.LoadChangeSet(ctx, w.db, id)
}
