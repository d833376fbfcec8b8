package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
)

func propertiesCmd() *cobra.Command {
	var draftID string
	cmd := &cobra.Command{
		Use:   "properties <category>",
		Short: "Resolve a category's effective properties with provenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := args[0]

			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				cs, err := loadChangeSetArg(ctx, w, draftID)
				if err != nil {
					return err
				}

				ov := overlay.NewEngine(w.db)
				resolver := inherit.NewResolver(w.db, ov, w.cfg.Limits.MaxInheritanceDepth)
				props, err := resolver.EffectiveProperties(ctx, cs, category)
				if err != nil {
					return err
				}

				if len(props) == 0 {
					fmt.Fprintf(os.Stdout, "No properties for %s\n", category)
					return nil
				}
				for _, prop := range props {
					required := ""
					if prop.Required {
						required = "  required"
					}
					fmt.Fprintf(os.Stdout, "%-24s %-24s depth=%d  from=%s%s\n",
						prop.Key, prop.Label, prop.Depth, prop.Source, required)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draftID, "draft", "", "Draft id; omit for the canonical view")
	return cmd
}
