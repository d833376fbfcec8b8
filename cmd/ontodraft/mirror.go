package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ontodraft/internal/config"
	"ontodraft/internal/mirror"
)

func mirrorCmd() *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror the schema repository checkout into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(ref)
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "Git ref the checkout is at (required)")
	return cmd
}

func runMirror(ref string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := mirror.Run(ctx, db, cfg.SchemaRepo.Checkout, ref)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Mirror complete.")
	fmt.Fprintf(os.Stdout, "  Entities upserted: %d\n", result.EntitiesUpserted)
	fmt.Fprintf(os.Stdout, "  Entities removed:  %d\n", result.EntitiesRemoved)
	fmt.Fprintf(os.Stdout, "  Parent edges:      %d\n", result.EdgesReplaced)
	fmt.Fprintf(os.Stdout, "  Files skipped:     %d\n", result.FilesSkipped)
	if result.Snapshot != nil {
		fmt.Fprintf(os.Stdout, "  Snapshot:          %d (%s)\n", result.Snapshot.ID, result.Snapshot.Ref)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("mirror completed with errors")
	}

	return nil
}
