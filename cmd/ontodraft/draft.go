package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ontodraft/internal/config"
	"ontodraft/internal/draft"
	"ontodraft/internal/store"
)

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage drafts",
	}
	cmd.AddCommand(draftCreateCmd())
	cmd.AddCommand(draftListCmd())
	cmd.AddCommand(draftShowCmd())
	cmd.AddCommand(draftSubmitCmd())
	cmd.AddCommand(draftMergedCmd())
	cmd.AddCommand(draftRejectedCmd())
	return cmd
}

func draftCreateCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft pinned to the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				created, err := w.controller.Create(ctx, title)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Created draft %s (base snapshot %d)\n", created.ID, created.BaseSnapshotID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Draft title (required)")
	return cmd
}

func draftListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				drafts, err := w.db.ListDrafts(ctx, store.DraftStatus(status))
				if err != nil {
					return err
				}
				for _, d := range drafts {
					fmt.Fprintf(os.Stdout, "%s  %-10s  %s\n", d.ID, d.Status, d.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

func draftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a draft and its staged changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				d, err := w.db.GetDraft(ctx, id)
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("draft not found")
				}
				fmt.Fprintf(os.Stdout, "Draft:         %s\n", d.ID)
				fmt.Fprintf(os.Stdout, "Title:         %s\n", d.Title)
				fmt.Fprintf(os.Stdout, "Status:        %s\n", d.Status)
				fmt.Fprintf(os.Stdout, "Base snapshot: %d\n", d.BaseSnapshotID)
				if d.RebaseStatus != "" {
					fmt.Fprintf(os.Stdout, "Rebase:        %s (snapshot %d)\n", d.RebaseStatus, d.RebaseSnapshotID)
				}
				if d.PullRequestURL != "" {
					fmt.Fprintf(os.Stdout, "Pull request:  %s\n", d.PullRequestURL)
				}

				changes, err := w.db.ListDraftChanges(ctx, id)
				if err != nil {
					return err
				}
				if len(changes) > 0 {
					fmt.Fprintf(os.Stdout, "Changes (%d):\n", len(changes))
					for _, change := range changes {
						fmt.Fprintf(os.Stdout, "  %-6s  %s/%s\n", change.ChangeType, change.Kind, change.Key)
					}
				}
				return nil
			})
		},
	}
}

func draftSubmitCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "submit <draft-id>",
		Short: "Open a pull request for a validated draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				submitted, err := w.controller.Submit(ctx, id, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Submitted: %s\n", submitted.PullRequestURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "Pull request body")
	return cmd
}

func draftMergedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merged <draft-id>",
		Short: "Mark a submitted draft as merged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				return w.controller.MarkMerged(ctx, id)
			})
		},
	}
}

func draftRejectedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rejected <draft-id>",
		Short: "Mark a submitted draft as rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				return w.controller.MarkRejected(ctx, id)
			})
		},
	}
}

type workflowEnv struct {
	cfg        *config.ProjectConfig
	db         store.Store
	controller *draft.Controller
}

func withWorkflow(fn func(ctx context.Context, w workflowEnv) error) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}

	checker, err := loadChecker()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	return fn(ctx, workflowEnv{
		cfg:        cfg,
		db:         db,
		controller: newWorkflow(db, cfg, checker),
	})
}
