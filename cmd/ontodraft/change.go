package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

func changeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Stage changes on a draft",
	}
	cmd.AddCommand(changeAddCmd())
	cmd.AddCommand(changeRemoveCmd())
	return cmd
}

func changeAddCmd() *cobra.Command {
	var kindName, key, changeType, documentFile, patchFile string
	cmd := &cobra.Command{
		Use:   "add <draft-id>",
		Short: "Stage a create, update, or delete on a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}

			change := store.DraftChange{
				Kind:       entity.Kind(kindName),
				Key:        key,
				ChangeType: store.ChangeType(changeType),
			}
			if documentFile != "" {
				doc, err := readDocumentFile(documentFile)
				if err != nil {
					return err
				}
				change.Document = doc
			}
			if patchFile != "" {
				raw, err := os.ReadFile(patchFile)
				if err != nil {
					return fmt.Errorf("reading patch file: %w", err)
				}
				change.Patch = raw
			}

			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				if err := w.controller.AddChange(ctx, id, change); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Staged %s of %s/%s\n", change.ChangeType, change.Kind, change.Key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Entity kind (required)")
	cmd.Flags().StringVar(&key, "key", "", "Entity key (required)")
	cmd.Flags().StringVar(&changeType, "type", "", "Change type: create, update, or delete (required)")
	cmd.Flags().StringVar(&documentFile, "document", "", "Document file for creates (JSON)")
	cmd.Flags().StringVar(&patchFile, "patch", "", "Patch file for updates (JSON Patch)")
	return cmd
}

func changeRemoveCmd() *cobra.Command {
	var kindName, key string
	cmd := &cobra.Command{
		Use:   "remove <draft-id>",
		Short: "Drop a staged change from a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				if err := w.controller.RemoveChange(ctx, id, entity.Kind(kindName), key); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Removed change on %s/%s\n", kindName, key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Entity kind (required)")
	cmd.Flags().StringVar(&key, "key", "", "Entity key (required)")
	return cmd
}

func readDocumentFile(path string) (store.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document file: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document file: %w", err)
	}
	return doc, nil
}
