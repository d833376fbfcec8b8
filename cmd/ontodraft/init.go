package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new ontodraft project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(projectName string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(shapesPath); err == nil {
		return fmt.Errorf("%s already exists", shapesPath)
	}

	configContents := fmt.Sprintf(`project: %s
version: 1

database:
  driver: sqlite
  dsn: sqlite://ontodraft.db

schema_repo:
  checkout: ./schema
  api_base: https://git.example.com/api/v1
  repository: %s/schema
  base_branch: main
  token_env: ONTODRAFT_TOKEN

limits:
  max_inheritance_depth: 25
`, projectName, projectName)

	shapesContents := `version: 1

kinds:
  - kind: category
    fields:
      - name: label
        type: string
        required: true
      - name: description
        type: text
  - kind: property
    fields:
      - name: label
        type: string
        required: true
      - name: value_type
        type: enum
        values: [string, text, number, boolean, date, subobject]
        required: true
      - name: multiplicity
        type: enum
        values: [one, many]
  - kind: subobject
    fields:
      - name: label
        type: string
        required: true
  - kind: module
    fields:
      - name: label
        type: string
        required: true
  - kind: bundle
    fields:
      - name: label
        type: string
        required: true
  - kind: template
    fields:
      - name: label
        type: string
        required: true
      - name: category
        type: string
        required: true
      - name: body
        type: text
`

	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(shapesPath, []byte(shapesContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", shapesPath, err)
	}

	return nil
}
