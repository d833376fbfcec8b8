package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ontodraft/internal/validate"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <draft-id>",
		Short: "Validate a draft and suggest a version impact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing draft id: %w", err)
			}
			return withWorkflow(func(ctx context.Context, w workflowEnv) error {
				report, err := w.controller.Validate(ctx, id)
				if err != nil {
					return err
				}
				printReport(report)
				if !report.IsValid {
					return fmt.Errorf("draft is invalid")
				}
				return nil
			})
		},
	}
}

func printReport(report *validate.Report) {
	if report.IsValid {
		fmt.Fprintln(os.Stdout, "Draft is valid.")
	} else {
		fmt.Fprintln(os.Stdout, "Draft is invalid.")
	}
	fmt.Fprintf(os.Stdout, "Suggested version impact: %s\n", report.SuggestedSemver)

	printFindings("Errors", report.Errors)
	printFindings("Warnings", report.Warnings)
	printFindings("Info", report.Info)

	if len(report.SemverReasons) > 0 {
		fmt.Fprintln(os.Stdout, "Version reasons:")
		for _, reason := range report.SemverReasons {
			fmt.Fprintf(os.Stdout, "  - %s\n", reason)
		}
	}
}

func printFindings(heading string, findings []validate.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "%s (%d):\n", heading, len(findings))
	for _, finding := range findings {
		target := ""
		if finding.Key != "" {
			target = fmt.Sprintf("%s/%s: ", finding.Kind, finding.Key)
		}
		fmt.Fprintf(os.Stdout, "  - %s%s [%s]\n", target, finding.Message, finding.Code)
	}
}
