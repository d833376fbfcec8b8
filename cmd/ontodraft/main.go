package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ontodraft",
		Short: "Draft-based change management for a versioned ontology",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(initCmd())
	root.AddCommand(mirrorCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(draftCmd())
	root.AddCommand(changeCmd())
	root.AddCommand(effectiveCmd())
	root.AddCommand(propertiesCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(rebaseCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
