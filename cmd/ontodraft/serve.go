package main

import (
	"context"

	"github.com/spf13/cobra"

	"ontodraft/internal/config"
	"ontodraft/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
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

	server := mcp.NewServer(db, checker, cfg.Limits.MaxInheritanceDepth, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
