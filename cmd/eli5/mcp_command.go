package main

import (
	"github.com/spf13/cobra"

	"github.com/pocketomega/pocket-eli5/internal/mcp"
)

// newMCPCommand serves over stdio, so nothing may be printed to stdout.
func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the eli5_summarize tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp()
			if err != nil {
				return err
			}
			flush := a.startTelemetry(cmd.Context())
			defer flush()

			return mcp.ServeStdio(mcp.NewServer(a.run, version))
		},
	}
}
