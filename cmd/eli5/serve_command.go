package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pocketomega/pocket-eli5/internal/web"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp()
			if err != nil {
				return err
			}
			flush := a.startTelemetry(cmd.Context())
			defer flush()

			srv, err := web.NewServer(a.run, web.HealthInfo{
				LLMModel: a.model,
				Mode:     string(a.deps.Options.Mode),
			})
			if err != nil {
				return fmt.Errorf("create web server: %w", err)
			}

			if strings.TrimSpace(port) == "" {
				port = a.cfg.Web.Port
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🤖 LLM: %s\n", a.describeLLM())
			return srv.Start(cmd.Context(), ":"+port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default from config)")
	return cmd
}
