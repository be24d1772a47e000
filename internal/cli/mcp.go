package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/mcpserver"
	"github.com/cbout22/policygate/internal/scheduler"
)

// newMCPCmd creates the `mcp` command.
// Usage: policygate mcp
func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the policy tools over MCP stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
outline_router, sync_repository, read_rules and copy_scripts tools.

Stdout carries the protocol only; logs go to stderr and log_file_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runMCPWith(ctx, a)
		},
	}
}

// runMCPWith is the core of the mcp command. It writes nothing to stdout
// itself.
func runMCPWith(ctx context.Context, a *app) error {
	if err := scheduler.Validate(a.settings.RefreshSchedule); err != nil {
		return err
	}

	sched := scheduler.New(a.gateway, a.settings.RefreshSchedule, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	a.logger.Info("serving mcp over stdio", "repository", a.gateway.Coordinator().Location().FullName())
	return mcpserver.Run(ctx, mcpserver.New(a.service, version, a.logger))
}
