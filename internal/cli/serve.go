package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/scheduler"
	"github.com/cbout22/policygate/internal/server"
)

// newServeCmd creates the `serve` command.
// Usage: policygate serve
func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Serves the router outline, rule documents and script copies over HTTP.

When refresh_schedule is set, a background job checks upstream on that cron
schedule so requests rarely wait on GitHub. Metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServeWith(ctx, cmd.OutOrStdout(), a)
		},
	}
}

// runServeWith is the testable core of the serve command.
func runServeWith(ctx context.Context, out io.Writer, a *app) error {
	if err := scheduler.Validate(a.settings.RefreshSchedule); err != nil {
		return err
	}

	coord := a.gateway.Coordinator()

	sched := scheduler.New(a.gateway, a.settings.RefreshSchedule, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	fmt.Fprintf(out, "🚀 Serving %s on http://%s\n", coord.Location().FullName(), a.settings.ListenAddress)
	if next := sched.NextRun(); next != nil {
		fmt.Fprintf(out, "🔄 Next background refresh at %s\n", next.Format(time.RFC3339))
	}

	srv := server.New(a.settings.ListenAddress, a.service, coord, a.registry, a.logger)
	return srv.Run(ctx)
}
