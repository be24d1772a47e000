package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/repository"
)

type drifter interface {
	CheckDrift(ctx context.Context) (repository.Drift, error)
	Location() config.Location
}

// newCheckCmd creates the `check` command.
// Usage: policygate check [--strict]
func newCheckCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check if the local cache holds the upstream tip",
		Long: `Compares the commit sha recorded in the local cache with the tip of the
repository's default branch. Nothing is downloaded. Useful in CI/CD pipelines.

With --strict, the command exits with a non-zero code if the cache is
stale or was never synced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runCheckWith(cmd.Context(), cmd.OutOrStdout(), a.gateway.Coordinator(), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with error code if the cache is stale or missing")

	return cmd
}

// runCheckWith is the testable core of the check command.
func runCheckWith(ctx context.Context, out io.Writer, d drifter, strict bool) error {
	repo := d.Location().FullName()
	fmt.Fprintf(out, "🔍 Checking %s...\n\n", repo)

	drift, err := d.CheckDrift(ctx)
	if err != nil {
		return fmt.Errorf("checking upstream: %w", err)
	}

	r := ClassifyDrift(repo, drift)
	switch r.Status {
	case CheckInSync:
		fmt.Fprintf(out, "  ✅ %s@%s - in sync (synced %s)\n", r.Branch, shortSHA(r.StoredSHA), r.SyncedAt.Format(time.RFC3339))
	case CheckNeverSynced:
		fmt.Fprintf(out, "  ❌ %s - never synced\n", repo)
	case CheckStale:
		fmt.Fprintf(out, "  ⚠️  %s - stale: local=%s upstream=%s\n", r.Branch, shortSHA(r.StoredSHA), shortSHA(r.UpstreamSHA))
	case CheckRepositoryChanged:
		fmt.Fprintf(out, "  ⚠️  cache holds %s, configured %s\n", r.Cached, repo)
	}

	fmt.Fprintln(out)
	if r.Status != CheckInSync {
		msg := "Cache is out of date. Run 'policygate sync' to fix."
		if strict {
			return errors.New(msg)
		}
		fmt.Fprintf(out, "⚠️  %s\n", msg)
	} else {
		fmt.Fprintln(out, "✅ Cache is in sync.")
	}
	return nil
}
