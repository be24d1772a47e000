package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/manifest"
)

type syncer interface {
	SyncRepository(ctx context.Context) (map[string]string, error)
}

// newSyncCmd creates the `sync` command.
// Usage: policygate sync
func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the repository snapshot now",
		Long: `Downloads the default branch of the configured repository and replaces
router.yaml, rules/ and scripts/ in the local cache, ignoring the refresh
interval and the stored commit sha.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			coord := a.gateway.Coordinator()
			return runSyncWith(cmd.Context(), cmd.OutOrStdout(), a.service, coord.Location(), coord.Root())
		},
	}
}

// runSyncWith is the testable core of the sync command.
func runSyncWith(ctx context.Context, out io.Writer, svc syncer, loc config.Location, root string) error {
	fmt.Fprintf(out, "🔄 Syncing %s into %s...\n", loc.FullName(), root)

	if _, err := svc.SyncRepository(ctx); err != nil {
		fmt.Fprintf(out, "❌ %s: %s\n", loc.FullName(), err)
		return fmt.Errorf("syncing %s: %w", loc.FullName(), err)
	}

	md, err := manifest.LoadMetadata(filepath.Join(root, manifest.MetadataFile))
	if err != nil || md == nil {
		fmt.Fprintln(out, "✅ Repository synced.")
		return nil
	}
	fmt.Fprintf(out, "✅ Repository synced at %s@%s\n", md.DefaultBranch, shortSHA(md.SHA))
	return nil
}

// shortSHA abbreviates a commit sha for display.
func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
