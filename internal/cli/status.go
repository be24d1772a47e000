package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/manifest"
)

// newStatusCmd creates the `status` command.
// Usage: policygate status
func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the local cache holds",
		Long: `Prints the sync metadata recorded in the local cache. No network access
and no access token are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			loc, err := s.Location()
			if err != nil {
				return err
			}
			return runStatusWith(cmd.OutOrStdout(), loc, s.DataDir)
		},
	}
}

// runStatusWith is the testable core of the status command.
func runStatusWith(out io.Writer, loc config.Location, root string) error {
	md, err := manifest.LoadMetadata(filepath.Join(root, manifest.MetadataFile))
	if err != nil {
		return fmt.Errorf("reading sync metadata: %w", err)
	}

	fmt.Fprintf(out, "📋 %s\n", loc.FullName())
	fmt.Fprintf(out, "  cache:  %s\n", root)
	if md == nil {
		fmt.Fprintln(out, "  ❌ never synced")
		return nil
	}

	fmt.Fprintf(out, "  branch: %s\n", md.DefaultBranch)
	fmt.Fprintf(out, "  sha:    %s\n", md.SHA)
	fmt.Fprintf(out, "  synced: %s\n", md.SyncedTime().Format(time.RFC3339))
	if md.Repository != "" && md.Repository != loc.FullName() {
		fmt.Fprintf(out, "  ⚠️  cache was filled from %s\n", md.Repository)
	}
	return nil
}
