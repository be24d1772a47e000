package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/policy"
)

type scriptCopier interface {
	CopyScripts(ctx context.Context, names []string) (*policy.CopiedScripts, error)
}

// newScriptsCmd creates the `scripts` command.
// Usage: policygate scripts <alias>...
func newScriptsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts <alias>...",
		Short: "Copy scripts by alias into a fresh temporary directory",
		Long: `Copies each named script into a new policygate-scripts-* directory under
the system temp dir and prints the copied paths. File modes are preserved.

Example:
  policygate scripts lint-setup`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeAliases(opts, sectionScripts),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runScriptsWith(cmd.Context(), cmd.OutOrStdout(), a.service, args)
		},
	}
}

// runScriptsWith is the testable core of the scripts command.
func runScriptsWith(ctx context.Context, out io.Writer, svc scriptCopier, names []string) error {
	res, err := svc.CopyScripts(ctx, names)
	if err != nil {
		return fmt.Errorf("copying scripts: %w", err)
	}

	fmt.Fprintf(out, "📦 Copied %d script(s) to %s\n", len(res.CopiedFiles), res.DestinationDirectory)
	for _, p := range res.CopiedFiles {
		fmt.Fprintf(out, "  ✅ %s\n", p)
	}
	return nil
}
