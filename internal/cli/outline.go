package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type outliner interface {
	OutlineRouter(ctx context.Context) (string, error)
}

// newOutlineCmd creates the `outline` command.
// Usage: policygate outline
func newOutlineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outline",
		Short: "Print the router index as markdown",
		Long: `Refreshes the cache if the refresh interval has passed, then prints the
tasks, rules and scripts declared in router.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runOutlineWith(cmd.Context(), cmd.OutOrStdout(), a.service)
		},
	}
}

// runOutlineWith is the testable core of the outline command.
func runOutlineWith(ctx context.Context, out io.Writer, svc outliner) error {
	text, err := svc.OutlineRouter(ctx)
	if err != nil {
		return fmt.Errorf("loading router: %w", err)
	}
	fmt.Fprintln(out, text)
	return nil
}
