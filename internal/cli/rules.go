package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type ruleReader interface {
	ReadRules(ctx context.Context, names []string) (string, error)
}

// newRulesCmd creates the `rules` command.
// Usage: policygate rules <alias>...
func newRulesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules <alias>...",
		Short: "Print rule documents by alias",
		Long: `Prints each named rule wrapped in <alias> tags, in the order given.
Aliases are the keys of the rules section of router.yaml.

Example:
  policygate rules python-style testing`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeAliases(opts, sectionRules),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runRulesWith(cmd.Context(), cmd.OutOrStdout(), a.service, args)
		},
	}
}

// runRulesWith is the testable core of the rules command.
func runRulesWith(ctx context.Context, out io.Writer, svc ruleReader, names []string) error {
	text, err := svc.ReadRules(ctx, names)
	if err != nil {
		return fmt.Errorf("reading rules: %w", err)
	}
	fmt.Fprintln(out, text)
	return nil
}
