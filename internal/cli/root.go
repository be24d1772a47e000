package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// rootOptions carries the flags every subcommand shares.
type rootOptions struct {
	configPath string
}

// NewRootCmd creates the top-level `policygate` command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "policygate",
		Short: "policygate - serve a GitHub policy repository to AI agents",
		Long: `policygate mirrors router.yaml, rules/ and scripts/ from a GitHub repository
into a local cache and serves them: an outline of the router index, rule
documents by alias, and copies of scripts by alias. The same operations are
available over HTTP (serve) and as MCP tools on stdio (mcp).

Settings are read from policygate.toml and POLICYGATE__* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigFile, "Path to the settings file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	root.AddCommand(newOutlineCmd(opts))
	root.AddCommand(newSyncCmd(opts))
	root.AddCommand(newRulesCmd(opts))
	root.AddCommand(newScriptsCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}

// settings loads and validates the configuration. A --config path given
// explicitly must exist.
func (o *rootOptions) settings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
