package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/manifest"
)

const (
	sectionRules   = "rules"
	sectionScripts = "scripts"
)

// completeAliases completes rule or script aliases from the cached router.yaml.
// It never touches the network, so completions reflect the last sync.
func completeAliases(opts *rootOptions, section string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		s, err := opts.settings(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return resolveAliasCompletions(s.DataDir, section, args, toComplete)
	}
}

func resolveAliasCompletions(root, section string, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	data, err := os.ReadFile(filepath.Join(root, manifest.DefaultRouterFile))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	r, err := manifest.Parse(data)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	descriptions := make(map[string]string)
	var names []string
	switch section {
	case sectionRules:
		names = r.RuleNames()
		for _, n := range names {
			descriptions[n] = r.Rules[n].Description
		}
	case sectionScripts:
		names = r.ScriptNames()
		for _, n := range names {
			descriptions[n] = r.Scripts[n].Description
		}
	}

	given := make(map[string]bool, len(args))
	for _, a := range args {
		given[a] = true
	}

	var completions []string
	for _, name := range names {
		if given[name] || !strings.HasPrefix(name, toComplete) {
			continue
		}
		completions = append(completions, formatCompletionLine(name, descriptions[name]))
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// formatCompletionLine joins a value and its description the way cobra expects.
func formatCompletionLine(value, description string) string {
	if description == "" {
		return value
	}
	return value + "\t" + strings.ReplaceAll(description, "\n", " ")
}
