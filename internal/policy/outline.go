package policy

import (
	"fmt"
	"strings"

	"github.com/cbout22/policygate/internal/manifest"
)

const none = "_none_"

// RenderOutline renders the router as markdown, entries in router.yaml order.
func RenderOutline(r *manifest.Router) string {
	lines := []string{"# Router", "## Tasks"}

	if len(r.Tasks) == 0 {
		lines = append(lines, "- "+none)
	}
	for _, name := range r.TaskNames() {
		task := r.Tasks[name]
		lines = append(lines,
			"### "+name,
			"- Description: "+task.Description,
			"- Rules: "+joinOrNone(task.Rules),
			"- Scripts: "+joinOrNone(task.Scripts),
		)
	}

	lines = append(lines, "## Rules")
	if len(r.Rules) == 0 {
		lines = append(lines, "- "+none)
	}
	for _, name := range r.RuleNames() {
		lines = append(lines, fmt.Sprintf("- **%s**: %s", name, r.Rules[name].Description))
	}

	lines = append(lines, "## Scripts")
	if len(r.Scripts) == 0 {
		lines = append(lines, "- "+none)
	}
	for _, name := range r.ScriptNames() {
		script := r.Scripts[name]
		lines = append(lines, fmt.Sprintf("- **%s**: `%s` - %s", name, script.Path, script.Description))
	}

	return strings.Join(lines, "\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return none
	}
	return strings.Join(items, ", ")
}
