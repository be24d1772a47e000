package manifest

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

const DefaultRouterFile = "router.yaml"

// ErrInvalidRouter is wrapped by every error Parse returns.
var ErrInvalidRouter = errors.New("invalid router.yaml")

// Router represents the full router.yaml index.
// Each section maps an alias to its definition.
type Router struct {
	Tasks   map[string]TaskConfig   `yaml:"tasks"`
	Rules   map[string]RuleConfig   `yaml:"rules"`
	Scripts map[string]ScriptConfig `yaml:"scripts"`

	// Aliases in document order, recorded by Parse.
	taskOrder   []string
	ruleOrder   []string
	scriptOrder []string
}

// TaskConfig groups the rules and scripts that apply to one kind of task.
type TaskConfig struct {
	Description string   `yaml:"description"`
	Rules       []string `yaml:"rules"`
	Scripts     []string `yaml:"scripts"`
}

// RuleConfig points at a markdown rule file.
type RuleConfig struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

// ScriptConfig points at a script file.
type ScriptConfig struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

// New returns an empty Router with initialised maps.
func New() *Router {
	return &Router{
		Tasks:   make(map[string]TaskConfig),
		Rules:   make(map[string]RuleConfig),
		Scripts: make(map[string]ScriptConfig),
	}
}

// Parse decodes and validates a router.yaml document.
// Unknown keys are ignored; missing sections default to empty.
func Parse(data []byte) (*Router, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRouter, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: router.yaml must contain a top-level object", ErrInvalidRouter)
	}

	r := New()
	if err := doc.Content[0].Decode(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRouter, err)
	}

	// Ensure nil maps are initialised
	if r.Tasks == nil {
		r.Tasks = make(map[string]TaskConfig)
	}
	if r.Rules == nil {
		r.Rules = make(map[string]RuleConfig)
	}
	if r.Scripts == nil {
		r.Scripts = make(map[string]ScriptConfig)
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	top := doc.Content[0]
	r.taskOrder = sectionKeys(top, "tasks")
	r.ruleOrder = sectionKeys(top, "rules")
	r.scriptOrder = sectionKeys(top, "scripts")
	return r, nil
}

// sectionKeys returns the keys of the named top-level mapping in document order.
func sectionKeys(top *yaml.Node, section string) []string {
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != section {
			continue
		}
		value := top.Content[i+1]
		if value.Kind != yaml.MappingNode {
			return nil
		}
		keys := make([]string, 0, len(value.Content)/2)
		for j := 0; j+1 < len(value.Content); j += 2 {
			keys = append(keys, value.Content[j].Value)
		}
		return keys
	}
	return nil
}

func (r *Router) validate() error {
	for _, name := range sortedKeys(r.Tasks) {
		if r.Tasks[name].Description == "" {
			return fmt.Errorf("%w: tasks.%s: description is required", ErrInvalidRouter, name)
		}
	}
	for _, name := range sortedKeys(r.Rules) {
		rule := r.Rules[name]
		if err := requireFields("rules", name, rule.Path, rule.Description); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(r.Scripts) {
		script := r.Scripts[name]
		if err := requireFields("scripts", name, script.Path, script.Description); err != nil {
			return err
		}
	}
	return nil
}

func requireFields(section, name, path, description string) error {
	if path == "" {
		return fmt.Errorf("%w: %s.%s: path is required", ErrInvalidRouter, section, name)
	}
	if description == "" {
		return fmt.Errorf("%w: %s.%s: description is required", ErrInvalidRouter, section, name)
	}
	return nil
}

// TaskNames returns task aliases in the order router.yaml lists them.
func (r *Router) TaskNames() []string { return orderedKeys(r.Tasks, r.taskOrder) }

// RuleNames returns rule aliases in the order router.yaml lists them.
func (r *Router) RuleNames() []string { return orderedKeys(r.Rules, r.ruleOrder) }

// ScriptNames returns script aliases in the order router.yaml lists them.
func (r *Router) ScriptNames() []string { return orderedKeys(r.Scripts, r.scriptOrder) }

// orderedKeys returns the recorded order while it still matches m, and sorted
// keys otherwise (routers built in code, or maps changed after Parse).
func orderedKeys[V any](m map[string]V, order []string) []string {
	if len(order) != len(m) {
		return sortedKeys(m)
	}
	for _, k := range order {
		if _, ok := m[k]; !ok {
			return sortedKeys(m)
		}
	}
	return append([]string(nil), order...)
}

// MissingRules returns the aliases not defined in the rules section, in input order.
func (r *Router) MissingRules(names []string) []string {
	return missing(names, func(n string) bool { _, ok := r.Rules[n]; return ok })
}

// MissingScripts returns the aliases not defined in the scripts section, in input order.
func (r *Router) MissingScripts(names []string) []string {
	return missing(names, func(n string) bool { _, ok := r.Scripts[n]; return ok })
}

func missing(names []string, has func(string) bool) []string {
	var out []string
	for _, n := range names {
		if !has(n) {
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
