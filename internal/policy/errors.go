package policy

import (
	"fmt"
	"strings"
)

// ValidationError reports a router.yaml that cannot be parsed or fails schema checks.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("router validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ReferenceError lists every requested alias missing from one router section.
type ReferenceError struct {
	Kind    string // "rule" or "script"
	Aliases []string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unknown %s aliases: %s", e.Kind, strings.Join(e.Aliases, ", "))
}
