package blueprint

import (
	"fmt"
	"strings"
)

// ReferenceError reports a blueprint name that resolved to no file. It
// enumerates every location that was attempted.
type ReferenceError struct {
	Name      string
	Attempted []string
}

func (e *ReferenceError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("cannot resolve blueprint %q: no catalog is configured and the name carries no recognized file suffix", e.Name)
	}
	return fmt.Sprintf("cannot resolve blueprint %q: tried %s", e.Name, strings.Join(e.Attempted, ", "))
}

// FormatError reports a blueprint file with the wrong shape: unparsable,
// a top-level key other than "tasks", or a non-sequence "tasks" value.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid blueprint: %s", e.Reason)
	}
	return fmt.Sprintf("invalid blueprint %s: %s", e.Path, e.Reason)
}

// CircularDependencyError reports a content-hash reentry during expansion.
// Chain holds the display names from the outermost reference down to the
// repeated one; a self-reference yields a single entry.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular blueprint dependency: %s", strings.Join(e.Chain, " -> "))
}

// ConditionTypeError reports an "if" value that is neither a boolean, a
// recognized truthy/falsy token, nor an expression producing a boolean.
type ConditionTypeError struct {
	Value any
}

func (e *ConditionTypeError) Error() string {
	return fmt.Sprintf("blueprint condition %v (%T) is neither a boolean, a recognized token, nor a boolean expression", e.Value, e.Value)
}
