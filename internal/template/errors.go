package template

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// SyntaxError reports a template or expression that failed to parse.
type SyntaxError struct {
	Source string
	Diags  hcl.Diagnostics
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error in %q: %s", e.Source, e.Diags.Error())
}

// UndefinedError reports references to names that are absent from the
// render scope. Names preserves the order the references appear in.
type UndefinedError struct {
	Source string
	Names  []string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined variable(s) %s in template %q",
		strings.Join(e.Names, ", "), e.Source)
}

// EvalError reports an evaluation failure other than an undefined root
// reference, such as a missing attribute on a bound object or a value that
// cannot convert to the required type.
type EvalError struct {
	Source string
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("failed to evaluate %q: %s", e.Source, e.Reason)
}
