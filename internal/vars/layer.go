// Package vars implements the layered, per-device variable namespace. A
// process-wide SharedState holds the baseline for every layer; each
// DeviceContext is a thin overlay of per-device overrides on top of it, so
// per-device memory cost is proportional to overrides rather than to the
// total variable count.
package vars

// Layer identifies one of the six precedence-ordered variable sources.
type Layer int

const (
	// Environment holds values imported from the process environment.
	Environment Layer = iota
	// Default holds values from the root defaults file.
	Default
	// DomainDefault holds values from the inferred domain's defaults file.
	DomainDefault
	// WorkflowInline holds values declared inline in the workflow file.
	WorkflowInline
	// Runtime holds values set while the workflow executes. It is always
	// per-device; the shared baseline for this layer stays empty.
	Runtime
	// CLIOverride holds values passed on the command line.
	CLIOverride

	numLayers
)

// mergeOrder is the fixed flattening order: each later layer overwrites
// keys from the earlier ones, so CLIOverride wins over Runtime. The
// original documented the opposite intent but implemented this order; we
// keep the implemented order and pin it with a precedence test.
var mergeOrder = [numLayers]Layer{
	Environment, Default, DomainDefault, WorkflowInline, Runtime, CLIOverride,
}

// staticLayers are the five layers known before any device is contacted.
// Blueprint assembly resolves against these alone.
var staticLayers = [...]Layer{
	Environment, Default, DomainDefault, WorkflowInline, CLIOverride,
}

func (l Layer) String() string {
	switch l {
	case Environment:
		return "environment"
	case Default:
		return "default"
	case DomainDefault:
		return "domain-default"
	case WorkflowInline:
		return "workflow-inline"
	case Runtime:
		return "runtime"
	case CLIOverride:
		return "cli-override"
	default:
		return "unknown"
	}
}
