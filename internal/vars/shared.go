package vars

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetflow/fleetflow/internal/inventory"
)

const (
	// EnvPrefix marks process environment variables for import. The prefix
	// is stripped from the imported name.
	EnvPrefix = "FLEETFLOW_VAR_"

	// DefaultsFileName is the fixed file name for variable defaults, looked
	// up at the vars root and again under the inferred domain directory.
	DefaultsFileName = "defaults.yaml"
)

// Options carries the five static variable sources plus the collaborators
// the manager needs at resolve time.
type Options struct {
	// VarsRoot is the directory holding the root defaults file. Empty
	// disables file-based defaults and gates off blueprint expansion.
	VarsRoot string
	// WorkflowPath locates the workflow file; together with WorkflowRoots
	// it determines the domain.
	WorkflowPath string
	// WorkflowRoots are the configured base directories for workflows.
	WorkflowRoots []string
	// InlineVars are variables declared inline in the workflow file.
	InlineVars map[string]any
	// CLIVars are command-line variable overrides.
	CLIVars map[string]any
	// Inventory answers per-device attribute lookups for the reserved
	// host namespace. May be nil when no inventory is configured.
	Inventory *inventory.Directory
}

// SharedState is the write-once baseline of all variable layers, built
// exactly once per Manager. It is immutable after construction and safe for
// unsynchronized concurrent reads.
type SharedState struct {
	layers [numLayers]map[string]any
	domain string
}

// NewSharedState builds the baseline from the five static sources. A
// missing defaults file yields an empty layer; a present but unparsable
// file is a fatal, non-retriable failure.
func NewSharedState(opts Options) (*SharedState, error) {
	s := &SharedState{}
	for i := range s.layers {
		s.layers[i] = map[string]any{}
	}

	s.layers[Environment] = scanEnvironment(os.Environ())

	if opts.VarsRoot != "" {
		rootDefaults, err := loadDefaults(filepath.Join(opts.VarsRoot, DefaultsFileName))
		if err != nil {
			return nil, err
		}
		s.layers[Default] = rootDefaults

		s.domain = inferDomain(opts.WorkflowPath, opts.WorkflowRoots)
		if s.domain != "" {
			domainDefaults, err := loadDefaults(filepath.Join(opts.VarsRoot, s.domain, DefaultsFileName))
			if err != nil {
				return nil, err
			}
			s.layers[DomainDefault] = domainDefaults
		}
	}

	for k, v := range opts.InlineVars {
		s.layers[WorkflowInline][k] = v
	}
	for k, v := range opts.CLIVars {
		s.layers[CLIOverride][k] = v
	}
	return s, nil
}

// Layer returns the baseline mapping for one layer. Callers must treat the
// returned map as read-only.
func (s *SharedState) Layer(l Layer) map[string]any {
	return s.layers[l]
}

// Domain returns the inferred domain, or "" when the workflow sits directly
// under a root or under none of the configured roots.
func (s *SharedState) Domain() string {
	return s.domain
}

// FlattenedStatic merges the five static layers in precedence order. This
// is the scope blueprint assembly resolves against: no runtime layer exists
// before any device is contacted.
func (s *SharedState) FlattenedStatic() map[string]any {
	flat := map[string]any{}
	for _, l := range staticLayers {
		for k, v := range s.layers[l] {
			flat[k] = v
		}
	}
	return flat
}

// scanEnvironment imports every environment entry carrying EnvPrefix,
// prefix stripped. The scan cannot fail.
func scanEnvironment(environ []string) map[string]any {
	imported := map[string]any{}
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if stripped, found := strings.CutPrefix(name, EnvPrefix); found && stripped != "" {
			imported[stripped] = value
		}
	}
	return imported
}

// loadDefaults reads one defaults file. Missing file means an empty layer;
// a file that does not parse as a mapping aborts construction.
func loadDefaults(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}
	defaults := map[string]any{}
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return nil, fmt.Errorf("defaults file %s is not a mapping: %w", path, err)
	}
	return defaults, nil
}

// inferDomain returns the first path segment of workflowPath relative to
// the first workflow root that contains it. A workflow directly under a
// root, or under no configured root, has no domain.
func inferDomain(workflowPath string, workflowRoots []string) string {
	if workflowPath == "" {
		return ""
	}
	absPath, err := filepath.Abs(workflowPath)
	if err != nil {
		return ""
	}
	for _, root := range workflowRoots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		if len(segments) < 2 {
			// Directly under this root: no domain.
			return ""
		}
		return segments[0]
	}
	return ""
}
