// Package workflow loads device-automation workflow files. A workflow
// names the devices it targets, declares inline variables and carries the
// raw task sequence that blueprint expansion flattens.
package workflow

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workflow is one loaded workflow file. Task entries are opaque to this
// core except for the blueprint reference fields; they pass through to the
// execution engine untouched.
type Workflow struct {
	Name  string           `yaml:"name"`
	Hosts []string         `yaml:"hosts"`
	Vars  map[string]any   `yaml:"vars"`
	Tasks []map[string]any `yaml:"tasks"`
}

// Load strict-decodes one workflow file. Unknown top-level fields are an
// error so a mistyped key fails the run instead of silently vanishing.
func Load(path string) (*Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", path, err)
	}
	if wf.Vars == nil {
		wf.Vars = map[string]any{}
	}
	return &wf, nil
}
