package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkflowPath is the workflow file to load.
	WorkflowPath string
	// VarsRoot is the directory holding defaults.yaml files. Empty gates
	// off blueprint expansion and file-based defaults.
	VarsRoot string
	// WorkflowRoots are the configured workflow base directories used for
	// domain inference.
	WorkflowRoots []string
	// BlueprintDirs are walked to build the blueprint name catalog.
	BlueprintDirs []string
	// InventoryPath is an optional device inventory file.
	InventoryPath string
	// Vars are command-line variable overrides.
	Vars map[string]string
	// Check resolves every task per device after expansion instead of
	// stopping at the flat task list.
	Check bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it. Log flags are validated by
// the CLI layer before this runs.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}
	return &cfg, nil
}
