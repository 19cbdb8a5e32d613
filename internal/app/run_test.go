package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fleetflow/fleetflow/internal/app"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestRun_Pipeline drives the whole load pipeline: workflow load, blueprint
// expansion through a catalog, and per-device resolution in check mode.
func TestRun_Pipeline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blueprints", "db_backup.yaml"),
		"tasks:\n  - name: dump\n    target: ${host.address}\n")
	writeFile(t, filepath.Join(dir, "inventory.yaml"),
		"edge-1:\n  attributes:\n    address: 10.0.0.1\n")
	writeFile(t, filepath.Join(dir, "workflows", "dc", "wf.yaml"), `
name: nightly
hosts: [edge-1]
vars:
  kind: db
tasks:
  - blueprint: ${kind}_backup
  - name: verify
`)
	writeFile(t, filepath.Join(dir, "vars", "defaults.yaml"), "retries: 2\n")

	cfg, err := app.NewConfig(app.Config{
		WorkflowPath:  filepath.Join(dir, "workflows", "dc", "wf.yaml"),
		VarsRoot:      filepath.Join(dir, "vars"),
		WorkflowRoots: []string{filepath.Join(dir, "workflows")},
		BlueprintDirs: []string{filepath.Join(dir, "blueprints")},
		InventoryPath: filepath.Join(dir, "inventory.yaml"),
		Check:         true,
		LogLevel:      "error",
		LogFormat:     "text",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, app.NewApp(&out, cfg).Run(context.Background()))

	var doc struct {
		Name    string           `yaml:"name"`
		Devices map[string][]any `yaml:"devices"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Equal(t, "nightly", doc.Name)
	require.Len(t, doc.Devices["edge-1"], 2)
	first, ok := doc.Devices["edge-1"][0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "dump", first["name"])
	require.Equal(t, "10.0.0.1", first["target"])
}

// TestRun_ExpansionFailureAborts covers the fail-fast contract: a broken
// blueprint aborts the whole run before any device-scoped work.
func TestRun_ExpansionFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blueprints", "bad.yaml"), "steps: []\n")
	writeFile(t, filepath.Join(dir, "workflows", "wf.yaml"),
		"name: broken\ntasks:\n  - blueprint: bad\n")

	cfg, err := app.NewConfig(app.Config{
		WorkflowPath:  filepath.Join(dir, "workflows", "wf.yaml"),
		VarsRoot:      dir,
		WorkflowRoots: []string{filepath.Join(dir, "workflows")},
		BlueprintDirs: []string{filepath.Join(dir, "blueprints")},
		LogLevel:      "error",
		LogFormat:     "text",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	err = app.NewApp(&out, cfg).Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "blueprint expansion failed")
}

func TestRun_WithoutCheckEmitsFlatTasks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wf.yaml"),
		"name: simple\ntasks:\n  - name: t1\n")

	cfg, err := app.NewConfig(app.Config{
		WorkflowPath: filepath.Join(dir, "wf.yaml"),
		LogLevel:     "error",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, app.NewApp(&out, cfg).Run(context.Background()))

	var doc struct {
		Name  string           `yaml:"name"`
		Tasks []map[string]any `yaml:"tasks"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Equal(t, "simple", doc.Name)
	require.Equal(t, []map[string]any{{"name": "t1"}}, doc.Tasks)
}
