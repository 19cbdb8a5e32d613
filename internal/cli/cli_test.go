package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetflow/fleetflow/internal/cli"
)

func TestParse_FullFlagSet(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := cli.Parse([]string{
		"--workflow", "wf.yaml",
		"--vars-root", "/etc/fleetflow",
		"--workflow-root", "/srv/workflows",
		"--workflow-root", "/opt/workflows",
		"--blueprint-dir", "/srv/blueprints",
		"--inventory", "hosts.yaml",
		"--var", "env=prod",
		"--var", "timeout=5",
		"--check",
		"--log-level", "debug",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, "wf.yaml", cfg.WorkflowPath)
	require.Equal(t, "/etc/fleetflow", cfg.VarsRoot)
	require.Equal(t, []string{"/srv/workflows", "/opt/workflows"}, cfg.WorkflowRoots)
	require.Equal(t, map[string]string{"env": "prod", "timeout": "5"}, cfg.Vars)
	require.True(t, cfg.Check)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_PositionalWorkflowPath(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := cli.Parse([]string{"wf.yaml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, "wf.yaml", cfg.WorkflowPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := cli.Parse(nil, &out)
	require.NoError(t, err)
	require.True(t, exit)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidVar(t *testing.T) {
	var out bytes.Buffer
	_, _, err := cli.Parse([]string{"--var", "noequals", "wf.yaml"}, &out)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestParse_InvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := cli.Parse([]string{"--log-level", "loud", "wf.yaml"}, &out)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
