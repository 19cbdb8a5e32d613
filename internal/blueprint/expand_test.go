package blueprint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/fleetflow/internal/blueprint"
	"github.com/fleetflow/fleetflow/internal/catalog"
	"github.com/fleetflow/fleetflow/internal/vars"
)

// expanderFixture builds an expander whose vars root, workflow root and
// blueprint directory all live in one temp tree.
type expanderFixture struct {
	dir  string
	opts vars.Options
	cat  *catalog.Catalog
}

func newFixture(t *testing.T) *expanderFixture {
	t.Helper()
	dir := t.TempDir()
	return &expanderFixture{
		dir: dir,
		opts: vars.Options{
			VarsRoot:      dir,
			WorkflowPath:  filepath.Join(dir, "wf.yaml"),
			WorkflowRoots: []string{dir},
		},
		cat: catalog.New(),
	}
}

func (f *expanderFixture) blueprint(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name+".yaml")
	writeFile(t, path, content)
	f.cat.Add(name, path)
	return path
}

func (f *expanderFixture) expand(t *testing.T, tasks []map[string]any) ([]map[string]any, error) {
	t.Helper()
	return blueprint.NewExpander(f.opts, f.cat).Expand(context.Background(), tasks)
}

func TestExpand_LiteralTasksAreIdempotent(t *testing.T) {
	f := newFixture(t)
	tasks := []map[string]any{
		{"name": "t1", "cmd": "show version"},
		{"name": "t2", "cmd": "reload"},
	}
	out, err := f.expand(t, tasks)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(tasks, out))
}

func TestExpand_GatedOffWithoutConfiguration(t *testing.T) {
	tasks := []map[string]any{{"blueprint": "never-resolved"}}

	out, err := blueprint.NewExpander(vars.Options{}, nil).Expand(context.Background(), tasks)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(tasks, out))

	out, err = blueprint.NewExpander(vars.Options{VarsRoot: t.TempDir()}, nil).Expand(context.Background(), tasks)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(tasks, out))
}

func TestExpand_ParentChild(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "child", "tasks:\n  - name: t1\n")
	f.blueprint(t, "parent", "tasks:\n  - blueprint: child\n")

	out, err := f.expand(t, []map[string]any{{"blueprint": "parent"}})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "t1"}}, out)
}

func TestExpand_FragmentsSpliceInPlace(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "mid", "tasks:\n  - name: m1\n  - name: m2\n")

	out, err := f.expand(t, []map[string]any{
		{"name": "first"},
		{"blueprint": "mid"},
		{"name": "last"},
	})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{
		{"name": "first"},
		{"name": "m1"},
		{"name": "m2"},
		{"name": "last"},
	}, out)
}

func TestExpand_CycleTwoNodes(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "a", "tasks:\n  - blueprint: b\n")
	f.blueprint(t, "b", "tasks:\n  - blueprint: a\n")

	_, err := f.expand(t, []map[string]any{{"blueprint": "a"}})
	var cycleErr *blueprint.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"a", "b"}, cycleErr.Chain)
}

func TestExpand_SelfReferenceHasSingleEntryChain(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "loop", "tasks:\n  - blueprint: loop\n")

	_, err := f.expand(t, []map[string]any{{"blueprint": "loop"}})
	var cycleErr *blueprint.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"loop"}, cycleErr.Chain)
}

func TestExpand_FalseConditionNeverLoadsFile(t *testing.T) {
	f := newFixture(t)
	// The referenced blueprint does not exist; exclusion must keep it from
	// ever being resolved or read.
	out, err := f.expand(t, []map[string]any{
		{"blueprint": "ghost", "if": false},
		{"blueprint": "ghost", "if": "no"},
		{"name": "kept"},
	})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "kept"}}, out)
}

func TestExpand_TrueConditionIncludes(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "child", "tasks:\n  - name: t1\n")

	out, err := f.expand(t, []map[string]any{{"blueprint": "child", "if": "yes"}})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "t1"}}, out)
}

func TestExpand_ConditionEvaluatesAssemblyContext(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "prod-only", "tasks:\n  - name: audit\n")
	f.opts.CLIVars = map[string]any{"env": "dev"}

	out, err := f.expand(t, []map[string]any{
		{"blueprint": "prod-only", "if": `env == "prod"`},
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestExpand_DynamicName(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "db_backup", "tasks:\n  - name: dump\n")
	f.opts.CLIVars = map[string]any{"kind": "db"}

	out, err := f.expand(t, []map[string]any{{"blueprint": "${kind}_backup"}})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "dump"}}, out)
}

func TestExpand_PathReferenceWithSuffix(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "standalone.yaml")
	writeFile(t, path, "tasks:\n  - name: t1\n")

	out, err := f.expand(t, []map[string]any{{"blueprint": path}})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"name": "t1"}}, out)
}

func TestExpand_UnresolvableEnumeratesAttempts(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.dir, "missing.yaml")

	_, err := f.expand(t, []map[string]any{{"blueprint": missing}})
	var refErr *blueprint.ReferenceError
	require.ErrorAs(t, err, &refErr)
	require.Contains(t, refErr.Error(), "catalog entry")
	require.Contains(t, refErr.Error(), missing)
}

func TestExpand_FormatErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"extra-top-level-key", "tasks: []\nvars: {}\n"},
		{"wrong-key", "steps: []\n"},
		{"tasks-not-a-sequence", "tasks:\n  name: t1\n"},
		{"entry-not-a-mapping", "tasks:\n  - just a string\n"},
		{"top-level-sequence", "- name: t1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.blueprint(t, "bad", tc.content)

			_, err := f.expand(t, []map[string]any{{"blueprint": "bad"}})
			var formatErr *blueprint.FormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestExpand_ContentCacheSharesEquivalentFiles(t *testing.T) {
	f := newFixture(t)
	// Same parsed structure, different source formatting: one cache node.
	f.blueprint(t, "block", "tasks:\n  - name: t1\n    cmd: reload\n")
	f.blueprint(t, "flow", "tasks: [{cmd: reload, name: t1}]\n")

	out, err := f.expand(t, []map[string]any{
		{"blueprint": "block"},
		{"blueprint": "flow"},
	})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{
		{"name": "t1", "cmd": "reload"},
		{"name": "t1", "cmd": "reload"},
	}, out)
}

func TestExpand_NestedBlueprints(t *testing.T) {
	f := newFixture(t)
	f.blueprint(t, "leaf", "tasks:\n  - name: leaf-task\n")
	f.blueprint(t, "mid", "tasks:\n  - name: before\n  - blueprint: leaf\n")
	f.blueprint(t, "top", "tasks:\n  - blueprint: mid\n  - name: after\n")

	out, err := f.expand(t, []map[string]any{{"blueprint": "top"}})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{
		{"name": "before"},
		{"name": "leaf-task"},
		{"name": "after"},
	}, out)
}
