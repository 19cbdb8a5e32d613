// Package blueprint inlines reusable, named task fragments into a flat
// task list. Expansion walks references recursively, detecting cycles by
// content hash and caching parsed files for the duration of one call. It
// runs once per workflow load, single-threaded, strictly before any
// device-parallel execution begins.
package blueprint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/fleetflow/fleetflow/internal/catalog"
	"github.com/fleetflow/fleetflow/internal/ctxlog"
	"github.com/fleetflow/fleetflow/internal/template"
	"github.com/fleetflow/fleetflow/internal/vars"
)

// ReferenceKey and ConditionKey are the two fields that make a task entry a
// blueprint reference instead of a literal task.
const (
	ReferenceKey = "blueprint"
	ConditionKey = "if"
)

// Expander turns a task list containing blueprint references into a fully
// literal one. It is cheap to construct; all per-call state lives on the
// expansion started by Expand.
type Expander struct {
	opts vars.Options
	cat  *catalog.Catalog
}

// NewExpander builds an expander over the given static variable sources and
// blueprint catalog. A nil catalog means path-only resolution.
func NewExpander(opts vars.Options, cat *catalog.Catalog) *Expander {
	return &Expander{opts: opts, cat: cat}
}

// Expand returns the flat task list. Blueprint expansion is an opt-in,
// configuration-gated feature: with no vars root or no workflow roots the
// input comes back unchanged. Any error aborts the call with no partial
// expansion.
func (e *Expander) Expand(ctx context.Context, tasks []map[string]any) ([]map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	if e.opts.VarsRoot == "" || len(e.opts.WorkflowRoots) == 0 {
		logger.Debug("Blueprint expansion not configured; task list passes through unchanged.")
		return tasks, nil
	}

	scope, err := AssemblyScope(e.opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Assembly-time context built.", "variables", len(scope))

	x := &expansion{
		expander: e,
		scope:    scope,
		cache:    map[ContentHash][]map[string]any{},
		logger:   logger,
	}
	return x.expandList(tasks)
}

// frame marks one blueprint being expanded. Every push has exactly one pop
// on every exit path, success or failure.
type frame struct {
	hash ContentHash
	name string
}

// expansion is the call-local state of one top-level Expand: the assembly
// scope, the explicit frame stack and the content cache. None of it
// survives the call.
type expansion struct {
	expander *Expander
	scope    map[string]cty.Value
	stack    []frame
	cache    map[ContentHash][]map[string]any
	logger   *slog.Logger
}

func (x *expansion) expandList(entries []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		ref, isReference := entry[ReferenceKey]
		if !isReference {
			out = append(out, entry)
			continue
		}
		if cond, hasCondition := entry[ConditionKey]; hasCondition {
			included, err := EvaluateCondition(cond, x.scope)
			if err != nil {
				return nil, err
			}
			if !included {
				// An excluded reference contributes zero fragments and its
				// file is never loaded.
				x.logger.Debug("Blueprint reference excluded by condition.", "reference", ref)
				continue
			}
		}
		fragments, err := x.expandReference(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, fragments...)
	}
	return out, nil
}

func (x *expansion) expandReference(ref any) ([]map[string]any, error) {
	name, ok := ref.(string)
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("blueprint reference must be a string, got %T", ref)}
	}

	// Dynamic names are supported: the reference field is itself a template
	// rendered against the assembly scope.
	displayName := name
	if template.HasMarkers(name) {
		rendered, err := ResolveTemplate(name, x.scope)
		if err != nil {
			return nil, err
		}
		displayName = rendered
	}

	path, err := x.expander.locate(displayName)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}

	hash := hashContent(doc)
	for i := range x.stack {
		if x.stack[i].hash == hash {
			chain := make([]string, 0, len(x.stack)-i)
			for _, f := range x.stack[i:] {
				chain = append(chain, f.name)
			}
			return nil, &CircularDependencyError{Chain: chain}
		}
	}

	x.stack = append(x.stack, frame{hash: hash, name: displayName})
	defer func() { x.stack = x.stack[:len(x.stack)-1] }()

	fragments, cached := x.cache[hash]
	if !cached {
		fragments, err = extractFragments(doc, path)
		if err != nil {
			return nil, err
		}
		x.cache[hash] = fragments
	}
	x.logger.Debug("Expanding blueprint.",
		"name", displayName,
		"path", path,
		"fragments", len(fragments),
		"depth", len(x.stack),
		"hash", hash.String(),
	)
	return x.expandList(fragments)
}

// locate resolves a rendered blueprint name to a file: catalog lookup by
// name first, then the name itself as an absolute or current-directory
// relative path when it carries an explicit suffix.
func (e *Expander) locate(name string) (string, error) {
	var attempted []string
	if e.cat != nil {
		if path, ok := e.cat.Resolve(name); ok {
			return path, nil
		}
		attempted = append(attempted, fmt.Sprintf("catalog entry %q", name))
	}
	for _, suffix := range catalog.Suffixes {
		if strings.HasSuffix(name, suffix) {
			attempted = append(attempted, name)
			if info, err := os.Stat(name); err == nil && !info.IsDir() {
				return name, nil
			}
			break
		}
	}
	return "", &ReferenceError{Name: name, Attempted: attempted}
}

// extractFragments validates the parsed file shape: the sole top-level key
// must be "tasks", holding a sequence of mappings.
func extractFragments(doc any, path string) ([]map[string]any, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("top level must be a mapping, got %T", doc)}
	}
	tasksVal, hasTasks := root["tasks"]
	if !hasTasks || len(root) != 1 {
		return nil, &FormatError{Path: path, Reason: `the sole top-level key must be "tasks"`}
	}
	seq, ok := tasksVal.([]any)
	if !ok {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf(`"tasks" must be a sequence, got %T`, tasksVal)}
	}
	fragments := make([]map[string]any, 0, len(seq))
	for i, item := range seq {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, &FormatError{Path: path, Reason: fmt.Sprintf("task entry %d is not a mapping", i)}
		}
		fragments = append(fragments, entry)
	}
	return fragments, nil
}
