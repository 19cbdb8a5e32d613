package app

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fleetflow/fleetflow/internal/blueprint"
	"github.com/fleetflow/fleetflow/internal/catalog"
	"github.com/fleetflow/fleetflow/internal/ctxlog"
	"github.com/fleetflow/fleetflow/internal/inventory"
	"github.com/fleetflow/fleetflow/internal/vars"
	"github.com/fleetflow/fleetflow/internal/workflow"
)

// Run executes the load pipeline: load the workflow, expand blueprints
// into a flat task list, and in check mode resolve every task's variables
// per device. Expansion and static-layer failures abort the run before any
// device-scoped work happens; per-device resolution failures in check mode
// are scoped to that device.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	wf, err := workflow.Load(a.config.WorkflowPath)
	if err != nil {
		return err
	}
	a.logger.Debug("Workflow loaded.", "name", wf.Name, "tasks", len(wf.Tasks), "hosts", len(wf.Hosts))

	var cat *catalog.Catalog
	if len(a.config.BlueprintDirs) > 0 {
		cat, err = catalog.FromDirs(a.config.BlueprintDirs)
		if err != nil {
			return fmt.Errorf("failed to build blueprint catalog: %w", err)
		}
		a.logger.Debug("Blueprint catalog built.", "entries", len(cat.Names()))
	}

	var inv *inventory.Directory
	if a.config.InventoryPath != "" {
		inv, err = inventory.Load(a.config.InventoryPath)
		if err != nil {
			return err
		}
		a.logger.Debug("Inventory loaded.", "hosts", len(inv.Names()))
	}

	cliVars := make(map[string]any, len(a.config.Vars))
	for k, v := range a.config.Vars {
		cliVars[k] = v
	}
	opts := vars.Options{
		VarsRoot:      a.config.VarsRoot,
		WorkflowPath:  a.config.WorkflowPath,
		WorkflowRoots: a.config.WorkflowRoots,
		InlineVars:    wf.Vars,
		CLIVars:       cliVars,
		Inventory:     inv,
	}

	tasks, err := blueprint.NewExpander(opts, cat).Expand(ctx, wf.Tasks)
	if err != nil {
		return fmt.Errorf("blueprint expansion failed: %w", err)
	}
	a.logger.Info("Blueprint expansion complete.", "tasks", len(tasks))

	if !a.config.Check || len(wf.Hosts) == 0 {
		return a.emit(map[string]any{"name": wf.Name, "tasks": tasks})
	}

	manager, err := vars.NewManager(opts)
	if err != nil {
		return err
	}

	resolvedByDevice := make(map[string]any, len(wf.Hosts))
	for _, device := range wf.Hosts {
		resolved := make([]any, 0, len(tasks))
		failed := false
		for _, task := range tasks {
			out, err := manager.ResolveData(task, device, nil)
			if err != nil {
				// Scoped to this device; the rest of the fleet still renders.
				a.logger.Error("Per-device resolution failed.", "device", device, "error", err)
				resolvedByDevice[device] = map[string]any{"failed": true, "error": err.Error()}
				failed = true
				break
			}
			resolved = append(resolved, out)
		}
		if !failed {
			resolvedByDevice[device] = resolved
		}
	}
	return a.emit(map[string]any{"name": wf.Name, "devices": resolvedByDevice})
}

// emit writes one YAML document to the configured output writer.
func (a *App) emit(doc any) error {
	enc := yaml.NewEncoder(a.outW)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
