package vars

import (
	"maps"
	"sync"
)

// DeviceContext overlays per-device variable overrides on the shared
// baseline. Reading an unset key in any override map falls through to
// SharedState. The runtime map is always distinct per device and never
// backed by the baseline.
//
// A DeviceContext is created lazily on first access, lives for one workflow
// run and is never persisted. Its own maps are mutex-guarded so overlapping
// per-device resolution and runtime writes from worker goroutines stay safe.
type DeviceContext struct {
	name   string
	shared *SharedState

	mu        sync.RWMutex
	overrides [numLayers]map[string]any
}

func newDeviceContext(name string, shared *SharedState) *DeviceContext {
	d := &DeviceContext{name: name, shared: shared}
	// The runtime map exists from birth; override maps for the static
	// layers are allocated on first write.
	d.overrides[Runtime] = map[string]any{}
	return d
}

// Name returns the device name this context belongs to.
func (d *DeviceContext) Name() string {
	return d.name
}

// Set records a per-device override in the given layer. Runtime writes land
// in the device's distinct runtime map.
func (d *DeviceContext) Set(layer Layer, name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.overrides[layer] == nil {
		d.overrides[layer] = map[string]any{}
	}
	d.overrides[layer][name] = value
}

// Get reads one layer: the device override if present, otherwise the shared
// baseline. The runtime layer has no baseline to fall through to.
func (d *DeviceContext) Get(layer Layer, name string) (any, bool) {
	d.mu.RLock()
	if m := d.overrides[layer]; m != nil {
		if v, ok := m[name]; ok {
			d.mu.RUnlock()
			return v, true
		}
	}
	d.mu.RUnlock()
	if layer == Runtime {
		return nil, false
	}
	v, ok := d.shared.Layer(layer)[name]
	return v, ok
}

// Lookup searches all six layers in precedence order, highest first.
func (d *DeviceContext) Lookup(name string) (any, bool) {
	for i := len(mergeOrder) - 1; i >= 0; i-- {
		if v, ok := d.Get(mergeOrder[i], name); ok {
			return v, true
		}
	}
	return nil, false
}

// Flattened merges all six layers in the fixed order environment, default,
// domain-default, workflow-inline, runtime, cli-override, each layer
// overwriting keys from the previous ones. The result is a fresh map the
// caller owns.
func (d *DeviceContext) Flattened() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	flat := map[string]any{}
	for _, l := range mergeOrder {
		if l != Runtime {
			maps.Copy(flat, d.shared.Layer(l))
		}
		if m := d.overrides[l]; m != nil {
			maps.Copy(flat, m)
		}
	}
	return flat
}
