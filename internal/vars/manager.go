package vars

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/fleetflow/fleetflow/internal/inventory"
	"github.com/fleetflow/fleetflow/internal/template"
)

// Manager owns the shared layer baseline and the per-device context
// registry, and exposes the resolve/get/set operations the execution engine
// calls at per-device dispatch time.
type Manager struct {
	shared    *SharedState
	inventory *inventory.Directory

	mu      sync.Mutex
	devices map[string]*DeviceContext
}

// NewManager builds the shared layer state from the five static sources.
// Static-layer load failures are fatal: no device context can exist before
// the baseline does.
func NewManager(opts Options) (*Manager, error) {
	shared, err := NewSharedState(opts)
	if err != nil {
		return nil, err
	}
	return &Manager{
		shared:    shared,
		inventory: opts.Inventory,
		devices:   map[string]*DeviceContext{},
	}, nil
}

// Shared returns the immutable baseline.
func (m *Manager) Shared() *SharedState {
	return m.shared
}

// DeviceContext returns the context for the named device, creating it on
// first access. First insertion is guarded so concurrent workers asking for
// the same device always get the same instance.
func (m *Manager) DeviceContext(name string) *DeviceContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dc, ok := m.devices[name]; ok {
		return dc
	}
	dc := newDeviceContext(name, m.shared)
	m.devices[name] = dc
	return dc
}

// SetRuntimeVariable writes into the named device's runtime map only.
func (m *Manager) SetRuntimeVariable(name string, value any, device string) error {
	if device == "" {
		return errors.New("a device name is required to set a runtime variable")
	}
	m.DeviceContext(device).Set(Runtime, name, value)
	return nil
}

// GetVariable performs the merged six-layer lookup for one device.
func (m *Manager) GetVariable(name, device string) (any, error) {
	if v, ok := m.DeviceContext(device).Lookup(name); ok {
		return v, nil
	}
	return nil, &VariableNotFoundError{Name: name, Device: device}
}

// ResolveString renders one templated value for a device. Non-string input
// passes through unchanged, as does a string without template markers —
// neither needs a device. A templated string requires a device name; its
// render scope is the device's flattened six layers, any one-off extra
// values at highest precedence, and the bound host namespace.
func (m *Manager) ResolveString(value any, device string, extra map[string]any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	if !template.HasMarkers(s) {
		return s, nil
	}
	if device == "" {
		return nil, fmt.Errorf("a device name is required to resolve templated value %q", s)
	}
	scope, err := m.renderScope(device, extra)
	if err != nil {
		return nil, err
	}
	rendered, err := template.Render(s, scope)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", device, err)
	}
	return rendered, nil
}

// ResolveData recursively applies ResolveString to every string inside
// nested mappings and sequences. Sequences of any element type come back as
// []any; scalars other than strings pass through unchanged.
func (m *Manager) ResolveData(value any, device string, extra map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return m.ResolveString(v, device, extra)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			resolved, err := m.ResolveData(elem, device, extra)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			resolved, err := m.ResolveData(elem, device, extra)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprintf("%v", k)] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := m.ResolveData(elem, device, extra)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		// Typed slices (e.g. []string from a caller rather than YAML) are
		// normalized to the one ordered-sequence representation.
		rv := reflect.ValueOf(value)
		if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			out := make([]any, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				resolved, err := m.ResolveData(rv.Index(i).Interface(), device, extra)
				if err != nil {
					return nil, err
				}
				out[i] = resolved
			}
			return out, nil
		}
		return value, nil
	}
}

// renderScope flattens the device's layers, applies extra values on top and
// binds the host namespace. The scope is built fresh per render call.
func (m *Manager) renderScope(device string, extra map[string]any) (map[string]cty.Value, error) {
	flat := m.DeviceContext(device).Flattened()
	for k, v := range extra {
		flat[k] = v
	}
	scope := make(map[string]cty.Value, len(flat)+1)
	for k, v := range flat {
		converted, err := template.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		scope[k] = converted
	}
	if m.inventory != nil {
		if h, ok := m.inventory.Lookup(device); ok {
			hostVal, err := hostValue(h)
			if err != nil {
				return nil, err
			}
			scope[HostNamespace] = hostVal
		}
	}
	// A template that references host without an inventory binding fails
	// with an undefined-variable error naming "host".
	return scope, nil
}
