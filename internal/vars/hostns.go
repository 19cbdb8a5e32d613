package vars

import (
	"fmt"
	"maps"

	"github.com/zclconf/go-cty/cty"

	"github.com/fleetflow/fleetflow/internal/inventory"
	"github.com/fleetflow/fleetflow/internal/template"
)

// HostNamespace is the reserved name templates use to reach the active
// device's inventory entry, e.g. ${host.address}.
const HostNamespace = "host"

// hostValue builds the immutable host object bound into one render scope.
// The binding is constructed fresh per render call with the device baked
// in, so concurrent renders for different devices never share mutable
// state. Attributes and data are merged flat, with the device name always
// present under "name".
func hostValue(h *inventory.Host) (cty.Value, error) {
	merged := make(map[string]any, len(h.Attributes)+len(h.Data)+1)
	maps.Copy(merged, h.Attributes)
	maps.Copy(merged, h.Data)
	merged["name"] = h.Name
	val, err := template.FromGo(merged)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to build host namespace for %q: %w", h.Name, err)
	}
	return val, nil
}
