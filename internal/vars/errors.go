package vars

import "fmt"

// VariableNotFoundError reports a name absent from every layer of a
// device's namespace.
type VariableNotFoundError struct {
	Name   string
	Device string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q not found in any layer for device %q", e.Name, e.Device)
}
