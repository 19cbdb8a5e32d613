// Package inventory holds the directory of managed devices. The directory
// is an external collaborator as far as variable resolution is concerned:
// it only has to answer per-device attribute lookups for the reserved host
// namespace.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Host is one managed device. Attributes describe the device itself
// (address, platform, port); Data carries free-form values attached to it.
type Host struct {
	Name       string         `yaml:"-"`
	Attributes map[string]any `yaml:"attributes"`
	Data       map[string]any `yaml:"data"`
}

// Directory is a read-only set of hosts keyed by name.
type Directory struct {
	hosts map[string]*Host
}

// New builds a directory from the given hosts. Later duplicates replace
// earlier ones.
func New(hosts ...*Host) *Directory {
	d := &Directory{hosts: make(map[string]*Host, len(hosts))}
	for _, h := range hosts {
		d.hosts[h.Name] = h
	}
	return d
}

// Load reads an inventory file: a YAML mapping of host name to host body.
func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}
	byName := map[string]*Host{}
	if err := yaml.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	d := &Directory{hosts: make(map[string]*Host, len(byName))}
	for name, h := range byName {
		if h == nil {
			h = &Host{}
		}
		h.Name = name
		d.hosts[name] = h
	}
	return d, nil
}

// Lookup returns the host with the given name, if present.
func (d *Directory) Lookup(name string) (*Host, bool) {
	h, ok := d.hosts[name]
	return h, ok
}

// Names returns all host names in sorted order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.hosts))
	for name := range d.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
