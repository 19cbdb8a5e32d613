// Package catalog maps blueprint names to the files that define them.
package catalog

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Suffixes are the recognized blueprint file extensions.
var Suffixes = []string{".yaml", ".yml"}

// Catalog is a read-only name→path index of blueprints.
type Catalog struct {
	entries map[string]string
}

// New builds an empty catalog.
func New() *Catalog {
	return &Catalog{entries: map[string]string{}}
}

// Add registers one blueprint. The first registration of a name wins, so
// earlier directories shadow later ones.
func (c *Catalog) Add(name, path string) {
	if _, exists := c.entries[name]; !exists {
		c.entries[name] = path
	}
}

// Resolve returns the path registered for name.
func (c *Catalog) Resolve(name string) (string, bool) {
	path, ok := c.entries[name]
	return path, ok
}

// Names returns all registered blueprint names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromDirs walks each directory recursively and registers every file with a
// recognized suffix under its base name without the extension. Directories
// are walked in argument order, so the first hit for a name wins.
func FromDirs(dirs []string) (*Catalog, error) {
	c := New()
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			for _, suffix := range Suffixes {
				if strings.HasSuffix(d.Name(), suffix) {
					c.Add(strings.TrimSuffix(d.Name(), suffix), path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}
