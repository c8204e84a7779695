package shottype

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Catalog is a TOML list of shot type templates:
//
//	[[type]]
//	name = "RICE"
//	shape = "sphere"
//	size = 0.4
//	texture = "rice.png"
type Catalog struct {
	Types []Template `toml:"type"`
}

// ParseCatalog decodes and validates a catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing shot type catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Types))
	for i, t := range c.Types {
		t = t.withDefaults()
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("catalog entry %d: %s: %w", i, t.Name, ErrDuplicateType)
		}
		seen[t.Name] = true
		c.Types[i] = t
	}
	return &c, nil
}

// LoadCatalog reads a catalog file. Relative model paths are resolved
// against the catalog's directory.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shot type catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i, t := range c.Types {
		if t.Model != "" && !filepath.IsAbs(t.Model) {
			c.Types[i].Model = filepath.Join(dir, t.Model)
		}
	}
	return c, nil
}
