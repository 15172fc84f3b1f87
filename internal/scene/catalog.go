package scene

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ShapeDefault names a capability a shape carries out of the box, with an
// optional default state overlay.
type ShapeDefault struct {
	Type  string                 `yaml:"type" json:"type"`
	State map[string]interface{} `yaml:"state,omitempty" json:"state,omitempty"`
}

// ShapeSpec describes a named primitive shape.
type ShapeSpec struct {
	Kind     string         `yaml:"kind" json:"kind"`
	Defaults []ShapeDefault `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// Catalog maps shape kinds to their specs. The executor consults it during
// reconstruction: capabilities a fresh shape already provides are not
// re-instantiated, only overlaid with recorded state.
type Catalog struct {
	shapes map[string]ShapeSpec
}

type catalogFile struct {
	Shapes []ShapeSpec `yaml:"shapes"`
}

// DefaultCatalog returns the built-in primitive shapes.
func DefaultCatalog() *Catalog {
	return newCatalog([]ShapeSpec{
		{Kind: "cube", Defaults: []ShapeDefault{{Type: "Surface"}, {Type: "Body"}}},
		{Kind: "sphere", Defaults: []ShapeDefault{{Type: "Surface"}, {Type: "Body"}}},
		{Kind: "capsule", Defaults: []ShapeDefault{{Type: "Surface"}, {Type: "Body"}}},
		{Kind: "plane", Defaults: []ShapeDefault{{Type: "Surface"}, {Type: "Body", State: map[string]interface{}{"kinematic": true}}}},
	})
}

// LoadCatalog reads a shape catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Shapes) == 0 {
		return nil, fmt.Errorf("catalog %s defines no shapes", path)
	}
	return newCatalog(file.Shapes), nil
}

func newCatalog(specs []ShapeSpec) *Catalog {
	c := &Catalog{shapes: make(map[string]ShapeSpec, len(specs))}
	for _, spec := range specs {
		c.shapes[spec.Kind] = spec
	}
	return c
}

// Lookup returns the spec for a shape kind.
func (c *Catalog) Lookup(kind string) (ShapeSpec, bool) {
	spec, ok := c.shapes[kind]
	return spec, ok
}

// IsDefaultCapability reports whether the shape kind carries the capability
// type out of the box.
func (c *Catalog) IsDefaultCapability(kind, typeName string) bool {
	spec, ok := c.shapes[kind]
	if !ok {
		return false
	}
	for _, def := range spec.Defaults {
		if def.Type == typeName {
			return true
		}
	}
	return false
}

// Kinds returns all known shape kinds.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.shapes))
	for kind := range c.shapes {
		kinds = append(kinds, kind)
	}
	return kinds
}
