package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/carclash-server/pkg/model"
)

//go:embed catalog.yml
var defaultCatalog []byte

// Document is the format of catalog files and car packs.
// A pack may list its cars flat or grouped by category.
// JSON documents are accepted as well.
type Document struct {
	Cars       []model.CarDefinition            `yaml:"cars"`
	Categories map[string][]model.CarDefinition `yaml:"categories"`
}

// Catalog is the append-only set of car definitions.
// It is not safe for concurrent use, the engine owns it.
type Catalog struct {
	defs  map[string]*model.CarDefinition
	order []string
}

func New() *Catalog {
	return &Catalog{defs: map[string]*model.CarDefinition{}, order: []string{}}
}

// Default returns a catalog filled with the embedded car definitions.
func Default() *Catalog {
	c := New()
	defs, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	c.Merge(defs)
	return c
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c := New()
	c.Merge(defs)
	return c, nil
}

// Parse decodes a catalog or pack document and validates every entry.
func Parse(data []byte) ([]model.CarDefinition, error) {
	doc := Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	ret := make([]model.CarDefinition, 0, len(doc.Cars))
	ret = append(ret, doc.Cars...)
	names := make([]string, 0, len(doc.Categories))
	for name := range doc.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, d := range doc.Categories[name] {
			if d.Category == "" {
				d.Category = name
			}
			ret = append(ret, d)
		}
	}
	for i := range ret {
		if err := ret[i].Validate(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Merge adds definitions whose id is not yet known.
// Existing entries are never overwritten. Returns the ids that were added.
func (c *Catalog) Merge(defs []model.CarDefinition) []string {
	added := []string{}
	for i := range defs {
		d := defs[i]
		if _, ok := c.defs[d.ID]; ok {
			continue
		}
		c.defs[d.ID] = &d
		c.order = append(c.order, d.ID)
		added = append(added, d.ID)
	}
	return added
}

// Get returns a copy of the definition
func (c *Catalog) Get(id string) (model.CarDefinition, bool) {
	d, ok := c.defs[id]
	if !ok {
		return model.CarDefinition{}, false
	}
	return *d, true
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// All returns copies of all definitions in insertion order
func (c *Catalog) All() []model.CarDefinition {
	ret := make([]model.CarDefinition, 0, len(c.order))
	for _, id := range c.order {
		ret = append(ret, *c.defs[id])
	}
	return ret
}

// ByCategory groups the definitions the way clients display them
func (c *Catalog) ByCategory() map[string][]model.CarDefinition {
	ret := map[string][]model.CarDefinition{}
	for _, id := range c.order {
		d := c.defs[id]
		ret[d.Category] = append(ret[d.Category], *d)
	}
	return ret
}
