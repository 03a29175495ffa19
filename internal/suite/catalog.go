package suite

import "github.com/llm-bench/engine/pkg/models"

// Catalog is an immutable, name-indexed view over the suites loaded at
// startup. Suites are read-only once loaded; Catalog never mutates one.
type Catalog struct {
	byName map[string]models.Suite
	all    []models.Suite
}

// NewCatalog indexes suites by name. A later suite with a duplicate name
// wins, matching last-file-loaded-wins semantics of a directory scan.
func NewCatalog(suites []models.Suite) *Catalog {
	byName := make(map[string]models.Suite, len(suites))
	for _, s := range suites {
		byName[s.Name] = s
	}
	return &Catalog{byName: byName, all: suites}
}

// GetSuite looks up a suite by name.
func (c *Catalog) GetSuite(name string) (models.Suite, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// List returns every loaded suite in load order.
func (c *Catalog) List() []models.Suite {
	return c.all
}
