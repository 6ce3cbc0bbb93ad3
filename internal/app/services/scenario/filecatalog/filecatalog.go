// Package filecatalog is a demo Catalog implementation that loads
// Scenario definitions from YAML files on disk, exercising the host's
// gopkg.in/yaml.v3 declarative-definition-loading idiom. This is a
// concrete, swappable collaborator; the engine's Catalog interface itself
// is format-agnostic.
package filecatalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

// Catalog loads and caches Scenario definitions from a directory of YAML
// files, one scenario per file, named <id>.yaml.
type Catalog struct {
	mu        sync.RWMutex
	dir       string
	scenarios map[string]domain.Scenario
}

// New builds a Catalog rooted at dir. Scenarios are loaded lazily on
// first access and cached; call Reload to pick up on-disk changes.
func New(dir string) *Catalog {
	return &Catalog{dir: dir, scenarios: make(map[string]domain.Scenario)}
}

// GetScenario implements scenario.Catalog. Safe for concurrent use.
func (c *Catalog) GetScenario(id string) (domain.Scenario, bool) {
	c.mu.RLock()
	sc, ok := c.scenarios[id]
	c.mu.RUnlock()
	if ok {
		return sc, true
	}

	loaded, err := c.loadOne(id)
	if err != nil {
		return domain.Scenario{}, false
	}

	c.mu.Lock()
	c.scenarios[id] = loaded
	c.mu.Unlock()
	return loaded, true
}

// Reload clears the cache, forcing the next GetScenario to re-read disk.
func (c *Catalog) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenarios = make(map[string]domain.Scenario)
}

func (c *Catalog) loadOne(id string) (domain.Scenario, error) {
	path := filepath.Join(c.dir, id+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("read scenario %s: %w", id, err)
	}
	var sc domain.Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("parse scenario %s: %w", id, err)
	}
	if sc.ID == "" {
		sc.ID = id
	}
	return sc, nil
}
