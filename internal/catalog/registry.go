// internal/catalog/registry.go
//
// Multi-game catalog registry.
//
// Responsibilities:
//   - Load every game's dataset exactly once at startup (sync.Once).
//   - Prefer external JSON files from a configured directory; fall back to
//     the embedded default datasets.
//   - Serve catalogs by game namespace to the HTTP layer.
//
// Initialization behavior (Init):
//   1. If catalogDir is non-empty, load every *.json file in it.
//   2. Otherwise load the embedded datasets from the assets package.
//   3. Fail if no catalog loads, or if any catalog's secret pool is empty —
//      a game with no eligible secrets cannot start.

package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/guessdle/go-server/assets"
)

// Registry holds one immutable Catalog per game namespace.
type Registry struct {
	initOnce sync.Once
	dir      string
	catalogs map[string]*Catalog
	names    []string
	initErr  error
}

// NewRegistry creates an uninitialized registry. If dir is non-empty it is
// scanned for *.json datasets instead of the embedded defaults.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Init loads all datasets exactly once.
func (r *Registry) Init() error {
	r.initOnce.Do(func() {
		r.catalogs = make(map[string]*Catalog)

		var files [][]byte
		var err error
		if r.dir != "" {
			files, err = readCatalogDir(r.dir)
		} else {
			files, err = assets.Datasets()
		}
		if err != nil {
			r.initErr = err
			return
		}

		for _, data := range files {
			c, err := Load(data)
			if err != nil {
				r.initErr = err
				return
			}
			if _, dup := r.catalogs[c.Game]; dup {
				r.initErr = fmt.Errorf("catalog: duplicate game namespace %q", c.Game)
				return
			}
			// Secret-pool emptiness is fatal at startup, not at first pick.
			if _, err := c.SecretPool(); err != nil {
				r.initErr = fmt.Errorf("catalog %s: %w", c.Game, err)
				return
			}
			r.catalogs[c.Game] = c
			r.names = append(r.names, c.Game)
		}
		if len(r.catalogs) == 0 {
			r.initErr = errors.New("catalog: no datasets loaded")
		}
		sort.Strings(r.names)
	})
	return r.initErr
}

// Get returns the catalog for a game namespace.
func (r *Registry) Get(game string) (*Catalog, bool) {
	c, ok := r.catalogs[game]
	return c, ok
}

// Games returns the loaded game namespaces in sorted order.
func (r *Registry) Games() []string {
	return r.names
}

// readCatalogDir loads every *.json file in dir, in lexical order.
func readCatalogDir(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}
	var out [][]byte
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(strings.ToLower(ent.Name()), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", ent.Name(), err)
		}
		out = append(out, data)
	}
	return out, nil
}
