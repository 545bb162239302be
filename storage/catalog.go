package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// A Catalog owns the per-chain registries of one registry directory.
// Handles are constructed lazily on first access and kept for the
// process lifetime, so every user of a chain shares one lock and one
// load cache. The catalog replaces any package-level registry state;
// the application context owns exactly one.
type Catalog struct {
	dir string

	mu         sync.Mutex
	registries map[string]*Registry
}

func NewCatalog(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create registry dir %s: %w", dir, err)
	}
	return &Catalog{
		dir:        dir,
		registries: map[string]*Registry{},
	}, nil
}

// Registry returns the handle for a chain, creating it on first use.
func (c *Catalog) Registry(chainID string) *Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.registries[chainID]
	if !ok {
		r = &Registry{
			chainID: chainID,
			path:    filepath.Join(c.dir, chainID+".json"),
			lock:    &chainLock{},
		}
		c.registries[chainID] = r
	}
	return r
}

// Chains lists the chain ids with a registry file on disk, sorted.
func (c *Catalog) Chains() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, xerrors.Errorf("read registry dir %s: %w", c.dir, err)
	}
	var chains []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		chains = append(chains, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(chains)
	return chains, nil
}
