package datakit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// AdapterFactory is a function that creates an Adapter from a config
type AdapterFactory func(cfg *Config) (Adapter, error)

type factoryEntry struct {
	name    string
	globs   string
	factory AdapterFactory
}

var (
	adapterFactories []factoryEntry
	factoryMutex     sync.RWMutex
)

// RegisterAdapter registers an adapter factory under a name, together with a
// colon-separated list of case-insensitive filename glob patterns
// ("*.h5:*.hdf5"). An empty pattern list registers an adapter that is only
// reachable by explicit name or content probe.
//
// Registration order matters: later registrations are consulted first during
// Resolve, so the most specific adapter should register last.
func RegisterAdapter(name, globs string, factory AdapterFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	adapterFactories = append(adapterFactories, factoryEntry{name: name, globs: globs, factory: factory})
}

// registryEntry is one instantiated adapter plus its compiled glob patterns.
type registryEntry struct {
	adapter Adapter
	globs   []glob.Glob
}

func (e *registryEntry) matchesName(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, g := range e.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Registry maps a path (by filename pattern, content probe, or explicit user
// override) to the format adapter responsible for opening it.
type Registry struct {
	mu            sync.RWMutex
	entries       []*registryEntry // most recently registered first
	byName        map[string]Adapter
	maxProbeBytes int
}

// NewRegistry instantiates every registered adapter factory with cfg.
// Factories that fail are skipped; a registry with zero working adapters is
// legal (every Resolve will return ErrNoAdapterFound).
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	factoryMutex.RLock()
	factories := make([]factoryEntry, len(adapterFactories))
	copy(factories, adapterFactories)
	factoryMutex.RUnlock()

	r := &Registry{
		byName:        make(map[string]Adapter, len(factories)),
		maxProbeBytes: cfg.MaxProbeBytes,
	}
	if r.maxProbeBytes <= 0 {
		r.maxProbeBytes = DefaultConfig().MaxProbeBytes
	}
	for _, fe := range factories {
		adapter, err := fe.factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("adapter %s: %w", fe.name, err)
		}
		if adapter == nil {
			return nil, fmt.Errorf("adapter %s: %w", fe.name, ErrNilAdapter)
		}
		entry := &registryEntry{adapter: adapter}
		for _, pattern := range strings.Split(fe.globs, ":") {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			g, err := glob.Compile(strings.ToLower(pattern))
			if err != nil {
				return nil, fmt.Errorf("adapter %s: pattern %q: %w", fe.name, pattern, err)
			}
			entry.globs = append(entry.globs, g)
		}
		// Prepend so that the most recent registration wins ties.
		r.entries = append([]*registryEntry{entry}, r.entries...)
		r.byName[adapter.Name()] = adapter
	}
	return r, nil
}

// Adapter returns the adapter registered under name.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// AdapterNames returns the names of all instantiated adapters, most recently
// registered first.
func (r *Registry) AdapterNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.adapter.Name())
	}
	return names
}

// Resolve selects the adapter for path. If forced is non-empty the adapter
// registered under that name is used regardless of patterns. Otherwise the
// entries are consulted most-recently-registered first: a filename glob
// match wins immediately; failing that, one content-probe pass is made in
// the same order. Returns ErrNoAdapterFound when nothing matches.
func (r *Registry) Resolve(path, forced string) (Adapter, error) {
	if forced != "" {
		adapter, ok := r.Adapter(forced)
		if !ok {
			return nil, fmt.Errorf("%w: forced adapter %q not registered", ErrNoAdapterFound, forced)
		}
		return adapter, nil
	}

	r.mu.RLock()
	entries := make([]*registryEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	for _, e := range entries {
		if e.matchesName(path) {
			return e.adapter, nil
		}
	}

	// One bounded read serves every content probe.
	prefix := readPrefix(path, r.maxProbeBytes)
	for _, e := range entries {
		if e.adapter.Probe(prefix) {
			return e.adapter, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoAdapterFound, path)
}

// readPrefix returns up to limit leading bytes of the file at path, or nil
// when the file cannot be read.
func readPrefix(path string, limit int) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}
