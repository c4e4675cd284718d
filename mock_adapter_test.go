package datakit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/gobeaver/datakit/slab"
)

// mockAdapter serves a nested map[string]any tree and records calls, with
// per-operation failure injection. It stands in for a real format adapter in
// repository and node tests.
type mockAdapter struct {
	name  string
	globs string
	data  map[string]any
	probe bool

	probedPrefix []byte // last prefix handed to Probe

	openErr error
	listErr error // injected into ListChildren for non-root identities
	matErr  error

	opens  int
	closes int
}

type mockHandle struct {
	adapter *mockAdapter
	closed  bool
}

func newMockAdapter(name string, data map[string]any) *mockAdapter {
	return &mockAdapter{name: name, data: data}
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Probe(prefix []byte) bool {
	m.probedPrefix = prefix
	return m.probe
}

func (m *mockAdapter) OpenRoot(path string) (RootHandle, []ChildDescriptor, error) {
	m.opens++
	if m.openErr != nil {
		return nil, nil, m.openErr
	}
	return &mockHandle{adapter: m}, m.describe(m.data), nil
}

func (m *mockAdapter) ListChildren(h RootHandle, identity []string) ([]ChildDescriptor, error) {
	if len(identity) > 0 && m.listErr != nil {
		return nil, m.listErr
	}
	v, ok := m.resolve(identity)
	if !ok {
		return nil, fmt.Errorf("no node %v", identity)
	}
	if sub, ok := v.(map[string]any); ok {
		return m.describe(sub), nil
	}
	return nil, nil
}

func (m *mockAdapter) Materialize(h RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	if m.matErr != nil {
		return slab.Slab{}, m.matErr
	}
	v, ok := m.resolve(identity)
	if !ok {
		return slab.Slab{}, fmt.Errorf("no node %v", identity)
	}
	full, err := slab.FromNested(v)
	if err != nil {
		return slab.Slab{}, err
	}
	return slab.Gather(full, fixed, axes)
}

func (m *mockAdapter) CloseRoot(h RootHandle) error {
	m.closes++
	mh, ok := h.(*mockHandle)
	if !ok {
		return errors.New("bad handle")
	}
	if mh.closed {
		return errors.New("double close")
	}
	mh.closed = true
	return nil
}

func (m *mockAdapter) resolve(identity []string) (any, bool) {
	var v any = m.data
	for _, name := range identity {
		sub, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = sub[name]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func (m *mockAdapter) describe(tree map[string]any) []ChildDescriptor {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	kids := make([]ChildDescriptor, 0, len(names))
	for _, name := range names {
		v := tree[name]
		if sub, ok := v.(map[string]any); ok {
			kids = append(kids, ChildDescriptor{Name: name, Kind: KindGroup, ChildCount: len(sub)})
			continue
		}
		shape, dtype, err := slab.ShapeOf(v)
		if err != nil {
			kids = append(kids, ChildDescriptor{Name: name, Kind: KindUnsupported})
			continue
		}
		kind := KindArray
		if len(shape) == 0 {
			kind = KindScalar
		}
		kids = append(kids, ChildDescriptor{Name: name, Kind: kind, Shape: shape, DType: dtype})
	}
	return kids
}

func (m *mockAdapter) adapterGlobs() string { return m.globs }

var _ Adapter = (*mockAdapter)(nil)

// mockMemoryAdapter additionally supports direct in-memory attachment.
type mockMemoryAdapter struct {
	*mockAdapter
}

func (m *mockMemoryAdapter) AttachRoot(data map[string]any) (RootHandle, []ChildDescriptor, error) {
	m.data = data
	return &mockHandle{adapter: m.mockAdapter}, m.describe(data), nil
}

var _ MemoryAttacher = (*mockMemoryAdapter)(nil)

// newTestRegistry builds a registry straight from adapters, bypassing the
// global factory list so tests stay independent of imported adapter packages.
func newTestRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		byName:        make(map[string]Adapter, len(adapters)),
		maxProbeBytes: DefaultConfig().MaxProbeBytes,
	}
	for _, a := range adapters {
		entry := &registryEntry{adapter: a}
		if g, ok := a.(interface{ adapterGlobs() string }); ok {
			for _, pattern := range strings.Split(g.adapterGlobs(), ":") {
				if pattern == "" {
					continue
				}
				entry.globs = append(entry.globs, glob.MustCompile(strings.ToLower(pattern)))
			}
		}
		r.entries = append([]*registryEntry{entry}, r.entries...)
		r.byName[a.Name()] = a
	}
	return r
}
