// Package memory adapts an in-memory tree of Go values (nested
// map[string]any with slice and scalar leaves) to the repository node
// contract. It backs Repository.AttachMemory and is the adapter of choice
// for tests and for programmatically generated data.
//
// Memory roots have no backing path: Probe always declines and OpenRoot
// always fails, so the adapter is reachable only through AttachMemory or an
// explicit name override.
package memory

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// Adapter wraps map[string]any trees.
type Adapter struct{}

// New creates a new in-memory adapter.
func New() *Adapter {
	return &Adapter{}
}

// store is the root handle: the attached tree, immutable after attach.
type store struct {
	root map[string]any
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "memory" }

// Probe implements datakit.Adapter. Memory trees never live on disk.
func (a *Adapter) Probe([]byte) bool { return false }

// OpenRoot implements datakit.Adapter. A memory root carries no path to
// reopen from, so opening (and therefore reloading after a close) fails.
func (a *Adapter) OpenRoot(path string) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	return nil, nil, fmt.Errorf("%w: memory tree has no backing path", datakit.ErrAdapterOpen)
}

// AttachRoot implements datakit.MemoryAttacher.
func (a *Adapter) AttachRoot(data map[string]any) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	if data == nil {
		data = map[string]any{}
	}
	h := &store{root: data}
	kids, err := describeMap(data)
	if err != nil {
		return nil, nil, err
	}
	return h, kids, nil
}

// ListChildren implements datakit.Adapter
func (a *Adapter) ListChildren(h datakit.RootHandle, identity []string) ([]datakit.ChildDescriptor, error) {
	st, ok := h.(*store)
	if !ok {
		return nil, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, h)
	}
	v, err := resolve(st.root, identity)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		return describeMap(m)
	}
	// Leaves have no children.
	return nil, nil
}

// Materialize implements datakit.Adapter
func (a *Adapter) Materialize(h datakit.RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	st, ok := h.(*store)
	if !ok {
		return slab.Slab{}, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, h)
	}
	v, err := resolve(st.root, identity)
	if err != nil {
		return slab.Slab{}, err
	}
	if _, ok := v.(map[string]any); ok {
		return slab.Slab{}, fmt.Errorf("%w: %v is a group", datakit.ErrNotReadable, identity)
	}
	full, err := slab.FromNested(v)
	if err != nil {
		return slab.Slab{}, err
	}
	return slab.Gather(full, fixed, axes)
}

// CloseRoot implements datakit.Adapter. Nothing to release; the tree stays
// owned by the caller that attached it.
func (a *Adapter) CloseRoot(datakit.RootHandle) error { return nil }

// resolve walks the tree by child names.
func resolve(root map[string]any, identity []string) (any, error) {
	var v any = root
	for _, name := range identity {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a group", datakit.ErrNotReadable, name)
		}
		v, ok = m[name]
		if !ok {
			return nil, fmt.Errorf("%w: no entry %q", datakit.ErrNotReadable, name)
		}
	}
	return v, nil
}

// describeMap builds descriptors for the entries of one group level, in
// sorted name order so that tree expansion is deterministic.
func describeMap(m map[string]any) ([]datakit.ChildDescriptor, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	kids := make([]datakit.ChildDescriptor, 0, len(names))
	for _, name := range names {
		kids = append(kids, describe(name, m[name]))
	}
	return kids, nil
}

func describe(name string, v any) datakit.ChildDescriptor {
	if m, ok := v.(map[string]any); ok {
		return datakit.ChildDescriptor{
			Name:       name,
			Kind:       datakit.KindGroup,
			ChildCount: len(m),
		}
	}

	shape, dtype, err := slab.ShapeOf(v)
	if err != nil {
		return datakit.ChildDescriptor{Name: name, Kind: datakit.KindUnsupported, ChildCount: 0}
	}
	kind := datakit.KindArray
	if len(shape) == 0 {
		kind = datakit.KindScalar
		if !scalarKind(reflect.ValueOf(v).Kind()) {
			kind = datakit.KindUnsupported
		}
	}
	return datakit.ChildDescriptor{
		Name:  name,
		Kind:  kind,
		Shape: shape,
		DType: dtype,
	}
}

func scalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

var (
	_ datakit.Adapter        = (*Adapter)(nil)
	_ datakit.MemoryAttacher = (*Adapter)(nil)
)
