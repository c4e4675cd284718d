// Package ncbridge implements the shared plumbing behind the hdf5 and
// netcdf adapters. Both formats are served by the same backing library,
// which hides the difference behind api.Group; the two adapter packages
// only differ in registry name, globs, and magic bytes.
package ncbridge

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/slab"
)

// Attribute keys consulted for a variable's physical unit, in order.
var unitKeys = []string{"units", "unit", "Units", "Unit"}

// Handle is the root handle shared by the hdf5 and netcdf adapters. Groups
// fetched with GetGroup borrow the root's underlying reader, so only the
// root is closed; the cache just avoids repeated lookups.
type Handle struct {
	root   api.Group
	groups map[string]api.Group
}

// Open opens the container at path and describes its top level.
func Open(path string) (*Handle, []datakit.ChildDescriptor, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", datakit.ErrAdapterOpen, err)
	}
	kids, err := describeGroup(g)
	if err != nil {
		g.Close()
		return nil, nil, err
	}
	return &Handle{root: g, groups: map[string]api.Group{}}, kids, nil
}

// Close releases the container.
func Close(rh datakit.RootHandle) error {
	h, ok := rh.(*Handle)
	if !ok {
		return fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	h.root.Close()
	h.groups = nil
	return nil
}

// ListChildren enumerates the immediate children of the node at identity.
// Arrays and scalars report no children.
func ListChildren(rh datakit.RootHandle, identity []string) ([]datakit.ChildDescriptor, error) {
	h, ok := rh.(*Handle)
	if !ok {
		return nil, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	g, rest, err := h.groupAt(identity)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		// The remainder names a variable, which is a leaf.
		return nil, nil
	}
	return describeGroup(g)
}

// Materialize reads the bounded slice of the variable at identity. When the
// outermost dimension is fixed, only that hyperslab is fetched from the
// file; otherwise the variable is read whole and gathered in memory.
func Materialize(rh datakit.RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	h, ok := rh.(*Handle)
	if !ok {
		return slab.Slab{}, fmt.Errorf("%w: bad handle %T", datakit.ErrAdapterOpen, rh)
	}
	if len(identity) == 0 {
		return slab.Slab{}, fmt.Errorf("%w: root group", datakit.ErrNotReadable)
	}

	g, rest, err := h.groupAt(identity[:len(identity)-1])
	if err != nil {
		return slab.Slab{}, err
	}
	if len(rest) > 0 {
		return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, identity)
	}
	name := identity[len(identity)-1]
	vg, err := g.GetVarGetter(name)
	if err != nil {
		return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, err)
	}

	if idx, ok := fixed[0]; ok && len(vg.Dimensions()) > 0 {
		if idx < 0 || int64(idx) >= vg.Len() {
			return slab.Slab{}, fmt.Errorf("%w: index %d for dimension 0 of length %d",
				slab.ErrOutOfRange, idx, vg.Len())
		}
		raw, err := vg.GetSlice(int64(idx), int64(idx)+1)
		if err != nil {
			return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, err)
		}
		full, err := slab.FromNested(raw)
		if err != nil {
			return slab.Slab{}, err
		}
		// The hyperslab already applied the outer index.
		shifted := map[int]int{0: 0}
		for dim, i := range fixed {
			if dim != 0 {
				shifted[dim] = i
			}
		}
		return slab.Gather(full, shifted, axes)
	}

	raw, err := vg.Values()
	if err != nil {
		return slab.Slab{}, fmt.Errorf("%w: %v", datakit.ErrNotReadable, err)
	}
	full, err := slab.FromNested(raw)
	if err != nil {
		return slab.Slab{}, err
	}
	return slab.Gather(full, fixed, axes)
}

// groupAt walks identity through nested groups as far as group names reach.
// It returns the deepest group and the unconsumed remainder (a variable
// name, or nothing).
func (h *Handle) groupAt(identity []string) (api.Group, []string, error) {
	g := h.root
	for i, name := range identity {
		key := strings.Join(identity[:i+1], "/")
		if cached, ok := h.groups[key]; ok {
			g = cached
			continue
		}
		if !contains(g.ListSubgroups(), name) {
			return g, identity[i:], nil
		}
		sub, err := g.GetGroup(name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: group %q: %v", datakit.ErrNotReadable, name, err)
		}
		h.groups[key] = sub
		g = sub
	}
	return g, nil, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// describeGroup builds descriptors for the subgroups and variables of g.
// Variables the library cannot decode are reported as unsupported rather
// than omitted, so the tree still shows them.
func describeGroup(g api.Group) ([]datakit.ChildDescriptor, error) {
	var kids []datakit.ChildDescriptor
	for _, name := range g.ListSubgroups() {
		kids = append(kids, datakit.ChildDescriptor{
			Name:       name,
			Kind:       datakit.KindGroup,
			ChildCount: -1,
		})
	}
	for _, name := range g.ListVariables() {
		kids = append(kids, describeVariable(g, name))
	}
	return kids, nil
}

func describeVariable(g api.Group, name string) datakit.ChildDescriptor {
	vg, err := g.GetVarGetter(name)
	if err != nil {
		return datakit.ChildDescriptor{Name: name, Kind: datakit.KindUnsupported}
	}

	dims := vg.Dimensions()
	shape, err := varShape(vg)
	if err != nil {
		return datakit.ChildDescriptor{Name: name, Kind: datakit.KindUnsupported, DType: vg.GoType()}
	}

	kind := datakit.KindArray
	if len(shape) == 0 {
		kind = datakit.KindScalar
	}

	dimNames := make([]string, len(shape))
	copy(dimNames, dims)

	return datakit.ChildDescriptor{
		Name:     name,
		Kind:     kind,
		Shape:    shape,
		DType:    vg.GoType(),
		Unit:     unitOf(vg.Attributes()),
		DimNames: dimNames,
		Attrs:    attrMap(vg.Attributes()),
	}
}

// varShape derives the full shape of a variable. The library exposes only
// the outermost length directly, so the inner dimensions come from the
// nested structure of a single-element hyperslab.
func varShape(vg api.VarGetter) ([]int, error) {
	ndims := len(vg.Dimensions())
	if ndims == 0 {
		return []int{}, nil
	}

	outer := int(vg.Len())
	shape := make([]int, 1, ndims)
	shape[0] = outer
	if ndims == 1 {
		return shape, nil
	}
	if outer == 0 {
		// Nothing to sample; inner lengths are unknowable, report zero.
		for i := 1; i < ndims; i++ {
			shape = append(shape, 0)
		}
		return shape, nil
	}

	sample, err := vg.GetSlice(0, 1)
	if err != nil {
		return nil, err
	}
	s, err := slab.FromNested(sample)
	if err != nil {
		return nil, err
	}
	if len(s.Shape) < 1 {
		return nil, fmt.Errorf("%w: sample of %d-dimensional variable is scalar",
			slab.ErrShapeData, ndims)
	}
	return append(shape, s.Shape[1:]...), nil
}

func unitOf(attrs api.AttributeMap) string {
	if attrs == nil {
		return ""
	}
	for _, key := range unitKeys {
		if v, ok := attrs.Get(key); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func attrMap(attrs api.AttributeMap) map[string]string {
	if attrs == nil {
		return nil
	}
	keys := attrs.Keys()
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := attrs.Get(key); ok {
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
