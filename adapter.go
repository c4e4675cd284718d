package datakit

import (
	"github.com/gobeaver/datakit/slab"
)

// NodeKind classifies what a repository node represents.
type NodeKind int

const (
	// KindGroup is a container node: it may have children but no data.
	KindGroup NodeKind = iota
	// KindArray wraps an n-dimensional array with a shape and element type.
	KindArray
	// KindScalar wraps a single value (a rank-0 array).
	KindScalar
	// KindUnsupported marks an item the adapter recognizes but cannot read,
	// for example a compound type the backing library does not decode.
	KindUnsupported
)

// String returns the lower-case kind name.
func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindArray:
		return "array"
	case KindScalar:
		return "scalar"
	default:
		return "unsupported"
	}
}

// RootHandle is an opaque reference to an adapter's opened native resource
// (file handle, library context, in-memory store). It is owned by the root
// node of the attached resource; descendants borrow it.
type RootHandle any

// ChildDescriptor carries enough metadata to populate a repository node
// without reading any bulk array data.
type ChildDescriptor struct {
	Name string
	Kind NodeKind

	// Shape is nil for groups, empty for scalars, and holds the ordered
	// dimension lengths for arrays.
	Shape []int

	// DType is the Go name of the element type ("float64", "uint8", ...).
	// Empty for groups.
	DType string

	// Unit is the physical unit string, if the format records one.
	Unit string

	// DimNames holds one entry per Shape entry; empty strings mean the
	// dimension is unnamed (consumers fall back to positional names).
	DimNames []string

	// Attrs is the free-form attribute mapping of the item.
	Attrs map[string]string

	// ChildCount is the number of immediate children if it is known without
	// expansion, or -1 when enumeration is required to find out.
	ChildCount int
}

// ============================================================================
// Adapter Contract (plugin boundary)
// ============================================================================

// Adapter translates one native container format into the repository node
// contract. Implementations register themselves via RegisterAdapter from an
// init function, the way format drivers usually do.
//
// Adapters are never called concurrently for the same handle; the Repository
// serializes all access.
type Adapter interface {
	// Name returns the stable registry name of the adapter ("hdf5", "csv").
	Name() string

	// Probe reports whether the leading file content looks like this
	// adapter's format. The registry reads at most Config.MaxProbeBytes
	// once per path and hands the same prefix to every candidate, so
	// implementations inspect the given bytes and never touch the
	// filesystem themselves. The prefix may be shorter than requested,
	// or empty when the file cannot be read. Extension matching is
	// handled by the registry globs.
	Probe(prefix []byte) bool

	// OpenRoot opens the resource at path and returns an opaque handle plus
	// descriptors for the top-level children. On error the adapter must not
	// leak any partially acquired resource.
	OpenRoot(path string) (RootHandle, []ChildDescriptor, error)

	// ListChildren enumerates the immediate children of the node identified
	// by the identity path (child names from the root, excluding the root
	// itself). It must not read bulk array data.
	ListChildren(h RootHandle, identity []string) ([]ChildDescriptor, error)

	// Materialize performs the bounded read for an Array or Scalar node.
	// Every source dimension appears either in axes or in fixed; the result
	// is shaped [len(dim) for dim in axes] with dimensions reordered to
	// match axes. A zero-length axis yields an empty result; a scalar read
	// with no axes and no fixed indices returns the single value.
	Materialize(h RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error)

	// CloseRoot releases the native resource behind the handle.
	CloseRoot(h RootHandle) error
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================

// MemoryAttacher is implemented by adapters that can wrap an in-memory
// object tree directly, without a backing path. Roots attached this way
// cannot be reopened once closed: OpenRoot fails with ErrAdapterOpen.
//
// Check with a type assertion:
//
//	if ma, ok := adapter.(MemoryAttacher); ok {
//	    h, kids, err := ma.AttachRoot(data)
//	}
type MemoryAttacher interface {
	AttachRoot(data map[string]any) (RootHandle, []ChildDescriptor, error)
}
