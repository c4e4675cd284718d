package datakit

import (
	"fmt"
	"log/slog"

	"github.com/gobeaver/datakit/slab"
)

// Node is one entry in the unified repository forest. It abstracts a group,
// array or scalar inside a scientific data container behind a single lazy
// contract: children and native resources are only acquired on Open, and a
// failure is contained in the node itself rather than propagated through the
// tree.
//
// Nodes are created by the Repository (Attach) or by opening their parent;
// they are never constructed directly. All lifecycle methods serialize
// through the owning Repository, so a Node is safe to share between views.
type Node struct {
	repo    *Repository
	parent  *Node
	adapter Adapter

	name       string
	kind       NodeKind
	shape      []int
	dtype      string
	unit       string
	dimNames   []string
	attrs      map[string]string
	childHint  int
	isRoot     bool
	filePath   string // backing file; empty for memory-attached roots
	reopenable bool

	// mutable state, guarded by repo.mu
	handle      RootHandle // non-nil only on open roots
	open        bool
	err         error
	children    []*Node
	token       *CallbackChangeToken // roots only
	fingerprint uint64               // of the backing file, captured at open
}

// ============================================================================
// Read API (metadata, no expansion forced)
// ============================================================================

// Name returns the display name of the node.
func (n *Node) Name() string { return n.name }

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.kind }

// IsRoot reports whether this node owns the native resource of its subtree.
func (n *Node) IsRoot() bool { return n.isRoot }

// FilePath returns the backing file path of the node's root, or the empty
// string for memory-attached roots.
func (n *Node) FilePath() string { return n.filePath }

// DType returns the Go name of the element type for array and scalar nodes.
func (n *Node) DType() string { return n.dtype }

// Unit returns the physical unit string, or "" if the format records none.
func (n *Node) Unit() string { return n.unit }

// Shape returns the ordered dimension lengths. It is nil for groups and
// empty (but non-nil) for scalars.
func (n *Node) Shape() []int {
	if n.shape == nil {
		return nil
	}
	return append([]int(nil), n.shape...)
}

// DimensionNames returns one name per dimension; entries may be empty,
// meaning the dimension is unnamed. The result always has the same length
// as Shape.
func (n *Node) DimensionNames() []string {
	names := make([]string, len(n.shape))
	copy(names, n.dimNames)
	return names
}

// Attributes returns a copy of the free-form attribute mapping.
func (n *Node) Attributes() map[string]string {
	attrs := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		attrs[k] = v
	}
	return attrs
}

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// Identity returns the stable path of child names from the root node to this
// node, excluding the root itself. It is the key adapters navigate by.
func (n *Node) Identity() []string {
	if n.isRoot {
		return nil
	}
	return append(n.parent.Identity(), n.name)
}

// PathString returns the display path of the node, e.g. "/data.h5/group/var".
func (n *Node) PathString() string {
	if n.isRoot {
		return "/" + n.name
	}
	return n.parent.PathString() + "/" + n.name
}

// IsOpen reports whether the node's resources are currently open.
func (n *Node) IsOpen() bool {
	n.repo.mu.RLock()
	defer n.repo.mu.RUnlock()
	return n.open
}

// Err returns the recorded error if the node is in error state, or nil.
func (n *Node) Err() error {
	n.repo.mu.RLock()
	defer n.repo.mu.RUnlock()
	return n.err
}

// Children returns the current child nodes. It never forces expansion: a
// closed node reports no children.
func (n *Node) Children() []*Node {
	n.repo.mu.RLock()
	defer n.repo.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

// ChildCount returns the number of children without forcing expansion. For
// closed nodes it returns the adapter's descriptor hint, which is -1 when
// the count is unknown until the node is opened.
func (n *Node) ChildCount() int {
	n.repo.mu.RLock()
	defer n.repo.mu.RUnlock()
	if n.open {
		return len(n.children)
	}
	return n.childHint
}

// IsSliceable reports whether ReadSlice is meaningful for this node.
func (n *Node) IsSliceable() bool {
	return n.kind == KindArray || n.kind == KindScalar
}

// ============================================================================
// Lifecycle
// ============================================================================

// Open acquires the node's native resource and, for group kinds, enumerates
// the immediate children. Opening an already-open node is a no-op returning
// the same children. On failure the node transitions to error state with
// zero children and no leaked handle; the returned error wraps
// ErrAdapterOpen and the tree stays navigable.
//
// A node already in error state is not reopened here; Reload clears the
// error first.
func (n *Node) Open() error {
	n.repo.mu.Lock()
	err := n.openLocked()
	n.repo.mu.Unlock()
	n.repo.flush()
	return err
}

// Close releases children depth-first and then the node's own resource if it
// is a root. Closing an already-closed node or a node in error state is a
// safe no-op.
func (n *Node) Close() error {
	n.repo.mu.Lock()
	n.closeLocked()
	n.repo.mu.Unlock()
	n.repo.flush()
	return nil
}

// Reload closes the node and opens it again on the same identity, clearing
// any recorded error first. A live Collector selection backed by this node
// is not preserved; the caller re-issues the selection afterwards.
//
// Reloading a memory-attached root fails with ErrAdapterOpen: there is no
// path to reopen from.
func (n *Node) Reload() error {
	n.repo.mu.Lock()
	n.closeLocked()
	n.err = nil
	err := n.openLocked()
	if err == nil {
		n.repo.enqueue(Event{Kind: EventReloaded, Node: n})
	}
	n.repo.mu.Unlock()
	n.repo.flush()
	return err
}

func (n *Node) openLocked() error {
	if n.err != nil {
		return &NodeError{Op: "open", Path: n.PathString(), Err: ErrNodeInError}
	}
	if n.open {
		return nil
	}

	if n.isRoot {
		return n.openRootLocked()
	}

	root := n.root()
	if root.handle == nil {
		return &NodeError{Op: "open", Path: n.PathString(), Err: ErrNotReadable}
	}

	if n.kind == KindGroup {
		kids, err := n.adapter.ListChildren(root.handle, n.Identity())
		if err != nil {
			return n.failLocked("open", fmt.Errorf("%w: %v", ErrAdapterOpen, err))
		}
		n.children = n.buildChildren(kids)
	}
	n.open = true
	n.repo.enqueue(Event{Kind: EventOpened, Node: n})
	return nil
}

func (n *Node) openRootLocked() error {
	if !n.reopenable {
		return n.failLocked("open", fmt.Errorf("%w: %s has no reopen path", ErrAdapterOpen, n.name))
	}

	handle, kids, err := n.adapter.OpenRoot(n.filePath)
	if err != nil {
		return n.failLocked("open", fmt.Errorf("%w: %v", ErrAdapterOpen, err))
	}
	n.handle = handle
	n.children = n.buildChildren(kids)
	n.open = true

	if n.filePath != "" {
		if fp, err := fingerprintFile(n.filePath); err == nil {
			n.fingerprint = fp
		} else {
			n.repo.log.Warn("fingerprint failed", slog.String("path", n.filePath), slog.Any("error", err))
		}
	}

	n.repo.enqueue(Event{Kind: EventOpened, Node: n})
	return nil
}

// failLocked records the error state, discards any partial children and
// releases a handle acquired during the same call.
func (n *Node) failLocked(op string, err error) error {
	n.children = nil
	n.open = false
	if n.isRoot && n.handle != nil {
		if cerr := n.adapter.CloseRoot(n.handle); cerr != nil {
			n.repo.log.Warn("close after failed open", slog.String("node", n.PathString()), slog.Any("error", cerr))
		}
		n.handle = nil
	}
	n.err = err
	n.repo.log.Error("node error", slog.String("node", n.PathString()), slog.Any("error", err))
	n.repo.enqueue(Event{Kind: EventNodeError, Node: n, Err: err})
	return &NodeError{Op: op, Path: n.PathString(), Err: err}
}

func (n *Node) closeLocked() {
	for _, child := range n.children {
		child.closeLocked()
	}
	n.children = nil

	if n.isRoot && n.handle != nil {
		if err := n.adapter.CloseRoot(n.handle); err != nil {
			n.repo.log.Warn("close root", slog.String("node", n.PathString()), slog.Any("error", err))
		}
		n.handle = nil
	}
	if n.open {
		n.open = false
		n.repo.enqueue(Event{Kind: EventClosed, Node: n})
	}
}

func (n *Node) root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (n *Node) buildChildren(kids []ChildDescriptor) []*Node {
	children := make([]*Node, 0, len(kids))
	for _, kid := range kids {
		dims := make([]string, len(kid.Shape))
		copy(dims, kid.DimNames)
		hint := kid.ChildCount
		if kid.Kind != KindGroup {
			hint = 0
		}
		children = append(children, &Node{
			repo:      n.repo,
			parent:    n,
			adapter:   n.adapter,
			name:      kid.Name,
			kind:      kid.Kind,
			shape:     append([]int(nil), kid.Shape...),
			dtype:     kid.DType,
			unit:      kid.Unit,
			dimNames:  dims,
			attrs:     kid.Attrs,
			childHint: hint,
			filePath:  n.filePath,
		})
	}
	return children
}

// ============================================================================
// Data access
// ============================================================================

// ReadSlice materializes a rectangular slice of an open Array or Scalar
// node. Every source dimension must appear either in axes (kept whole) or as
// a key in fixed (collapsed to one index); the result is shaped and ordered
// per axes.
//
// It fails with ErrNodeInError on error-state nodes, ErrNotReadable on
// closed or non-sliceable nodes, ErrIndexOutOfRange for a fixed index
// outside its dimension and ErrInvalidSliceRequest for any other
// inconsistency with the shape.
func (n *Node) ReadSlice(fixed map[int]int, axes []int) (slab.Slab, error) {
	n.repo.mu.Lock()
	defer n.repo.mu.Unlock()

	path := n.PathString()
	if n.err != nil {
		return slab.Slab{}, &NodeError{Op: "read", Path: path, Err: ErrNodeInError}
	}
	if !n.IsSliceable() {
		return slab.Slab{}, &NodeError{Op: "read", Path: path, Err: ErrNotReadable}
	}
	root := n.root()
	if !n.open || root.handle == nil {
		return slab.Slab{}, &NodeError{Op: "read", Path: path, Err: ErrNotReadable}
	}

	if err := n.validateSlice(fixed, axes); err != nil {
		return slab.Slab{}, &NodeError{Op: "read", Path: path, Err: err}
	}

	out, err := n.adapter.Materialize(root.handle, n.Identity(), copyFixed(fixed), append([]int(nil), axes...))
	if err != nil {
		return slab.Slab{}, &NodeError{Op: "read", Path: path, Err: err}
	}
	return out, nil
}

func (n *Node) validateSlice(fixed map[int]int, axes []int) error {
	rank := len(n.shape)
	if len(axes)+len(fixed) != rank {
		return fmt.Errorf("%w: %d axes + %d fixed indices for rank %d",
			ErrInvalidSliceRequest, len(axes), len(fixed), rank)
	}
	seen := make([]bool, rank)
	for _, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			return fmt.Errorf("%w: axis %d", ErrInvalidSliceRequest, a)
		}
		seen[a] = true
	}
	for dim, idx := range fixed {
		if dim < 0 || dim >= rank || seen[dim] {
			return fmt.Errorf("%w: fixed dimension %d", ErrInvalidSliceRequest, dim)
		}
		seen[dim] = true
		if idx < 0 || idx >= n.shape[dim] {
			return fmt.Errorf("%w: index %d for dimension %d of length %d",
				ErrIndexOutOfRange, idx, dim, n.shape[dim])
		}
	}
	return nil
}

func copyFixed(fixed map[int]int) map[int]int {
	out := make(map[int]int, len(fixed))
	for k, v := range fixed {
		out[k] = v
	}
	return out
}
