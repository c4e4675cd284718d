package datakit

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	// ErrAdapterOpen indicates a format adapter failed to open its resource
	// (corrupt file, missing reopen path, permission denied). The failing
	// node enters error state; siblings and ancestors are unaffected.
	ErrAdapterOpen = errors.New("adapter failed to open resource")

	// ErrNoAdapterFound indicates no registered adapter matched a path.
	// Recoverable at the call site: the path is simply not attached.
	ErrNoAdapterFound = errors.New("no adapter found for path")

	// ErrNodeInError indicates an operation was attempted on a node that is
	// in error state. Reload the node or pick another one.
	ErrNodeInError = errors.New("node is in error state")

	// ErrNotReadable indicates a data read was attempted on a node that is
	// closed or does not wrap an array.
	ErrNotReadable = errors.New("node is not readable")

	// ErrInvalidSliceRequest indicates indices or axis order inconsistent
	// with the array's shape.
	ErrInvalidSliceRequest = errors.New("invalid slice request")

	// ErrIndexOutOfRange indicates a fixed index outside [0, length).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidDimension indicates a dimension index outside [0, rank).
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrNotAttached indicates the node does not belong to the repository.
	ErrNotAttached = errors.New("node not attached to repository")

	// ErrNotRoot indicates an operation that only applies to root nodes.
	ErrNotRoot = errors.New("not a root node")

	// ErrNilAdapter is returned when registering or resolving a nil adapter.
	ErrNilAdapter = errors.New("adapter cannot be nil")

	// ErrNotSupported indicates an optional capability the adapter lacks.
	ErrNotSupported = errors.New("operation not supported")
)

// NodeError records an error together with the operation and node path that
// caused it.
type NodeError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *NodeError) Unwrap() error {
	return e.Err
}

// IsNoAdapterFound reports whether an error indicates that no adapter
// matched a path
func IsNoAdapterFound(err error) bool {
	return errors.Is(err, ErrNoAdapterFound)
}

// IsNodeInError reports whether an error indicates a node in error state
func IsNodeInError(err error) bool {
	return errors.Is(err, ErrNodeInError)
}

// IsNotReadable reports whether an error indicates a read on a closed or
// non-array node
func IsNotReadable(err error) bool {
	return errors.Is(err, ErrNotReadable)
}
