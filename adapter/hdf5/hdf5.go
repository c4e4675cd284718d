// Package hdf5 adapts HDF5 containers to the repository node contract.
// Groups map to groups, datasets to arrays or scalars; datasets with types
// the backing library cannot decode appear as unsupported nodes instead of
// breaking the tree.
package hdf5

import (
	"bytes"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/adapter/internal/ncbridge"
	"github.com/gobeaver/datakit/slab"
)

// Signature at the head of every HDF5 file.
const magic = "\211HDF\r\n\032\n"

// Adapter reads HDF5 files.
type Adapter struct{}

// New creates an HDF5 adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "hdf5" }

// Probe implements datakit.Adapter
func (a *Adapter) Probe(prefix []byte) bool {
	return bytes.HasPrefix(prefix, []byte(magic))
}

// OpenRoot implements datakit.Adapter
func (a *Adapter) OpenRoot(path string) (datakit.RootHandle, []datakit.ChildDescriptor, error) {
	return ncbridge.Open(path)
}

// ListChildren implements datakit.Adapter
func (a *Adapter) ListChildren(h datakit.RootHandle, identity []string) ([]datakit.ChildDescriptor, error) {
	return ncbridge.ListChildren(h, identity)
}

// Materialize implements datakit.Adapter
func (a *Adapter) Materialize(h datakit.RootHandle, identity []string, fixed map[int]int, axes []int) (slab.Slab, error) {
	return ncbridge.Materialize(h, identity, fixed, axes)
}

// CloseRoot implements datakit.Adapter
func (a *Adapter) CloseRoot(h datakit.RootHandle) error {
	return ncbridge.Close(h)
}

var _ datakit.Adapter = (*Adapter)(nil)
