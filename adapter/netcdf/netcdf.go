// Package netcdf adapts NetCDF containers (classic CDF and NetCDF-4) to
// the repository node contract. NetCDF-4 files are HDF5 underneath; the
// backing library dispatches on the file signature, so this adapter serves
// both flavors behind the "netcdf" name.
package netcdf

import (
	"bytes"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/adapter/internal/ncbridge"
	"github.com/gobeaver/datakit/slab"
)

// Classic-format signatures: "CDF" followed by a version byte.
var magics = []string{"CDF\x01", "CDF\x02", "CDF\x05"}

// Adapter reads NetCDF files.
type Adapter struct{}

// New creates a NetCDF adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name implements datakit.Adapter
func (a *Adapter) Name() string { return "netcdf" }

// Probe implements datakit.Adapter. Only classic CDF signatures are
// claimed here; HDF5-backed NetCDF-4 files probe as HDF5 and still open
// fine through either adapter.
func (a *Adapter) Probe(prefix []byte) bool {
	for _, magic := range magics {
		if bytes.HasPrefix(prefix, []byte(magic)) {
			return true
		}
	}
	return false
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
