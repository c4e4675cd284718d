// Package datakit presents heterogeneous scientific data containers (HDF5,
// NetCDF, flat binary, images, delimited tables, in-memory dictionaries) as
// a single lazily-opened tree, and extracts rectangular slices of any
// n-dimensional array found inside for downstream visualization.
//
// The package is organized around four pieces:
//
//   - Node: one entry in the unified forest, with a lazy open/close
//     lifecycle and per-node error containment. A corrupt file poisons its
//     own node, never its siblings.
//   - Adapter: the plugin contract translating one native format into node
//     operations. Implementations live under adapter/ and register
//     themselves in init, like storage drivers tend to do.
//   - Registry: maps a path to the adapter responsible for it, by filename
//     glob, content probe, or explicit override.
//   - Repository: the process-wide forest and single owner of all tree
//     mutation, with synchronous change events for every observer.
//
// The dimension-to-axis slicing engine lives in the collect subpackage, and
// the rectangular-slice arithmetic shared by adapters in slab.
//
// Attach a file and read a slice:
//
//	repo, err := datakit.NewRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root, err := repo.Attach("/data/measurements.h5")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := root.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	for _, child := range root.Children() {
//	    fmt.Println(child.PathString(), child.Kind(), child.Shape())
//	}
//
// Import the adapter packages for their registration side effects:
//
//	import (
//	    _ "github.com/gobeaver/datakit/adapter/hdf5"
//	    _ "github.com/gobeaver/datakit/adapter/image"
//	    _ "github.com/gobeaver/datakit/adapter/memory"
//	    _ "github.com/gobeaver/datakit/adapter/netcdf"
//	    _ "github.com/gobeaver/datakit/adapter/raw"
//	    _ "github.com/gobeaver/datakit/adapter/table"
//	)
package datakit
