package hdf5

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("hdf5", "*.h5:*.hdf5:*.he5", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(), nil
	})
}
