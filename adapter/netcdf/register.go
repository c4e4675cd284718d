package netcdf

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("netcdf", "*.nc:*.nc4:*.cdf", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(), nil
	})
}
