package memory

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("memory", "", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(), nil
	})
}
