package raw

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("raw", "*.bin:*.dat:*.raw", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(cfg.RawDType)
	})
}
