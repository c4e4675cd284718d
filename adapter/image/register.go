package image

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("image", "*.png:*.jpg:*.jpeg:*.gif", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(), nil
	})
}
