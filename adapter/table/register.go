package table

import "github.com/gobeaver/datakit"

func init() {
	datakit.RegisterAdapter("csv", "*.csv:*.tsv", func(cfg *datakit.Config) (datakit.Adapter, error) {
		return New(cfg.TableDelimiter, cfg.TableHeader)
	})
}
