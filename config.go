package datakit

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Adapter to force for every attach, bypassing pattern matching and
	// content probing. Empty means resolve per path.
	ForceAdapter string `env:"DATAKIT_FORCE_ADAPTER"`

	// File watching (change tokens for attached roots)
	WatchEnabled bool `env:"DATAKIT_WATCH,default:true"`

	// Raw binary adapter configuration
	RawDType string `env:"DATAKIT_RAW_DTYPE,default:uint8"`

	// Table adapter configuration. An empty delimiter means comma.
	TableDelimiter string `env:"DATAKIT_TABLE_DELIMITER"`
	TableHeader    bool   `env:"DATAKIT_TABLE_HEADER,default:true"`

	// Maximum number of bytes a content probe may read
	MaxProbeBytes int `env:"DATAKIT_MAX_PROBE_BYTES,default:512"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if cfg.TableDelimiter == "" {
		cfg.TableDelimiter = ","
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without touching the
// environment. Used when a Repository is constructed without explicit config.
func DefaultConfig() *Config {
	return &Config{
		WatchEnabled:   true,
		RawDType:       "uint8",
		TableDelimiter: ",",
		TableHeader:    true,
		MaxProbeBytes:  512,
	}
}
