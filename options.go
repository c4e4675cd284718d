package datakit

import "log/slog"

// RepositoryOption configures a Repository at construction time.
type RepositoryOption func(*Repository)

// WithConfig supplies an explicit config instead of the built-in defaults.
func WithConfig(cfg *Config) RepositoryOption {
	return func(r *Repository) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithRegistry supplies a pre-built adapter registry, bypassing the global
// factory registrations. Useful for tests.
func WithRegistry(registry *Registry) RepositoryOption {
	return func(r *Repository) {
		r.registry = registry
	}
}

// WithLogger sets the structured logger used for node lifecycle and adapter
// failures. Default is slog.Default().
func WithLogger(log *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

type attachOptions struct {
	adapterName string
	displayName string
}

// AttachOption configures a single Attach call.
type AttachOption func(*attachOptions)

// WithAdapter forces the named adapter for this attach, bypassing pattern
// matching and content probing.
func WithAdapter(name string) AttachOption {
	return func(o *attachOptions) {
		o.adapterName = name
	}
}

// WithDisplayName overrides the root node's display name, which defaults to
// the file's base name.
func WithDisplayName(name string) AttachOption {
	return func(o *attachOptions) {
		o.displayName = name
	}
}
