// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds the size of a decoded document (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	parseOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures ParseAndDecode.
	Option func(*parseOptions)
)

func defaultOptions() parseOptions {
	return parseOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize sets the maximum document size in bytes.
func WithMaxFileSize(size int64) Option {
	return func(o *parseOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete sets whether every value must be concrete after unification.
// The default is true. Configuration files where every field is optional
// decode with false.
func WithConcrete(concrete bool) Option {
	return func(o *parseOptions) {
		o.concrete = concrete
	}
}

// WithFilename sets the file name reported in errors.
func WithFilename(name string) Option {
	return func(o *parseOptions) {
		o.filename = name
	}
}
