package logger

import "io"

// Rotation defaults for the optional log file.
const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

type options struct {
	output     io.Writer
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option configures Init.
type Option func(*options)

// WithOutput replaces stdout as the primary sink.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithFile mirrors log lines into a size-rotated file.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithRotation tunes the rotation of the file set by WithFile.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int, compress bool) Option {
	return func(o *options) {
		if maxSizeMB > 0 {
			o.maxSizeMB = maxSizeMB
		}
		if maxBackups >= 0 {
			o.maxBackups = maxBackups
		}
		if maxAgeDays >= 0 {
			o.maxAgeDays = maxAgeDays
		}
		o.compress = compress
	}
}
