package tracing

import "errors"

// Sentinel kinds for tracing errors.
var (
	ErrNilContext = errors.New("nil context")
	ErrInit       = errors.New("init tracing failed")
)
