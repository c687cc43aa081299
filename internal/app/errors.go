package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrBatchTooLarge     = errors.New("batch exceeds queue size")
	ErrBatchIncomplete   = errors.New("batch stopped before every job was assessed")
	ErrEnqueue           = errors.New("job rejected by queue")
	ErrNoRiskSource      = errors.New("no risk source configured")
	ErrReloadUnsupported = errors.New("risk source does not support reload")
)
