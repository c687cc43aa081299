package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidRiskID      = errors.New("invalid risk id format")
	ErrServiceUnavailable = errors.New("database service unavailable")
	ErrUnexpectedStatus   = errors.New("unexpected status from database service")
	ErrInvalidCatalog     = errors.New("invalid risk catalog")
)
