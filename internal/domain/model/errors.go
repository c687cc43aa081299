package model

import "errors"

// Sentinel kinds for model decoding and validation errors.
var (
	ErrNotAnObject     = errors.New("expected a JSON object")
	ErrInvalidProposal = errors.New("invalid proposal")
)
