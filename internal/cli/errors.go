package cli

import "errors"

// Sentinel errors returned by CLI commands. main maps any error to exit code 1.
var (
	ErrUnhealthy      = errors.New("one or more dependencies are unhealthy")
	ErrNoProposals    = errors.New("no proposal files found")
	ErrOutputFormat   = errors.New("unknown output format")
	ErrReadProposal   = errors.New("read proposal")
	ErrMissingService = errors.New("command needs a service factory")
)
