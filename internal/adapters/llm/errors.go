package llm

import "errors"

// Generation errors.
var (
	ErrNoChoices       = errors.New("llm returned no choices")
	ErrEmptyResponse   = errors.New("llm returned empty content")
	ErrMissingAPIKey   = errors.New("llm api key is required")
	ErrUnknownPrompt   = errors.New("scripted generator cannot answer prompt")
	ErrRateLimitWait   = errors.New("rate limiter wait failed")
	ErrHealthCheckFail = errors.New("llm health probe did not answer OK")
)
