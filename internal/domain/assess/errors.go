package assess

import (
	"errors"
	"fmt"
)

// Kind classifies why a stage failed.
type Kind int

// Error kinds. None is retried inside the pipeline.
const (
	KindUpstreamUnavailable Kind = iota + 1
	KindMalformedOutput
	KindCountMismatch
	KindHallucinatedReference
	KindEmptyResult
)

// Sentinel kinds for errors.Is checks.
var (
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrMalformedOutput       = errors.New("malformed output")
	ErrCountMismatch         = errors.New("count mismatch")
	ErrHallucinatedReference = errors.New("hallucinated reference")
	ErrEmptyResult           = errors.New("empty result")

	ErrNoCandidates = errors.New("no candidate risks found for extracted or fallback keywords")
)

func (k Kind) String() string {
	switch k {
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindMalformedOutput:
		return "malformed_output"
	case KindCountMismatch:
		return "count_mismatch"
	case KindHallucinatedReference:
		return "hallucinated_reference"
	case KindEmptyResult:
		return "empty_result"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	case KindMalformedOutput:
		return ErrMalformedOutput
	case KindCountMismatch:
		return ErrCountMismatch
	case KindHallucinatedReference:
		return ErrHallucinatedReference
	case KindEmptyResult:
		return ErrEmptyResult
	default:
		return nil
	}
}

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageKeywords   Stage = "keywords"
	StageRetrieval  Stage = "retrieval"
	StageRanking    Stage = "ranking"
	StageEnrichment Stage = "enrichment"
)

// StageError is the failure of a single stage.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	msg := e.Kind.sentinel()
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, msg)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, msg, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *StageError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func stageErr(stage Stage, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns the kind of a stage error, or 0 when err is not one.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

var errNoKeywords = errors.New("no keywords extracted")

type errMissingField string

func (e errMissingField) Error() string { return "missing required field: " + string(e) }
