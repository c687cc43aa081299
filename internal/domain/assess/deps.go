// Package assess implements the proposal risk assessment pipeline.
package assess

import (
	"context"

	"github.com/okian/riskengine/internal/domain/model"
)

// Generator issues one structured-output request to a generation service.
type Generator interface {
	Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error)
}

// Repository is the read-only risk catalog the pipeline queries.
// Implementations reject malformed risk ids before they reach the pipeline.
type Repository interface {
	// Search returns keyword-matched risks deduplicated by risk id.
	Search(ctx context.Context, keywords []string) ([]model.CandidateRisk, error)

	// ControlsFor maps each risk id to its controls; entries may be empty.
	ControlsFor(ctx context.Context, riskIDs []string) (map[string][]model.Control, error)

	// Health reports whether the repository is reachable.
	Health(ctx context.Context) bool
}
