// Package llm adapts generation services to the assessment pipeline.
package llm

import (
	"context"

	"github.com/okian/riskengine/internal/domain/model"
)

// Provider is a generation backend with the operational calls the service
// layer needs next to Generate.
type Provider interface {
	Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error)
	Health(ctx context.Context) bool
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes one model offered by the backend.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

var (
	_ Provider = (*OpenAIClient)(nil)
	_ Provider = (*Scripted)(nil)
	_ Provider = (*RateLimited)(nil)
)
