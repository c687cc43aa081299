package model

// GenerationParams configures one structured-output request.
type GenerationParams struct {
	Temperature float32
	MaxTokens   int
	// JSON requires the reply to be a single JSON object.
	JSON bool
}
