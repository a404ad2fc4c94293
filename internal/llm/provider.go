package llm

import "context"

// Response contains LLM generation result
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for text generation backends.
//
// Implementations wrap network and HTTP errors with domain.ErrTransportFailure
// and replies without a usable candidate with domain.ErrMalformedResponse.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate sends one prompt and returns the first candidate's text
	Generate(ctx context.Context, prompt string, model string) (*Response, error)
}
