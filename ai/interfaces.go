package ai

import "context"

// Completer sends a prompt to a language model and returns its text reply.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete returns the model's reply to prompt, using the model and
	// response budget of profile.
	// Errors should be classifiable with IsTransient.
	Complete(ctx context.Context, prompt Prompt, profile Profile) (string, error)
}

// Prompt is a system instruction paired with user content.
type Prompt struct {
	System string
	User   string
}

// Profile selects the downstream model and response budget for a call.
// Extraction and cleanup use different profiles.
type Profile struct {
	// Name identifies the profile in logs and metrics, e.g. "extraction".
	Name string

	// Model is the model identifier passed to the service.
	Model string

	// MaxTokens bounds the size of the reply.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// Profile names used by the pipeline.
const (
	ProfileExtraction = "extraction"
	ProfileCleanup    = "cleanup"
)

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt Prompt, profile Profile) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt Prompt, profile Profile) (string, error) {
	return f(ctx, prompt, profile)
}
