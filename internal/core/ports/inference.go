package ports

import "context"

// InferenceClient sends a prompt to an LLM and returns its raw text completion.
// One attempt per call: no retries, no streaming.
type InferenceClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}
