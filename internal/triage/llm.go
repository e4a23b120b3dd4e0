package triage

import "context"

// Completer is the interface for any completion backend. Implementations send
// prompt as a single user message at temperature 0 and return the model's
// text. Every error is treated as an upstream failure; nothing is retried.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
