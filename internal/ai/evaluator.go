package ai

import "context"

// Evaluator produces a textual completion for a prompt. Implementations are
// expected to be safe for concurrent use.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
	Model() string
}
