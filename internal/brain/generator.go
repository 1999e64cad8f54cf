package brain

import (
	"context"
	"errors"
)

// ErrGeneration marks text-generation failures. Generation is an essential
// pipeline stage: the reply request aborts when it fails.
var ErrGeneration = errors.New("generation failed")

// Generator produces persona text from a system instruction and a user
// payload. Implementations may block until the model responds; callers pass
// ctx for cancellation.
type Generator interface {
	Generate(ctx context.Context, systemInstruction, userPayload string) (string, error)
}
