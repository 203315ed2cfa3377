// Package embedding provides the text-to-vector provider boundary and its
// implementations (AWS Bedrock, OpenAI, and a deterministic mock for tests).
package embedding

import (
	"context"
	"errors"
	"math"
)

// NearZeroNorm is the L2-norm threshold below which an embedding is
// considered degenerate. A near-zero vector makes every similarity score
// meaningless, so it is always a hard failure, never a usable embedding.
const NearZeroNorm = 1e-6

// Embedder turns text into an embedding vector of the provider's native
// dimension. Implementations make one outbound call per invocation, keep no
// cache of prior queries, and never substitute a placeholder vector on
// failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

var (
	// ErrUnavailable means the provider could not be reached or refused the
	// call (network, credentials, quota).
	ErrUnavailable = errors.New("embedding: provider unavailable")
	// ErrMalformed means the provider responded without a usable vector.
	ErrMalformed = errors.New("embedding: malformed provider response")
	// ErrDegenerate means the provider returned a vector with near-zero norm.
	ErrDegenerate = errors.New("embedding: degenerate vector")
)

// L2Norm returns the Euclidean norm of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
