package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API, or
// any API-compatible endpoint via baseURL.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	limiter *rate.Limiter
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. baseURL may be empty
// for the default endpoint. rps > 0 caps outbound requests per second.
func NewOpenAIEmbedder(apiKey, baseURL, model string, rps float64) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("embedding: OPENAI_API_KEY is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(cfg),
		model:   openai.EmbeddingModel(model),
		limiter: newLimiter(rps),
	}, nil
}

// Embed requests a single embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := waitLimiter(ctx, e.limiter); err != nil {
		return nil, err
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: response carries no embedding data", ErrMalformed)
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i := range raw {
		vec[i] = float32(raw[i])
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrMalformed)
	}
	if norm := L2Norm(vec); norm < NearZeroNorm {
		return nil, fmt.Errorf("%w: model %s returned norm %g", ErrDegenerate, e.model, norm)
	}
	return vec, nil
}
