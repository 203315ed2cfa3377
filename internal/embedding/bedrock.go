package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"golang.org/x/time/rate"
)

// bedrockInvoker is the subset of the Bedrock runtime client used here,
// narrowed so tests can substitute a fake.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder generates embeddings through the AWS Bedrock runtime.
type BedrockEmbedder struct {
	client  bedrockInvoker
	modelID string
	limiter *rate.Limiter
}

// NewBedrockEmbedder creates a Bedrock-backed embedder. Credentials come from
// the default AWS credential chain. rps > 0 caps outbound requests per
// second; retries are deliberately left to callers.
func NewBedrockEmbedder(ctx context.Context, region, modelID string, rps float64) (*BedrockEmbedder, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("embedding: load aws config: %w", err)
	}
	return &BedrockEmbedder{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		limiter: newLimiter(rps),
	}, nil
}

// embedRequestBody builds the model-specific request payload. Amazon Titan
// embedding models take {"inputText": ...}; other model families take
// {"text": ...}.
func embedRequestBody(modelID, text string) ([]byte, error) {
	if strings.Contains(strings.ToLower(modelID), "titan") {
		return json.Marshal(struct {
			InputText string `json:"inputText"`
		}{text})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{text})
}

// bedrockEmbedResponse covers the response shapes of the supported embedding
// model families; exactly one of the fields is expected to be populated.
type bedrockEmbedResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
	Data       []float32   `json:"data"`
	Vector     []float32   `json:"vector"`
}

func (r *bedrockEmbedResponse) vector() []float32 {
	switch {
	case len(r.Embedding) > 0:
		return r.Embedding
	case len(r.Embeddings) > 0:
		return r.Embeddings[0]
	case len(r.Data) > 0:
		return r.Data
	default:
		return r.Vector
	}
}

// Embed invokes the configured model once and returns its embedding.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := waitLimiter(ctx, e.limiter); err != nil {
		return nil, err
	}
	body, err := embedRequestBody(e.modelID, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}
	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoke model %s: %v", ErrUnavailable, e.modelID, err)
	}
	var resp bedrockEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode model %s response: %v", ErrMalformed, e.modelID, err)
	}
	vec := resp.vector()
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: model %s response carries no embedding", ErrMalformed, e.modelID)
	}
	if norm := L2Norm(vec); norm < NearZeroNorm {
		return nil, fmt.Errorf("%w: model %s returned norm %g", ErrDegenerate, e.modelID, norm)
	}
	return vec, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func waitLimiter(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
