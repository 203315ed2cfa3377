// Package search orchestrates corpus loading, index construction, query
// encoding, and ranking.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/greenbase/efsearch/internal/corpus"
	"github.com/greenbase/efsearch/internal/embedding"
	"github.com/greenbase/efsearch/internal/index"
)

// DefaultTopK is used when a request does not specify how many results it wants.
const DefaultTopK = 5

// State is the service lifecycle state.
type State string

const (
	// StateUninitialized means no corpus+index generation has been built yet.
	StateUninitialized State = "uninitialized"
	// StateReady means a generation is built and queries can be served.
	StateReady State = "ready"
)

// Result is one ranked record: every record field except the raw embedding,
// plus a similarity score in (0, 1] derived as 1/(1+distance).
type Result struct {
	corpus.Record
	SimilarityScore float64 `json:"similarity_score"`
}

// Response carries the ranked results and the raw query vector, which callers
// use for diagnostics.
type Response struct {
	Results     []Result  `json:"results"`
	QueryVector []float32 `json:"query_vector"`
}

// Status reports the lifecycle state and the shape of the current corpus.
type Status struct {
	State          State `json:"state"`
	RecordCount    int   `json:"record_count"`
	Dimension      int   `json:"dimension"`
	InvalidRecords int   `json:"invalid_records"`
}

// generation is one immutable corpus+index pair. Rebuilds construct a new
// generation off to the side and swap the pointer in one store, so in-flight
// queries never observe a half-built pair.
type generation struct {
	corpus *corpus.Corpus
	index  *index.Flat
	stats  corpus.Stats
}

// Service answers semantic search queries over the emission-factor corpus.
// Construct it with NewService and share one instance; all methods are safe
// for concurrent use. Once a generation is built, queries are read-only and
// proceed without mutual exclusion.
type Service struct {
	loader   *corpus.Loader
	embedder embedding.Embedder
	logger   *zap.Logger

	gen     atomic.Pointer[generation]
	rebuild singleflight.Group
}

// NewService creates a service owning its loader, embedding provider, and
// corpus/index generations. A nil logger is replaced with a no-op.
func NewService(loader *corpus.Loader, embedder embedding.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, embedder: embedder, logger: logger}
}

// Initialize builds the first generation if none exists. Call it once at
// process start; when it fails, the service stays uninitialized and the next
// search retries the same path.
func (s *Service) Initialize(ctx context.Context) error {
	if s.gen.Load() != nil {
		return nil
	}
	return s.Reload(ctx)
}

// Reload loads the corpus and builds the index wholesale, then atomically
// replaces the current generation. Concurrent callers share a single
// load+build; failures are never cached. When the reload fails, the previous
// generation (if any) stays fully usable.
func (s *Service) Reload(ctx context.Context) error {
	_, err, _ := s.rebuild.Do("rebuild", func() (interface{}, error) {
		c, stats, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		idx, err := index.Build(c)
		if err != nil {
			return nil, err
		}
		s.gen.Store(&generation{corpus: c, index: idx, stats: stats})
		s.logger.Info("search index built",
			zap.Int("records", c.Len()),
			zap.Int("dimension", c.Dimension()),
			zap.Int("invalid_records", stats.Invalid),
		)
		return nil, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Search encodes query text through the embedding provider, validates the
// returned vector, and returns the topK closest records with similarity
// scores, together with the raw query vector. topK <= 0 means DefaultTopK;
// it is clamped to the corpus size.
func (s *Service) Search(ctx context.Context, query string, topK int) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	gen := s.gen.Load()
	if gen == nil {
		if err := s.Initialize(ctx); err != nil {
			return nil, err
		}
		gen = s.gen.Load()
	}

	log := s.logger.With(zap.String("query_id", uuid.NewString()))

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if norm := embedding.L2Norm(vec); norm < embedding.NearZeroNorm {
		log.Warn("provider returned degenerate query vector", zap.Float64("norm", norm))
		return nil, fmt.Errorf("%w: norm %g is below %g", ErrDegenerateVector, norm, embedding.NearZeroNorm)
	}
	if len(vec) != gen.corpus.Dimension() {
		return nil, fmt.Errorf("%w: query has dimension %d, corpus has %d",
			ErrDimensionMismatch, len(vec), gen.corpus.Dimension())
	}

	hits, err := gen.index.Query(vec, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Record:          gen.corpus.Record(h.Ordinal).WithoutVector(),
			SimilarityScore: 1 / (1 + h.Distance),
		})
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	log.Debug("search completed",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
	)
	return &Response{Results: results, QueryVector: vec}, nil
}

// Status reports the current lifecycle state and corpus shape.
func (s *Service) Status() Status {
	gen := s.gen.Load()
	if gen == nil {
		return Status{State: StateUninitialized}
	}
	return Status{
		State:          StateReady,
		RecordCount:    gen.corpus.Len(),
		Dimension:      gen.corpus.Dimension(),
		InvalidRecords: gen.stats.Invalid,
	}
}
