package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/greenbase/efsearch/internal/corpus"
	"github.com/greenbase/efsearch/internal/embedding"
)

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// newTestService builds a service over a three-record 2D corpus at
// (0,0), (1,0), (5,5). embed decides what the provider returns.
func newTestService(t *testing.T, embed embedding.EmbedderFunc) *Service {
	t.Helper()
	dir := t.TempDir()
	writeCorpusFile(t, dir, "factors.json", `[
		{"ef_id": 10, "gas": "CO2", "vector": [0, 0]},
		{"ef_id": 20, "gas": "CH4", "vector": [1, 0]},
		{"ef_id": 30, "gas": "N2O", "vector": [5, 5]}
	]`)
	return NewService(corpus.NewLoader(dir, nil), embed, nil)
}

func fixedVector(v []float32) embedding.EmbedderFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return v, nil
	}
}

func TestSearch_RankingAndScores(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	resp, err := svc.Search(context.Background(), "cement kilns", 2)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	// (1,0) at distance 1 scores 0.5, (0,0) at distance 2 scores 1/3.
	require.Equal(t, int64(20), resp.Results[0].EFID)
	require.InDelta(t, 0.5, resp.Results[0].SimilarityScore, 1e-9)
	require.Equal(t, int64(10), resp.Results[1].EFID)
	require.InDelta(t, 1.0/3.0, resp.Results[1].SimilarityScore, 1e-9)

	require.Equal(t, []float32{1, 1}, resp.QueryVector)
	for _, r := range resp.Results {
		require.Nil(t, r.Vector)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	_, err := svc.Search(context.Background(), "   ", 3)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_DefaultTopK(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	resp, err := svc.Search(context.Background(), "stationary combustion", 0)
	require.NoError(t, err)
	// DefaultTopK exceeds the corpus size, so every record comes back.
	require.Len(t, resp.Results, 3)
}

func TestSearch_TopKClampedToCorpus(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	resp, err := svc.Search(context.Background(), "landfill methane", 100)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
}

func TestSearch_DegenerateQueryVector(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{0, 0}))

	_, err := svc.Search(context.Background(), "rice cultivation", 3)
	require.ErrorIs(t, err, ErrDegenerateVector)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1, 1}))

	_, err := svc.Search(context.Background(), "enteric fermentation", 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_EmbedderFailure(t *testing.T) {
	svc := newTestService(t, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("%w: connection refused", embedding.ErrUnavailable)
	})

	_, err := svc.Search(context.Background(), "fugitive emissions", 3)
	require.ErrorIs(t, err, ErrEmbedding)
	require.ErrorIs(t, err, embedding.ErrUnavailable)
}

func TestSearch_LazyInitialization(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "factors.json", `[{"ef_id": 1, "vector": [0, 1]}]`)
	svc := NewService(corpus.NewLoader(dir, nil), fixedVector([]float32{0, 1}), nil)

	require.Equal(t, StateUninitialized, svc.Status().State)

	resp, err := svc.Search(context.Background(), "road transport", 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, StateReady, svc.Status().State)
}

func TestSearch_RetriesInitAfterFailure(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(corpus.NewLoader(dir, nil), fixedVector([]float32{0, 1}), nil)

	_, err := svc.Search(context.Background(), "waste incineration", 1)
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, corpus.ErrEmptyCorpus)
	require.Equal(t, StateUninitialized, svc.Status().State)

	// Data appears later; the next search initializes and serves.
	writeCorpusFile(t, dir, "factors.json", `[{"ef_id": 1, "vector": [0, 1]}]`)
	resp, err := svc.Search(context.Background(), "waste incineration", 1)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}

func TestReload_KeepsOldGenerationOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "factors.json")
	writeCorpusFile(t, dir, "factors.json", `[{"ef_id": 1, "vector": [0, 1]}]`)
	svc := NewService(corpus.NewLoader(dir, nil), fixedVector([]float32{0, 1}), nil)
	require.NoError(t, svc.Initialize(context.Background()))

	// Break the directory and reload; the built generation must survive.
	require.NoError(t, os.Remove(path))
	err := svc.Reload(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	resp, err := svc.Search(context.Background(), "road transport", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Results[0].EFID)
}

func TestReload_SwapsGeneration(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "factors.json", `[{"ef_id": 1, "vector": [0, 1]}]`)
	svc := NewService(corpus.NewLoader(dir, nil), fixedVector([]float32{0, 1}), nil)
	require.NoError(t, svc.Initialize(context.Background()))
	require.Equal(t, 1, svc.Status().RecordCount)

	writeCorpusFile(t, dir, "more.json", `[{"ef_id": 2, "vector": [1, 0]}]`)
	require.NoError(t, svc.Reload(context.Background()))
	require.Equal(t, 2, svc.Status().RecordCount)
}

func TestSearch_ConcurrentFirstAccess(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Search(context.Background(), "aluminium production", 2)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestReload_ContextCancelled(t *testing.T) {
	svc := newTestService(t, fixedVector([]float32{1, 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Reload(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrUnavailable))
}

func TestStatus_ReportsInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "factors.json", `[
		{"ef_id": 1, "vector": [0, 1]},
		{"ef_id": 2}
	]`)
	svc := NewService(corpus.NewLoader(dir, nil), fixedVector([]float32{0, 1}), nil)
	require.NoError(t, svc.Initialize(context.Background()))

	st := svc.Status()
	require.Equal(t, StateReady, st.State)
	require.Equal(t, 1, st.RecordCount)
	require.Equal(t, 2, st.Dimension)
	require.Equal(t, 1, st.InvalidRecords)
}
