// Package index provides an exact brute-force nearest-neighbor index over
// corpus embeddings using squared Euclidean distance.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/greenbase/efsearch/internal/corpus"
)

var (
	// ErrEmptyCorpus means there were no vectors to index.
	ErrEmptyCorpus = errors.New("index: empty corpus")
	// ErrDimensionInconsistency means the corpus vectors do not share one dimension.
	ErrDimensionInconsistency = errors.New("index: inconsistent vector dimensions")
)

// Hit is one nearest-neighbor match: the record's ordinal position in the
// corpus the index was built from, and its squared Euclidean distance to the
// query vector.
type Hit struct {
	Ordinal  int
	Distance float64
}

// Flat is an exact exhaustive-scan index. Vectors are stored contiguously in
// a single row-major buffer. A Flat is immutable once built; rebuilding means
// constructing a new Flat from a new corpus snapshot.
type Flat struct {
	dim  int
	n    int
	data []float32
}

// Build constructs an index from every vector in c. It fails when the corpus
// is empty or any vector disagrees with the corpus dimension.
func Build(c *corpus.Corpus) (*Flat, error) {
	if c == nil || c.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	dim := c.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("%w: corpus dimension %d", ErrDimensionInconsistency, dim)
	}
	data := make([]float32, 0, c.Len()*dim)
	for i := 0; i < c.Len(); i++ {
		v := c.VectorAt(i)
		if len(v) != dim {
			return nil, fmt.Errorf("%w: record %d has dimension %d, corpus has %d",
				ErrDimensionInconsistency, i, len(v), dim)
		}
		data = append(data, v...)
	}
	return &Flat{dim: dim, n: c.Len(), data: data}, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	return f.n
}

// Dimension returns the vector dimension the index was built with.
func (f *Flat) Dimension() int {
	return f.dim
}

// Query returns the k nearest stored vectors to q, closest first. Every
// stored vector is compared; no pruning. Equal distances keep corpus
// insertion order. k is clamped to the number of stored vectors.
func (f *Flat) Query(q []float32, k int) ([]Hit, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index has %d", ErrDimensionInconsistency, len(q), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > f.n {
		k = f.n
	}
	hits := make([]Hit, f.n)
	for i := 0; i < f.n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var d float64
		for j, x := range row {
			diff := float64(x) - float64(q[j])
			d += diff * diff
		}
		hits[i] = Hit{Ordinal: i, Distance: d}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	return hits[:k:k], nil
}
